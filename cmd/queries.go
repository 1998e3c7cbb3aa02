// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"cosq/cli/internal/storedquery"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// queriesCmd groups the stored query management subcommands.
var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "List and inspect stored query files",
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available stored queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		queries, err := storedquery.List()
		if err != nil {
			return err
		}
		if len(queries) == 0 {
			pterm.Println("No stored queries found.")
			pterm.Println("Add .cosq files to ./.cosq/queries or ~/.cosq/queries")
			return nil
		}

		data := pterm.TableData{{"NAME", "TYPE", "DESCRIPTION"}}
		for _, q := range queries {
			kind := "query"
			if q.IsPipeline() {
				kind = fmt.Sprintf("pipeline (%d steps)", len(q.Metadata.Steps))
			}
			data = append(data, []string{q.Name, kind, q.Metadata.Description})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var queriesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a stored query's parameters, steps and SQL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := storedquery.Find(args[0])
		if err != nil {
			return err
		}

		title := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(q.Name)
		if q.Metadata.Description != "" {
			pterm.DefaultBox.WithTitle(title).WithPadding(1).Println(q.Metadata.Description)
		} else {
			pterm.DefaultBox.WithPadding(1).Println(title)
		}
		pterm.Println()

		if len(q.Metadata.Params) > 0 {
			data := pterm.TableData{{"PARAM", "TYPE", "REQUIRED", "CONSTRAINTS"}}
			for _, p := range q.Metadata.Params {
				data = append(data, []string{p.Name, string(p.Type), fmt.Sprintf("%t", p.IsRequired()), describeConstraints(p)})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}
			pterm.Println()
		}

		if q.IsPipeline() {
			for _, step := range q.Metadata.Steps {
				pterm.DefaultSection.Printf("%s (%s)", step.Name, step.Container)
				pterm.Println(strings.TrimSpace(q.StepSQL[step.Name]))
			}
			return nil
		}

		pterm.Println(strings.TrimSpace(q.SQL))
		return nil
	},
}

// describeConstraints summarizes a parameter's validation rules for display.
func describeConstraints(p storedquery.ParamDef) string {
	var parts []string
	if p.Min != nil {
		parts = append(parts, fmt.Sprintf("min=%g", *p.Min))
	}
	if p.Max != nil {
		parts = append(parts, fmt.Sprintf("max=%g", *p.Max))
	}
	if len(p.Choices) > 0 {
		choices := make([]string, len(p.Choices))
		for i, c := range p.Choices {
			choices[i] = fmt.Sprintf("%v", c)
		}
		parts = append(parts, "choices="+strings.Join(choices, "|"))
	}
	if p.Pattern != "" {
		parts = append(parts, "pattern="+p.Pattern)
	}
	if p.Default != nil {
		parts = append(parts, fmt.Sprintf("default=%v", p.Default))
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(queriesCmd)
	queriesCmd.AddCommand(queriesListCmd)
	queriesCmd.AddCommand(queriesShowCmd)
}
