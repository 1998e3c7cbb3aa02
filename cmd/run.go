// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"

	"cosq/cli/internal/output"
	"cosq/cli/internal/pipeline"
	"cosq/cli/internal/storedquery"

	"github.com/spf13/cobra"
)

var (
	runDatabase string
	runParams   []string
	runFormat   string
	runTemplate string
)

// runCmd represents the run command for executing stored query files.
// Single-step queries execute like ad-hoc ones; multi-step queries are
// scheduled into dependency layers and each @step.field reference is bound
// from the first document of the step it names.
var runCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a stored query or pipeline by name",
	Long: `The run command executes a stored query file (.cosq) from ./.cosq/queries or
~/.cosq/queries. Declared parameters are validated against their type, range,
choices and pattern before any request is sent:

  cosq run recent-orders --param days=7

Multi-step queries run as a pipeline: independent steps execute concurrently
and steps referencing @other.field wait for that step's first result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(runFormat)
		if err != nil {
			return err
		}

		q, err := storedquery.Find(args[0])
		if err != nil {
			return err
		}

		raw, err := parseParamFlags(runParams)
		if err != nil {
			return err
		}
		resolved, err := storedquery.ResolveParams(q.Metadata.Params, raw)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database := runDatabase
		if database == "" {
			database = q.Metadata.Database
		}
		if database == "" {
			database = cfg.Database
		}
		if database == "" {
			return fmt.Errorf("no database for query %q (set database: in the query file, pass --database, or configure a default)", q.Name)
		}

		tmplText, err := resolveTemplate(q)
		if err != nil {
			return err
		}
		writer, err := output.New(os.Stdout, format, tmplText)
		if err != nil {
			return err
		}

		client := newClient(cfg)

		if q.IsPipeline() {
			runner := pipeline.New(client, pipeline.WithStepStart(func(step, container string) {
				if !quiet {
					fmt.Fprintf(os.Stderr, "▸ %s (%s)\n", step, container)
				}
			}))
			res, err := runner.Run(cmd.Context(), database, q, resolved)
			if err != nil {
				return err
			}
			if err := writer.WriteStepResults(res.StepResults); err != nil {
				return err
			}
			printCharge(res.TotalCharge)
			return nil
		}

		container := q.Metadata.Container
		if container == "" {
			container = cfg.Container
		}
		if container == "" {
			return fmt.Errorf("no container for query %q (set container: in the query file or configure a default)", q.Name)
		}

		params := storedquery.BuildQueryParams(resolved)
		stopSpinner := startSpinner(fmt.Sprintf("Running %s", q.Name))
		res, err := client.Query(cmd.Context(), database, container, q.SQL, params)
		stopSpinner()
		if err != nil {
			return err
		}
		if err := writer.WriteDocuments(res.Documents); err != nil {
			return err
		}
		printCharge(res.RequestCharge)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runDatabase, "database", "d", "", "Database name (overrides the query file and config)")
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "Query parameter as key=value (repeatable)")
	runCmd.Flags().StringVarP(&runFormat, "format", "o", "json", "Output format: json, csv, table or template")
	runCmd.Flags().StringVar(&runTemplate, "template", "", "Go text/template used with --format template")
}

// resolveTemplate picks the output template: the --template flag wins, then
// the query file's inline template, then its template_file reference.
func resolveTemplate(q *storedquery.StoredQuery) (string, error) {
	if runTemplate != "" {
		return runTemplate, nil
	}
	if q.Metadata.Template != "" {
		return q.Metadata.Template, nil
	}
	if q.Metadata.TemplateFile != "" {
		b, err := os.ReadFile(q.Metadata.TemplateFile)
		if err != nil {
			return "", fmt.Errorf("reading template file for %q: %w", q.Name, err)
		}
		return string(b), nil
	}
	return "", nil
}
