// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"cosq/cli/internal/cosmos"
	"cosq/cli/internal/output"

	"github.com/spf13/cobra"
)

var (
	queryDatabase  string
	queryContainer string
	queryParams    []string
	queryFormat    string
	queryTemplate  string
)

// queryCmd represents the query command for running ad-hoc SQL against a
// container. The query fans out across all partition key ranges and follows
// continuation tokens, so cross-partition queries work without extra flags.
var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run an ad-hoc SQL query against a container",
	Long: `The query command executes a single SQL query against one container and
prints the matching documents. Bind parameters are passed with repeated
--param flags and referenced in the query as @name:

  cosq query "SELECT * FROM c WHERE c.status = @status" --param status=active

Parameter values that parse as JSON (numbers, booleans, null) are bound with
that type; anything else is bound as a string.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(queryFormat)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database := queryDatabase
		if database == "" {
			database = cfg.Database
		}
		container := queryContainer
		if container == "" {
			container = cfg.Container
		}
		if database == "" || container == "" {
			return fmt.Errorf("database and container are required (pass --database/--container or set defaults with `cosq init`)")
		}

		raw, err := parseParamFlags(queryParams)
		if err != nil {
			return err
		}
		params := adHocParams(raw)

		client := newClient(cfg)
		stopSpinner := startSpinner("Running query")
		res, err := client.Query(cmd.Context(), database, container, args[0], params)
		stopSpinner()
		if err != nil {
			return err
		}

		writer, err := output.New(os.Stdout, format, queryTemplate)
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
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryDatabase, "database", "d", "", "Database name (defaults to the configured database)")
	queryCmd.Flags().StringVarP(&queryContainer, "container", "c", "", "Container name (defaults to the configured container)")
	queryCmd.Flags().StringArrayVarP(&queryParams, "param", "p", nil, "Bind parameter as key=value (repeatable)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "o", "json", "Output format: json, csv, table or template")
	queryCmd.Flags().StringVar(&queryTemplate, "template", "", "Go text/template used with --format template")
}

// adHocParams converts raw --param values into typed bind parameters. Values
// are tried as JSON first so numbers and booleans keep their type; everything
// else binds as a string.
func adHocParams(raw map[string]string) []cosmos.QueryParam {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]cosmos.QueryParam, 0, len(names))
	for _, name := range names {
		var value any
		if err := json.Unmarshal([]byte(raw[name]), &value); err != nil {
			value = raw[name]
		}
		params = append(params, cosmos.QueryParam{Name: "@" + name, Value: value})
	}
	return params
}
