// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the cosq CLI application.
// It implements subcommands for running ad-hoc and stored Cosmos DB queries,
// managing the data-plane token, and configuring the target account, using the
// Cobra CLI framework.
package cmd

import (
	"fmt"
	"os"

	"cosq/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "cosq",
	Short:         "Run SQL queries against Azure Cosmos DB from the terminal",
	Long: `cosq is a command-line client for the Azure Cosmos DB SQL API. It executes
ad-hoc queries, stored query files with typed parameters, and multi-step
pipelines that feed one step's results into the next.

Authentication uses an AAD data-plane token taken from the COSQ_TOKEN
environment variable or the OS keychain (see: cosq auth set-token).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output and request charge reporting")
}
