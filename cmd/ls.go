// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// lsCmd represents the ls command for browsing account metadata. It is the
// quickest way to verify that the configured endpoint and token actually work.
var lsCmd = &cobra.Command{
	Use:   "ls [database]",
	Short: "List databases, or the containers in a database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := newClient(cfg)

		var names []string
		if len(args) == 0 {
			names, err = client.ListDatabases(cmd.Context())
		} else {
			names, err = client.ListContainers(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		if len(names) == 0 {
			pterm.Println("(none)")
			return nil
		}
		for _, name := range names {
			pterm.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
