// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"cosq/cli/internal/config"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	initAccount     string
	initEndpoint    string
	initDatabase    string
	initContainer   string
	initConcurrency int
)

// initCmd represents the init command for writing the account configuration.
// It is non-interactive so it can run in provisioning scripts.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure the Cosmos DB account cosq talks to",
	Long: `The init command writes the account configuration file. Pass the account
endpoint explicitly, or just the account name to derive the standard endpoint:

  cosq init --account mystore --database shopdb --container orders

The token is not stored here; see: cosq auth set-token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := strings.TrimSpace(initEndpoint)
		account := strings.TrimSpace(initAccount)

		if endpoint == "" {
			if account == "" {
				return fmt.Errorf("either --account or --endpoint is required")
			}
			endpoint = fmt.Sprintf("https://%s.documents.azure.com:443/", account)
		}
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
		}
		if account == "" {
			account = accountFromEndpoint(endpoint)
		}

		cfg := config.Config{
			Account:     config.Account{Name: account, Endpoint: endpoint},
			Database:    initDatabase,
			Container:   initContainer,
			Concurrency: initConcurrency,
		}
		if err := config.Save(cfg); err != nil {
			return err
		}

		path, err := config.Path()
		if err != nil {
			return err
		}
		pterm.Success.Printf("Configuration written to %s\n", path)
		pterm.Println()
		pterm.Println("Next, store a data-plane token: cosq auth set-token")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initAccount, "account", "", "Cosmos DB account name")
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "Account endpoint URL (overrides the derived one)")
	initCmd.Flags().StringVar(&initDatabase, "database", "", "Default database name")
	initCmd.Flags().StringVar(&initContainer, "container", "", "Default container name")
	initCmd.Flags().IntVar(&initConcurrency, "concurrency", 0, "Max concurrent partition range requests (0 = default)")
}

// accountFromEndpoint extracts the account name from a standard
// *.documents.azure.com endpoint, or returns the host as-is.
func accountFromEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if name, _, ok := strings.Cut(host, "."); ok {
		return name
	}
	return host
}
