// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cosq/cli/internal/auth"
	"cosq/cli/internal/keychain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// authCmd groups the token management subcommands. The data-plane token is
// acquired out of band (for example with `az account get-access-token`) and
// stored in the OS keychain, never in the config file.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Cosmos DB data-plane token",
}

var authSetTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Store a data-plane token in the OS keychain",
	Long: `The set-token command stores an AAD data-plane token in the OS keychain.
The token can be passed as an argument or piped on stdin:

  az account get-access-token --resource https://mystore.documents.azure.com \
    --query accessToken -o tsv | cosq auth set-token`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading token from stdin: %w", err)
			}
			token = string(b)
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("empty token")
		}

		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system")
			return err
		}
		if err := km.SaveToken(token); err != nil {
			return err
		}
		pterm.Success.Println("Token stored in the OS keychain")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a data-plane token is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := (auth.Default{}).Token(cmd.Context())
		if err != nil {
			if errors.Is(err, auth.ErrNoToken) {
				pterm.Println("⚠️  No data-plane token configured")
				pterm.Println("   Export COSQ_TOKEN or run: cosq auth set-token")
				return nil
			}
			return err
		}
		pterm.Printf("✅ Token configured via %s\n", auth.Source())
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored data-plane token",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system")
			return err
		}
		if err := km.DeleteToken(); err != nil && !errors.Is(err, keychain.ErrNotFound) {
			return err
		}
		pterm.Success.Println("Stored token removed")
		if strings.TrimSpace(os.Getenv(auth.EnvToken)) != "" {
			pterm.Printf("⚠️  %s is still set in this shell and will be used\n", auth.EnvToken)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetTokenCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authClearCmd)
}
