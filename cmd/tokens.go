package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage tenant API tokens",
}

var tokensCreateCmd = &cobra.Command{
	Use:   "create <tenant-id>",
	Short: "Issue an API token; the plaintext is shown only once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			issued, err := app.credentials.CreateAPIToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSuccess("API token issued")
			printField("Token ID", issued.Token.ID)
			printField("API token", issued.Plaintext)
			printWarning("Store the token now; it cannot be shown again")
			return nil
		})
	},
}

var tokensListCmd = &cobra.Command{
	Use:   "list <tenant-id>",
	Short: "List a tenant's API tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			tokens, err := app.credentials.ListAPITokens(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, t := range tokens {
				state := "active"
				if t.Revoked {
					state = "revoked"
				}
				fmt.Printf("%s  %s…  %-8s %s\n", t.ID, t.Prefix, state, t.CreatedAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}

var tokensRevokeCmd = &cobra.Command{
	Use:   "revoke <tenant-id> <token-id>",
	Short: "Revoke an API token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			if err := app.credentials.RevokeAPIToken(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Token %s revoked", args[1]))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensCreateCmd, tokensListCmd, tokensRevokeCmd)
}
