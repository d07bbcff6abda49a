package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/flowent-gateway/models"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage tenant HMAC signing keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create <tenant-id>",
	Short: "Issue the tenant's first HMAC key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			issued, err := app.credentials.CreateHMACKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printIssuedKey(issued)
			return nil
		})
	},
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate <tenant-id>",
	Short: "Replace the tenant's HMAC key; the old key stops working immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			issued, err := app.credentials.RotateHMACKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printIssuedKey(issued)
			return nil
		})
	},
}

func printIssuedKey(issued *models.IssuedHMACKey) {
	printSuccess(fmt.Sprintf("HMAC key version %d issued", issued.Key.Version))
	printField("HMAC key", issued.Plaintext)
	printWarning("Configure your action server with this key now; it cannot be shown again")
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRotateCmd)
}
