package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/flowent-gateway/models"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
}

var tenantsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			tenant, err := app.tenants.Create(cmd.Context(), &models.CreateTenantRequest{Name: args[0]})
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Tenant %q created", tenant.Name))
			printField("Tenant ID", tenant.ID)
			return nil
		})
	},
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			tenants, err := app.tenants.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(tenants) == 0 {
				fmt.Println("No tenants found.")
				return nil
			}
			for _, t := range tenants {
				fmt.Printf("%s  %-32s %s\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(tenantsCmd)
	tenantsCmd.AddCommand(tenantsCreateCmd, tenantsListCmd)
}
