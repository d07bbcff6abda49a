package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/flowent-gateway/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the gateway database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			if err := db.CreateGatewayMigrator(app.db.WithContext(cmd.Context())).Up(); err != nil {
				return err
			}
			printSuccess("Migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Roll back one applied migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			if err := db.CreateGatewayMigrator(app.db.WithContext(cmd.Context())).Down(args[0]); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Migration %s rolled back", args[0]))
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			statuses, err := db.CreateGatewayMigrator(app.db.WithContext(cmd.Context())).Status()
			if err != nil {
				return err
			}
			for _, s := range statuses {
				mark := "pending"
				if s.Applied {
					mark = "applied"
				}
				fmt.Printf("%s  %-24s %s\n", s.Version, s.Name, mark)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
