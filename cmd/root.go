package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/flowent-gateway/config"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "flowent-gateway",
	Short: "Flowent API gateway",
	Long: `Flowent API gateway lets developers register webhook-backed actions,
exchange API tokens for session tokens and invoke actions with signed requests.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		utils.Configure("flowent-gateway", os.Stderr, loaded.Monitoring.LogLevel, loaded.Monitoring.LogFormat)
		cfg = loaded
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (default: config.yaml in . or ./config)")
}
