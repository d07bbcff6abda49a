package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/flowent-gateway/db"
	"github.com/youssefsiam38/flowent-gateway/models"
)

var (
	serveMigrate   bool
	serveBootstrap string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner()
		fmt.Println()

		printStep("1/4", "Connecting storage...")
		app, err := buildApplication(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		if app.db != nil {
			printSuccess(fmt.Sprintf("Connected to PostgreSQL at %s:%d", cfg.Database.Host, cfg.Database.Port))
		} else {
			printWarning("Using the in-memory store; data is lost on exit")
		}
		if app.redis != nil {
			printSuccess(fmt.Sprintf("Connected to Redis at %s (shared rate limits)", cfg.GetRedisAddr()))
		} else {
			printInfo("Rate limits are kept in process")
		}

		printStep("2/4", "Preparing schema...")
		if app.db != nil && serveMigrate {
			if err := db.AutoMigrate(cmd.Context(), app.db); err != nil {
				return err
			}
			printSuccess("Migrations applied")
		} else {
			printInfo("Skipped")
		}

		printStep("3/4", "Bootstrapping tenant...")
		if serveBootstrap != "" {
			if err := bootstrapTenant(cmd.Context(), app, serveBootstrap); err != nil {
				return err
			}
		} else {
			printInfo("Skipped")
		}

		printStep("4/4", "Setting up HTTP server...")
		server := &http.Server{
			Addr:           ":" + cfg.Server.Port,
			Handler:        app.router(),
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		}
		printSuccess("HTTP server configured")

		fmt.Println()
		printField("Environment", cfg.Environment)
		printField("Gateway API", fmt.Sprintf("http://localhost:%s%s", cfg.Server.Port, cfg.Server.PathPrefix))
		printField("Health", fmt.Sprintf("http://localhost:%s/health", cfg.Server.Port))
		if app.metrics != nil {
			printField("Metrics", fmt.Sprintf("http://localhost:%s/metrics", cfg.Server.Port))
		}
		fmt.Println()

		serverErrors := make(chan error, 1)
		go func() {
			printInfo(fmt.Sprintf("Starting HTTP server on port %s...", cfg.Server.Port))
			serverErrors <- server.ListenAndServe()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-quit:
		}

		fmt.Println()
		printWarning("Shutting down gateway...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		printSuccess("Gateway stopped gracefully")
		return nil
	},
}

// bootstrapTenant creates a tenant with an API token and HMAC key and prints
// the secrets once. Meant for local runs against the memory store.
func bootstrapTenant(ctx context.Context, app *application, name string) error {
	tenant, err := app.tenants.Create(ctx, &models.CreateTenantRequest{Name: name})
	if err != nil {
		return err
	}
	token, err := app.credentials.CreateAPIToken(ctx, tenant.ID)
	if err != nil {
		return err
	}
	key, err := app.credentials.CreateHMACKey(ctx, tenant.ID)
	if err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("Tenant %q created", tenant.Name))
	printField("  Tenant ID", tenant.ID)
	printField("  API token", token.Plaintext)
	printField("  HMAC key", key.Plaintext)
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply database migrations before serving")
	serveCmd.Flags().StringVar(&serveBootstrap, "bootstrap-tenant", "", "Create a tenant with this name and print its credentials")
}
