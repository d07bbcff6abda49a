package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/youssefsiam38/flowent-gateway/middleware"
	"github.com/youssefsiam38/flowent-gateway/webhooks"
)

var (
	receiverKey  string
	receiverPort string
	receiverTLS  [2]string
)

var receiverCmd = &cobra.Command{
	Use:   "receiver",
	Short: "Run a sample action server that verifies signed gateway requests",
	Long: `Runs an action server exposing send_email, create_user and get_weather.
Each request's signature and timestamp are checked with the tenant HMAC key.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if receiverKey == "" {
			receiverKey = os.Getenv("FLOWENT_HMAC_KEY")
		}
		if receiverKey == "" {
			return errors.New("an HMAC key is required (--key or FLOWENT_HMAC_KEY)")
		}

		receiver := webhooks.CreateReceiver([]byte(receiverKey))
		registerSampleActions(receiver)

		router := mux.NewRouter()
		router.Use(middleware.CorrelationMiddleware)
		router.Use(middleware.LoggingMiddleware(nil))
		router.Use(middleware.RecoveryMiddleware)
		router.Handle("/actions/{name}", receiver).Methods(http.MethodPost)
		router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"status":"healthy","timestamp":%d}`+"\n", time.Now().Unix())
		}).Methods(http.MethodGet)

		server := &http.Server{
			Addr:              ":" + receiverPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			printInfo(fmt.Sprintf("Action server listening on %s", server.Addr))
			if receiverTLS[0] != "" {
				serverErrors <- server.ListenAndServeTLS(receiverTLS[0], receiverTLS[1])
				return
			}
			serverErrors <- server.ListenAndServe()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-quit:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	},
}

func registerSampleActions(r *webhooks.Receiver) {
	r.Handle("send_email", func(_ context.Context, params map[string]interface{}) (string, error) {
		recipient, _ := params["recipient"].(string)
		subject, _ := params["subject"].(string)
		body, _ := params["body"].(string)
		if recipient == "" || subject == "" || body == "" {
			return "", errors.New("missing required parameters: recipient, subject, body")
		}
		return fmt.Sprintf("Email sent successfully to %s", recipient), nil
	})

	r.Handle("create_user", func(_ context.Context, params map[string]interface{}) (string, error) {
		username, _ := params["username"].(string)
		email, _ := params["email"].(string)
		if username == "" || email == "" {
			return "", errors.New("missing required parameters: username, email")
		}
		return fmt.Sprintf("User created successfully with ID: user_%d", time.Now().Unix()), nil
	})

	r.Handle("get_weather", func(_ context.Context, params map[string]interface{}) (string, error) {
		location, _ := params["location"].(string)
		if location == "" {
			return "", errors.New("missing required parameter: location")
		}
		return fmt.Sprintf("Weather in %s: 22°C, Sunny", location), nil
	})
}

func init() {
	rootCmd.AddCommand(receiverCmd)
	receiverCmd.Flags().StringVar(&receiverKey, "key", "", "Tenant HMAC key (defaults to $FLOWENT_HMAC_KEY)")
	receiverCmd.Flags().StringVarP(&receiverPort, "port", "p", "5000", "Port to listen on")
	receiverCmd.Flags().StringVar(&receiverTLS[0], "tls-cert", "", "TLS certificate file")
	receiverCmd.Flags().StringVar(&receiverTLS[1], "tls-key", "", "TLS key file")
}
