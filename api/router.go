package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssefsiam38/flowent-gateway/middleware"
	"github.com/youssefsiam38/flowent-gateway/monitoring"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

const DefaultPathPrefix = "/api/v1/gateway"

type RouterConfig struct {
	PathPrefix     string
	AllowedOrigins []string
	MaxBodyBytes   int64

	Tokens  *TokenHandler
	Actions *ActionHandler
	Health  *HealthHandler
	Auth    *middleware.AuthMiddleware
	Metrics *monitoring.Metrics
}

// CreateRouter mounts the gateway API under the path prefix and the
// operational endpoints at the root.
func CreateRouter(cfg RouterConfig) *mux.Router {
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: utils.ErrInvalidRequest.WithDetails("route not found")})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: utils.ErrInvalidRequest.WithDetails("method not allowed")})
	})

	router.Use(middleware.CorrelationMiddleware)
	router.Use(middleware.LoggingMiddleware(cfg.Metrics))
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.HeadersMiddleware)
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	if cfg.Health != nil {
		router.HandleFunc("/health", cfg.Health.HandleHealth).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	apiRouter := router.PathPrefix(prefix).Subrouter()
	apiRouter.Use(middleware.BodyLimitMiddleware(cfg.MaxBodyBytes))

	apiRouter.HandleFunc("/token/exchange", cfg.Tokens.HandleExchange).Methods(http.MethodPost, http.MethodOptions)

	actionRouter := apiRouter.PathPrefix("/actions").Subrouter()
	actionRouter.Use(cfg.Auth.JWTMiddleware)
	actionRouter.Use(cfg.Auth.RateLimitMiddleware)

	actionRouter.HandleFunc("", cfg.Actions.HandleCreate).Methods(http.MethodPost, http.MethodOptions)
	actionRouter.HandleFunc("", cfg.Actions.HandleList).Methods(http.MethodGet)
	actionRouter.HandleFunc("/{name}", cfg.Actions.HandleGet).Methods(http.MethodGet, http.MethodOptions)
	actionRouter.HandleFunc("/{name}", cfg.Actions.HandleUpdate).Methods(http.MethodPut)
	actionRouter.HandleFunc("/{name}", cfg.Actions.HandleDelete).Methods(http.MethodDelete)
	actionRouter.HandleFunc("/{name}/invoke", cfg.Actions.HandleInvoke).Methods(http.MethodPost, http.MethodOptions)

	return router
}
