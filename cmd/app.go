package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/youssefsiam38/flowent-gateway/api"
	"github.com/youssefsiam38/flowent-gateway/cache"
	"github.com/youssefsiam38/flowent-gateway/config"
	"github.com/youssefsiam38/flowent-gateway/db"
	"github.com/youssefsiam38/flowent-gateway/middleware"
	"github.com/youssefsiam38/flowent-gateway/monitoring"
	"github.com/youssefsiam38/flowent-gateway/security"
	"github.com/youssefsiam38/flowent-gateway/services"
	"github.com/youssefsiam38/flowent-gateway/stores"
	"github.com/youssefsiam38/flowent-gateway/utils"
	"github.com/youssefsiam38/flowent-gateway/webhooks"
)

// application holds the wired gateway components shared by the commands.
type application struct {
	cfg *config.Config

	db      *gorm.DB
	store   stores.Store
	redis   *cache.RedisCache
	limiter security.TenantRateLimiter
	local   *security.LocalRateLimiter
	metrics *monitoring.Metrics
	health  *monitoring.HealthChecker

	tenants     *services.TenantService
	credentials *services.CredentialService
	tokens      *services.TokenService
	actions     *services.ActionService
	invoker     *webhooks.Invoker
}

func buildApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{
		cfg:    cfg,
		health: monitoring.CreateHealthChecker(),
	}
	if cfg.Monitoring.MetricsEnabled {
		app.metrics = monitoring.CreateMetrics()
	}

	if cfg.UsesMemoryStore() {
		app.store = stores.CreateMemoryStore()
	} else {
		gdb, err := db.Connect(ctx, cfg.GetDatabaseURL(), db.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.MaxLifetime,
			ConnMaxIdleTime: cfg.Database.MaxIdleTime,
			MaxRetries:      cfg.Database.MaxRetries,
			RetryDelay:      cfg.Database.RetryDelay,
			LogQueries:      cfg.Database.LogQueries,
		})
		if err != nil {
			return nil, err
		}
		app.db = gdb
		app.store = stores.CreatePostgresStore(gdb)
	}
	app.health.AddCheck("database", app.store.Ping)

	if cfg.Redis.Enabled {
		redisCache, err := cache.CreateRedisCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = redisCache
		app.limiter = cache.CreateRateLimiter(redisCache, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow)
		app.health.AddCheck("redis", redisCache.Ping)
	} else {
		app.local = security.CreateRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow)
		app.limiter = app.local
	}

	encryption, err := security.CreateEncryptionManager(security.DeriveEncryptionKey(cfg.Security.EncryptionKey))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}
	jwtManager := security.CreateJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.JWTAudience)

	app.tenants = services.CreateTenantService(app.store)
	app.credentials = services.CreateCredentialService(app.store, app.store, encryption)
	app.tokens = services.CreateTokenService(app.credentials, jwtManager, app.metrics)

	app.invoker = webhooks.CreateInvoker(nil, app.credentials,
		webhooks.WithTimeout(cfg.Webhooks.Timeout),
		webhooks.WithLimits(int(cfg.Webhooks.MaxPayloadBytes), cfg.Webhooks.MaxResponseBytes),
		webhooks.WithAllowInsecure(cfg.Webhooks.AllowInsecure),
		webhooks.WithMetrics(app.metrics),
	)
	app.actions = services.CreateActionService(app.store, app.invoker, services.ActionServiceConfig{
		MaxActionsPerTenant: cfg.Webhooks.MaxActionsPerTenant,
		AllowInsecure:       cfg.Webhooks.AllowInsecure,
	}, app.metrics)
	app.invoker.SetActions(app.actions)

	return app, nil
}

func (a *application) router() *mux.Router {
	return api.CreateRouter(api.RouterConfig{
		PathPrefix:     a.cfg.Server.PathPrefix,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		MaxBodyBytes:   a.cfg.Server.MaxBodyBytes,
		Tokens:         api.CreateTokenHandler(a.tokens),
		Actions:        api.CreateActionHandler(a.actions, a.invoker),
		Health:         api.CreateHealthHandler(a.health),
		Auth:           middleware.CreateAuthMiddleware(a.tokens, a.limiter, a.metrics),
		Metrics:        a.metrics,
	})
}

// requirePostgres guards commands whose effects would vanish with an
// in-process store.
func (a *application) requirePostgres() error {
	if a.db == nil {
		return errors.New("this command needs database.driver=postgres; the memory store does not outlive the process")
	}
	return nil
}

func (a *application) Close() {
	if a.local != nil {
		a.local.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			utils.Warn(context.Background(), "Failed to close redis", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.db != nil {
		if err := db.Close(a.db); err != nil {
			utils.Warn(context.Background(), "Failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}
}

// withApplication builds the application for a one-shot command and
// closes it afterwards.
func withApplication(cmd *cobra.Command, fn func(*application) error) error {
	app, err := buildApplication(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
