package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "GATEWAY"

type Config struct {
	Environment string           `mapstructure:"environment"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Server      ServerConfig     `mapstructure:"server"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Security    SecurityConfig   `mapstructure:"security"`
	Webhooks    WebhooksConfig   `mapstructure:"webhooks"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver       string        `mapstructure:"driver"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	MaxIdleTime  time.Duration `mapstructure:"max_idle_time"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	LogQueries   bool          `mapstructure:"log_queries"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	PathPrefix      string        `mapstructure:"path_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type SecurityConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience"`
	EncryptionKey     string        `mapstructure:"encryption_key"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type WebhooksConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxPayloadBytes     int64         `mapstructure:"max_payload_bytes"`
	MaxResponseBytes    int64         `mapstructure:"max_response_bytes"`
	AllowInsecure       bool          `mapstructure:"allow_insecure"`
	MaxActionsPerTenant int           `mapstructure:"max_actions_per_tenant"`
}

type MonitoringConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "flowent_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.max_lifetime", 0)
	v.SetDefault("database.max_idle_time", 0)
	v.SetDefault("database.max_retries", 5)
	v.SetDefault("database.retry_delay", "1s")
	v.SetDefault("database.log_queries", false)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.path_prefix", "/api/v1/gateway")
	v.SetDefault("server.read_timeout", 0)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 0)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 0)

	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_issuer", "flowent-gateway")
	v.SetDefault("security.jwt_audience", "flowent-gateway")
	v.SetDefault("security.encryption_key", "")
	v.SetDefault("security.rate_limit_requests", 1000)
	v.SetDefault("security.rate_limit_window", "1h")

	v.SetDefault("webhooks.timeout", "30s")
	v.SetDefault("webhooks.max_payload_bytes", 1<<20)
	v.SetDefault("webhooks.max_response_bytes", 1<<20)
	v.SetDefault("webhooks.allow_insecure", false)
	v.SetDefault("webhooks.max_actions_per_tenant", 100)

	v.SetDefault("monitoring.log_level", "info")
	v.SetDefault("monitoring.log_format", "json")
	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.tracing_enabled", false)
}

// LoadConfig reads .env, then config.yaml (from path, or from . and
// ./config), then GATEWAY_* environment variables.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.setEnvironmentDefaults()
	return config, nil
}

func (c *Config) setEnvironmentDefaults() {
	switch c.Environment {
	case "production":
		c.setProductionDefaults()
	case "staging":
		c.setStagingDefaults()
	default: // development
		c.setDevelopmentDefaults()
	}
}

func (c *Config) setDevelopmentDefaults() {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Security.JWTSecret == "" {
		c.Security.JWTSecret = "development-jwt-secret-change-me"
	}
	if c.Security.EncryptionKey == "" {
		c.Security.EncryptionKey = "development-encryption-key-change-me"
	}
}

func (c *Config) setStagingDefaults() {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxLifetime == 0 {
		c.Database.MaxLifetime = time.Hour
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Leaves room for a 30s webhook call.
		c.Server.WriteTimeout = 45 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
}

func (c *Config) setProductionDefaults() {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 200
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 50
	}
	if c.Database.MaxLifetime == 0 {
		c.Database.MaxLifetime = time.Hour
	}
	if c.Database.MaxIdleTime == 0 {
		c.Database.MaxIdleTime = 10 * time.Minute
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 45 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
}

func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) UsesMemoryStore() bool {
	return c.Database.Driver == "memory"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsStaging() bool {
	return c.Environment == "staging"
}
