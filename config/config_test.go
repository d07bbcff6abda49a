package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "environment: development\n"))
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/gateway", cfg.Server.PathPrefix)
	assert.Equal(t, 30*time.Second, cfg.Webhooks.Timeout)
	assert.Equal(t, int64(1<<20), cfg.Webhooks.MaxPayloadBytes)
	assert.Equal(t, 100, cfg.Webhooks.MaxActionsPerTenant)
	assert.Equal(t, 1000, cfg.Security.RateLimitRequests)
	assert.Equal(t, time.Hour, cfg.Security.RateLimitWindow)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.NotEmpty(t, cfg.Security.JWTSecret)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
environment: staging
database:
  driver: postgres
  host: db.internal
  port: 6543
  user: gateway
  dbname: gateway
security:
  jwt_secret: file-jwt-secret-1234567890
  encryption_key: file-encryption-key-1234567890
webhooks:
  timeout: 10s
`)
	t.Setenv("GATEWAY_DATABASE_HOST", "db.from.env")
	t.Setenv("GATEWAY_SERVER_PORT", "9090")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "db.from.env", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Webhooks.Timeout)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "postgres://gateway:@db.from.env:6543/gateway?sslmode=disable", cfg.GetDatabaseURL())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, "environment: development\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }},
		{"shared secrets", func(c *Config) { c.Security.EncryptionKey = c.Security.JWTSecret }},
		{"bad prefix", func(c *Config) { c.Server.PathPrefix = "api" }},
		{"zero timeout", func(c *Config) { c.Webhooks.Timeout = 0 }},
		{"insecure in production", func(c *Config) {
			c.Environment = "production"
			c.Webhooks.AllowInsecure = true
		}},
		{"memory in production", func(c *Config) {
			c.Environment = "production"
			c.Database.Driver = "memory"
		}},
		{"redis without host", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Host = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("memory driver skips database checks", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Driver = "memory"
		cfg.Database.Host = ""
		assert.NoError(t, cfg.Validate())
	})
}
