package config

import (
	"fmt"
)

const minSecretLength = 16

func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis config: %w", err)
		}
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("security config: %w", err)
	}

	if err := c.Webhooks.Validate(); err != nil {
		return fmt.Errorf("webhooks config: %w", err)
	}

	if c.IsProduction() {
		if c.Webhooks.AllowInsecure {
			return fmt.Errorf("webhooks config: allow_insecure cannot be enabled in production")
		}
		if c.Database.Driver == "memory" {
			return fmt.Errorf("database config: memory driver cannot be used in production")
		}
	}

	return nil
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "memory":
		return nil
	case "postgres":
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}

	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.PathPrefix == "" || c.PathPrefix[0] != '/' {
		return fmt.Errorf("path prefix must start with /")
	}
	return nil
}

func (c *RedisConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("jwt secret must be at least %d characters - set GATEWAY_SECURITY_JWT_SECRET", minSecretLength)
	}
	if len(c.EncryptionKey) < minSecretLength {
		return fmt.Errorf("encryption key must be at least %d characters - set GATEWAY_SECURITY_ENCRYPTION_KEY", minSecretLength)
	}
	if c.JWTSecret == c.EncryptionKey {
		return fmt.Errorf("jwt secret and encryption key must differ")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

func (c *WebhooksConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxPayloadBytes <= 0 || c.MaxResponseBytes <= 0 {
		return fmt.Errorf("payload limits must be positive")
	}
	if c.MaxActionsPerTenant <= 0 {
		return fmt.Errorf("max actions per tenant must be positive")
	}
	return nil
}
