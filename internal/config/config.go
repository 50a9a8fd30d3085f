// Package config loads the BoostedCalls server configuration from a YAML
// file plus environment variables, with .env support for local development.
package config

import (
	"fmt"
	"time"

	"github.com/boostedcalls/boostedcalls/internal/auth"
	"github.com/boostedcalls/boostedcalls/internal/httpserver"
	"github.com/boostedcalls/boostedcalls/internal/logger"
	"github.com/boostedcalls/boostedcalls/internal/observability"
	"github.com/boostedcalls/boostedcalls/internal/upstream"
)

// WebhookConfig configures the revalidation webhook endpoint.
type WebhookConfig struct {
	// Secret is the shared secret backends must present as a bearer token.
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// StreamConfig configures the event stream endpoint.
type StreamConfig struct {
	// KeepAliveInterval is the gap between keep-alive comments. Defaults to 30s.
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval" mapstructure:"keep_alive_interval"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *StreamConfig) ApplyDefaults() {
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = 30 * time.Second
	}
}

// CacheConfig configures the rendered-view cache.
type CacheConfig struct {
	// ViewTTL bounds how long a cached view stays fresh without an
	// explicit invalidation. Defaults to 5m.
	ViewTTL time.Duration `yaml:"view_ttl" mapstructure:"view_ttl"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *CacheConfig) ApplyDefaults() {
	if c.ViewTTL <= 0 {
		c.ViewTTL = 5 * time.Minute
	}
}

// Config is the root configuration for the server.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Server        httpserver.Config    `yaml:"server" mapstructure:"server"`
	Upstream      upstream.Config      `yaml:"upstream" mapstructure:"upstream"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	Webhook       WebhookConfig        `yaml:"webhook" mapstructure:"webhook"`
	Stream        StreamConfig         `yaml:"stream" mapstructure:"stream"`
	Cache         CacheConfig          `yaml:"cache" mapstructure:"cache"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to all sections.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "boostedcalls"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Upstream.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates all sections.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	ok := false
	for _, v := range validEnvs {
		if c.Environment == v {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Upstream.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("webhook.secret is required")
	}
	return nil
}
