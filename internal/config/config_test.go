package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: boostedcalls
environment: production
server:
  port: 9090
upstream:
  base_url: http://backend:8000
webhook:
  secret: hook-secret
auth:
  secret: jwt-secret
`)

	var cfg Config
	if err := Load("boostedcalls", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Environment != "production" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "http://backend:8000" {
		t.Errorf("upstream.base_url = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Webhook.Secret != "hook-secret" {
		t.Errorf("webhook.secret = %q", cfg.Webhook.Secret)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
webhook:
  secret: from-file
`)
	t.Setenv("WEBHOOK_SECRET", "from-env")

	var cfg Config
	if err := Load("boostedcalls", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webhook.Secret != "from-env" {
		t.Errorf("webhook.secret = %q, want from-env", cfg.Webhook.Secret)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "UPSTREAM_BASE_URL=http://from-dotenv:8000\n")
	t.Cleanup(func() { _ = os.Unsetenv("UPSTREAM_BASE_URL") })

	var cfg Config
	if err := Load("boostedcalls", &cfg, WithEnvFile(envPath)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Upstream.BaseURL != "http://from-dotenv:8000" {
		t.Errorf("upstream.base_url = %q, want value from .env", cfg.Upstream.BaseURL)
	}
}

func TestLoadFindsShippedConfig(t *testing.T) {
	// The default config ships at cmd/server/config.yml and must be found
	// when the server runs from the module root.
	t.Chdir("../..")
	if _, err := os.Stat("cmd/server/config.yml"); err != nil {
		t.Fatalf("shipped config missing: %v", err)
	}

	var cfg Config
	if err := Load("boostedcalls", &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Upstream.BaseURL == "" {
		t.Error("upstream.base_url empty, shipped config was not loaded")
	}
	if cfg.Name != "boostedcalls" {
		t.Errorf("name = %q, want boostedcalls", cfg.Name)
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Name != "boostedcalls" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if !cfg.Debug {
		t.Error("debug should default to true in development")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Stream.KeepAliveInterval != 30*time.Second {
		t.Errorf("stream.keep_alive_interval = %v, want 30s", cfg.Stream.KeepAliveInterval)
	}
	if cfg.Logging.ServiceName != "boostedcalls" {
		t.Errorf("logging.service_name = %q", cfg.Logging.ServiceName)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	cfg.Upstream.BaseURL = "http://backend:8000"
	cfg.Auth.Secret = "jwt-secret"
	cfg.Webhook.Secret = "hook-secret"

	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.Environment = "qa"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown environment")
	}

	bad = cfg
	bad.Webhook.Secret = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing webhook secret")
	}

	bad = cfg
	bad.Upstream.BaseURL = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing upstream base_url")
	}
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("SERVER_READ_TIMEOUT")
	want := map[string]bool{
		"server_read_timeout": false,
		"server.read.timeout": false,
		"server.read_timeout": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("variant %q missing from %v", k, variants)
		}
	}
}
