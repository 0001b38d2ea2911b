package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("GW_ADMIN_KEY", "secret-from-env")
	t.Setenv("GW_REDIS_ADDR", "redis.internal:6379")

	path := writeConfigFile(t, `
env: production
port: 9090
admin_key: ${GW_ADMIN_KEY}
redis:
  address: ${GW_REDIS_ADDR}
auth:
  approval_threshold: 5
  token_ttl: 12h
rate_limit:
  enabled: true
  requests_per_window: 10
  window: 30s
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.AdminKey != "secret-from-env" {
		t.Fatalf("env expansion failed, got %q", cfg.AdminKey)
	}
	if cfg.Redis.Address != "redis.internal:6379" {
		t.Fatalf("unexpected redis address %q", cfg.Redis.Address)
	}
	if cfg.Port != 9090 || cfg.Env != "production" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Auth.ApprovalThreshold != 5 {
		t.Fatalf("expected threshold 5, got %d", cfg.Auth.ApprovalThreshold)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("expected 12h token TTL, got %v", cfg.Auth.TokenTTL)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerWindow != 10 || cfg.RateLimit.Window != 30*time.Second {
		t.Fatalf("unexpected rate limit config %+v", cfg.RateLimit)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "env: dev\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Auth.RequestTTL != time.Hour {
		t.Fatalf("expected 1h request TTL, got %v", cfg.Auth.RequestTTL)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token TTL, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.PollCounterTTL != cfg.Auth.RequestTTL {
		t.Fatalf("poll counter TTL should track request TTL, got %v", cfg.Auth.PollCounterTTL)
	}
	if cfg.Auth.ApprovalThreshold != 3 {
		t.Fatalf("expected default threshold 3, got %d", cfg.Auth.ApprovalThreshold)
	}
	if cfg.RateLimit.Enabled {
		t.Fatalf("rate limiting should default off")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
