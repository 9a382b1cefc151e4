/*-------------------------------------------------------------------------
 *
 * config_test.go
 *    Tests for configuration loading
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/config/config_test.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8090 {
		t.Errorf("expected default port 8090, got %d", cfg.Server.Port)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token TTL 24h, got %s", cfg.Auth.TokenTTL)
	}
	if !cfg.Sweeper.Enabled {
		t.Error("expected sweeper enabled by default")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9000
  base_url: https://docflow.example.com
database:
  host: db.internal
  max_open_conns: 50
logging:
  level: debug
auth:
  jwt_secret: test-secret
sweeper:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "https://docflow.example.com" {
		t.Errorf("unexpected base URL: %s", cfg.Server.BaseURL)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("unexpected database host: %s", cfg.Database.Host)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("expected max open conns 50, got %d", cfg.Database.MaxOpenConns)
	}

	/* Fields absent from the file keep their defaults */
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default database port, got %d", cfg.Database.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("unexpected JWT secret: %s", cfg.Auth.JWTSecret)
	}
	if cfg.Sweeper.Enabled {
		t.Error("expected sweeper disabled")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("SERVER_PORT", "7777")
	t.Setenv("SWEEPER_ENABLED", "false")
	t.Setenv("WEBHOOK_TIMEOUT", "45s")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Database.Host != "env-host" {
		t.Errorf("expected env database host, got %s", cfg.Database.Host)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Sweeper.Enabled {
		t.Error("expected sweeper disabled via env")
	}
	if cfg.Notifications.WebhookTimeout != 45*time.Second {
		t.Errorf("expected webhook timeout 45s, got %s", cfg.Notifications.WebhookTimeout)
	}
}

func TestLoadFromEnvInvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("DB_CONN_MAX_LIFETIME", "bogus")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Server.Port != 8090 {
		t.Errorf("expected default port on bad env value, got %d", cfg.Server.Port)
	}
	if cfg.Database.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("expected default conn lifetime, got %s", cfg.Database.ConnMaxLifetime)
	}
}

func TestDSN(t *testing.T) {
	cfg := DefaultConfig()
	dsn := cfg.Database.DSN()

	expected := "host=localhost port=5432 user=docflow password=docflow dbname=docflow sslmode=disable"
	if dsn != expected {
		t.Errorf("unexpected DSN: %s", dsn)
	}
}
