package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SHERPA_SERVER_URL", "VITE_SERVER_URL", "SHERPA_PORT", "LOG_LEVEL",
		"SHERPA_LOG_FILE", "NATS_URL", "NATS_TOKEN", "SHERPA_GATEWAY_TIMEOUT", "SHERPA_SESSION_IDLE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	// Point at a file that does not exist so a stray .env in the package dir is ignored.
	t.Setenv("SHERPA_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.ServerURL != "" {
		t.Errorf("expected empty default server url, got %s", cfg.ServerURL)
	}
	if cfg.Port != 8760 {
		t.Errorf("expected default port 8760, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		t.Errorf("expected empty default log file, got %s", cfg.LogFile)
	}
	if cfg.NatsURL != "" {
		t.Errorf("expected empty default nats url, got %s", cfg.NatsURL)
	}
	if cfg.GatewayTimeout != 0 {
		t.Errorf("expected no gateway timeout by default, got %s", cfg.GatewayTimeout)
	}
	if cfg.SessionIdle != 30*time.Minute {
		t.Errorf("expected 30m session idle timeout by default, got %s", cfg.SessionIdle)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHERPA_SERVER_URL", "http://backend:3000")
	t.Setenv("SHERPA_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHERPA_LOG_FILE", "/tmp/sherpa.log")
	t.Setenv("NATS_URL", "nats://custom:4222")
	t.Setenv("NATS_TOKEN", "s3cr3t-token")
	t.Setenv("SHERPA_GATEWAY_TIMEOUT", "30")
	t.Setenv("SHERPA_SESSION_IDLE_TIMEOUT", "0")

	cfg := Load()

	if cfg.ServerURL != "http://backend:3000" {
		t.Errorf("expected custom server url, got %s", cfg.ServerURL)
	}
	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.LogFile != "/tmp/sherpa.log" {
		t.Errorf("expected custom log file, got %s", cfg.LogFile)
	}
	if cfg.NatsURL != "nats://custom:4222" {
		t.Errorf("expected custom nats url, got %s", cfg.NatsURL)
	}
	if cfg.NatsToken != "s3cr3t-token" {
		t.Errorf("expected custom nats token, got %s", cfg.NatsToken)
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Errorf("expected 30s gateway timeout, got %s", cfg.GatewayTimeout)
	}
	if cfg.SessionIdle != 0 {
		t.Errorf("expected session eviction disabled, got %s", cfg.SessionIdle)
	}
}

func TestLoad_ViteFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("VITE_SERVER_URL", "http://vite:5000")

	cfg := Load()

	if cfg.ServerURL != "http://vite:5000" {
		t.Errorf("expected VITE_SERVER_URL fallback, got %s", cfg.ServerURL)
	}

	t.Setenv("SHERPA_SERVER_URL", "http://preferred:3000")
	cfg = Load()
	if cfg.ServerURL != "http://preferred:3000" {
		t.Errorf("expected SHERPA_SERVER_URL to win, got %s", cfg.ServerURL)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHERPA_PORT", "notanumber")

	cfg := Load()

	if cfg.Port != 8760 {
		t.Errorf("expected default port on invalid value, got %d", cfg.Port)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv sets process env directly; make sure t.Setenv restores it.
	t.Setenv("SHERPA_SERVER_URL", "")
	os.Unsetenv("SHERPA_SERVER_URL")
	t.Setenv("SHERPA_PORT", "")
	os.Unsetenv("SHERPA_PORT")

	path := filepath.Join(t.TempDir(), "sherpa.env")
	content := "SHERPA_SERVER_URL=http://from-file:8080\nSHERPA_PORT=7000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SHERPA_ENV_FILE", path)

	cfg := Load()

	if cfg.ServerURL != "http://from-file:8080" {
		t.Errorf("expected server url from env file, got %s", cfg.ServerURL)
	}
	if cfg.Port != 7000 {
		t.Errorf("expected port from env file, got %d", cfg.Port)
	}
}
