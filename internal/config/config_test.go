package config

import (
	"strings"
	"testing"
	"time"

	"github.com/Kuebic/songbook-offline/internal/constants"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != constants.DefaultPort {
		t.Errorf("Expected default port %s, got %s", constants.DefaultPort, cfg.Port)
	}
	if cfg.DBPath != constants.DefaultDBPath {
		t.Errorf("Expected default db path %s, got %s", constants.DefaultDBPath, cfg.DBPath)
	}
	if cfg.QuotaBytes != constants.DefaultQuotaBytes {
		t.Errorf("Expected default quota %d, got %d", constants.DefaultQuotaBytes, cfg.QuotaBytes)
	}
	if cfg.MaxRetries != constants.DefaultMaxRetries {
		t.Errorf("Expected default max retries %d, got %d", constants.DefaultMaxRetries, cfg.MaxRetries)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("Unexpected logging defaults: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default configuration should validate, got: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("QUOTA_BYTES", "1048576")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("PROBE_INTERVAL", "10s")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.QuotaBytes != 1048576 {
		t.Errorf("Expected quota 1048576, got %d", cfg.QuotaBytes)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("Expected max retries 5, got %d", cfg.MaxRetries)
	}
	if cfg.ProbeInterval != 10*time.Second {
		t.Errorf("Expected probe interval 10s, got %s", cfg.ProbeInterval)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected json log format, got %s", cfg.LogFormat)
	}
}

func TestLoad_MalformedEnvFallsBack(t *testing.T) {
	t.Setenv("QUOTA_BYTES", "lots")
	t.Setenv("PROBE_INTERVAL", "soon")

	cfg := Load()
	if cfg.QuotaBytes != constants.DefaultQuotaBytes {
		t.Errorf("Expected fallback quota, got %d", cfg.QuotaBytes)
	}
	if cfg.ProbeInterval != constants.DefaultProbeInterval {
		t.Errorf("Expected fallback probe interval, got %s", cfg.ProbeInterval)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Port:          "not-a-port",
		DBPath:        "",
		RemoteURL:     "",
		UserID:        "",
		QuotaBytes:    -1,
		MaxRetries:    0,
		ProbeInterval: time.Millisecond,
		LogLevel:      "loud",
		LogFormat:     "xml",
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation to fail")
	}
	msg := err.Error()
	for _, want := range []string{"PORT", "DB_PATH", "REMOTE_URL", "USER_ID", "QUOTA_BYTES", "MAX_RETRIES", "PROBE_INTERVAL", "LOG_LEVEL", "LOG_FORMAT"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected error to mention %s: %s", want, msg)
		}
	}
}

func TestValidate_PortRange(t *testing.T) {
	cfg := Load()
	cfg.Port = "70000"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "between 1 and 65535") {
		t.Errorf("Expected port range error, got: %v", err)
	}
}
