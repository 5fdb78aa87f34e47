package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Kuebic/songbook-offline/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port          string
	DBPath        string
	RemoteURL     string
	UserID        string
	QuotaBytes    int64
	MaxRetries    int
	ProbeInterval time.Duration
	SettleDelay   time.Duration
	LogLevel      string
	LogFormat     string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", constants.DefaultPort),
		DBPath:        getEnv("DB_PATH", constants.DefaultDBPath),
		RemoteURL:     getEnv("REMOTE_URL", constants.DefaultRemoteURL),
		UserID:        getEnv("USER_ID", constants.DefaultUserID),
		QuotaBytes:    getEnvInt64("QUOTA_BYTES", constants.DefaultQuotaBytes),
		MaxRetries:    getEnvInt("MAX_RETRIES", constants.DefaultMaxRetries),
		ProbeInterval: getEnvDuration("PROBE_INTERVAL", constants.DefaultProbeInterval),
		SettleDelay:   getEnvDuration("SETTLE_DELAY", constants.DefaultSettleDelay),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.RemoteURL == "" {
		errors = append(errors, "REMOTE_URL cannot be empty")
	} else {
		if _, err := url.Parse(c.RemoteURL); err != nil {
			errors = append(errors, fmt.Sprintf("REMOTE_URL is not a valid URL: %s", c.RemoteURL))
		}
	}

	if c.UserID == "" {
		errors = append(errors, "USER_ID cannot be empty")
	}

	if c.QuotaBytes < 0 {
		errors = append(errors, fmt.Sprintf("QUOTA_BYTES cannot be negative, got: %d", c.QuotaBytes))
	}

	if c.MaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("MAX_RETRIES must be at least 1, got: %d", c.MaxRetries))
	}

	if c.ProbeInterval < time.Second {
		errors = append(errors, fmt.Sprintf("PROBE_INTERVAL must be at least 1s, got: %s", c.ProbeInterval))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
