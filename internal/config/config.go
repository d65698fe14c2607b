// Package config loads settings from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	APIURL                string
	APIToken              string
	User                  string
	RetryMax              int
	RetryBaseDelay        time.Duration
	RateLimit             float64
	HTTPTimeout           time.Duration
	Currency              string
	DatabaseURL           string
	HTTPPort              string
	AdminAPIKey           string
	ExportInterval        time.Duration
	ExportPath            string
	GoogleSheetsID        string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		APIURL:                envOrDefaultWarn("FOLIO_API_URL", ""),
		APIToken:              envOrDefault("FOLIO_API_TOKEN", ""),
		User:                  envOrDefault("FOLIO_USER", ""),
		RetryMax:              envOrDefaultInt("FOLIO_RETRY_MAX", 3),
		RetryBaseDelay:        envOrDefaultDuration("FOLIO_RETRY_BASE_DELAY", 500*time.Millisecond),
		RateLimit:             envOrDefaultFloat("FOLIO_RATE_LIMIT", 0),
		HTTPTimeout:           envOrDefaultDuration("FOLIO_HTTP_TIMEOUT", 30*time.Second),
		Currency:              envOrDefault("FOLIO_CURRENCY", "INR"),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		ExportInterval:        envOrDefaultDuration("EXPORT_INTERVAL", 24*time.Hour),
		ExportPath:            envOrDefault("FOLIO_EXPORT_PATH", ""),
		GoogleSheetsID:        envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// SheetsEnabled reports whether both Google Sheets settings are present.
func (c Config) SheetsEnabled() bool {
	return c.GoogleSheetsID != "" && c.GoogleCredentialsJSON != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
