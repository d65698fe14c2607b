package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might affect defaults
	for _, key := range []string{
		"FOLIO_API_URL", "FOLIO_API_TOKEN", "FOLIO_RETRY_MAX", "FOLIO_RETRY_BASE_DELAY",
		"FOLIO_RATE_LIMIT", "FOLIO_CURRENCY", "DATABASE_URL", "HTTP_PORT", "EXPORT_INTERVAL",
		"GOOGLE_SHEETS_ID", "GOOGLE_CREDENTIALS_JSON",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.APIURL != "" {
		t.Errorf("APIURL = %q, want empty", cfg.APIURL)
	}
	if cfg.RetryMax != 3 {
		t.Errorf("RetryMax = %d, want 3", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 500ms", cfg.RetryBaseDelay)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want 0", cfg.RateLimit)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", cfg.Currency)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.ExportInterval != 24*time.Hour {
		t.Errorf("ExportInterval = %v, want 24h", cfg.ExportInterval)
	}
	if cfg.SheetsEnabled() {
		t.Error("SheetsEnabled = true without credentials")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FOLIO_API_URL", "https://folio.example.com/api")
	t.Setenv("FOLIO_API_TOKEN", "tok")
	t.Setenv("FOLIO_RETRY_MAX", "5")
	t.Setenv("FOLIO_RETRY_BASE_DELAY", "2s")
	t.Setenv("FOLIO_RATE_LIMIT", "2.5")
	t.Setenv("FOLIO_CURRENCY", "USD")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("GOOGLE_SHEETS_ID", "sheet")
	t.Setenv("GOOGLE_CREDENTIALS_JSON", "{}")

	cfg := Load()

	if cfg.APIURL != "https://folio.example.com/api" {
		t.Errorf("APIURL = %q, want override", cfg.APIURL)
	}
	if cfg.APIToken != "tok" {
		t.Errorf("APIToken = %q, want override", cfg.APIToken)
	}
	if cfg.RetryMax != 5 {
		t.Errorf("RetryMax = %d, want 5", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay != 2*time.Second {
		t.Errorf("RetryBaseDelay = %v, want 2s", cfg.RetryBaseDelay)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.RateLimit)
	}
	if cfg.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", cfg.Currency)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if !cfg.SheetsEnabled() {
		t.Error("SheetsEnabled = false with both settings present")
	}
}

func TestLoadInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("FOLIO_RETRY_MAX", "not-a-number")
	t.Setenv("FOLIO_RETRY_BASE_DELAY", "invalid-duration")
	t.Setenv("FOLIO_RATE_LIMIT", "-1")

	cfg := Load()

	if cfg.RetryMax != 3 {
		t.Errorf("RetryMax = %d, want default 3 on invalid input", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want default 500ms on invalid input", cfg.RetryBaseDelay)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want default 0 on negative input", cfg.RateLimit)
	}
}

func TestLoadNonPositiveDurationFallsBackToDefault(t *testing.T) {
	for _, v := range []string{"0s", "-5m"} {
		t.Setenv("EXPORT_INTERVAL", v)
		if got := Load().ExportInterval; got != 24*time.Hour {
			t.Errorf("EXPORT_INTERVAL=%s: ExportInterval = %v, want default 24h", v, got)
		}
	}
}
