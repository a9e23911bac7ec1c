package config

import (
	"strings"
	"testing"
	"time"

	"github.com/kjannette/priceboard-backend/internal/pricefilter"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("FILTER_PROFILE", "")
	t.Setenv("AGGREGATE_TIMEZONE", "")
	t.Setenv("SCRAPER_API_URL", "http://scraper.local:8080/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != 3001 {
		t.Fatalf("expected default port 3001, got %d", cfg.APIPort)
	}
	if cfg.ScraperAPIURL != "http://scraper.local:8080" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.ScraperAPIURL)
	}
	if cfg.FilterParams() != pricefilter.DefaultParams {
		t.Fatal("expected default filter profile")
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", cfg.Location())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FILTER_PROFILE", "strict")
	t.Setenv("AGGREGATE_TIMEZONE", "Europe/Amsterdam")
	t.Setenv("SUBTYPE_PAIRS", "yes")
	t.Setenv("DB_PORT", "6543")

	cfg, _ := Load()
	if cfg.FilterParams() != pricefilter.StrictParams {
		t.Fatal("expected strict filter profile")
	}
	if cfg.Location().String() != "Europe/Amsterdam" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
	if !cfg.SubtypePairs {
		t.Fatal("SUBTYPE_PAIRS=yes should enable pairs")
	}
	if cfg.DBPort != 6543 {
		t.Fatalf("DB_PORT: got %d", cfg.DBPort)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		DBUser:            "postgres",
		APIPort:           3001,
		FilterProfile:     "default",
		AggregateTimezone: "UTC",
	}
	warnings, err := cfg.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d: %v", len(warnings), warnings)
	}

	cfg.DBUser = ""
	cfg.FilterProfile = "loose"
	cfg.AggregateTimezone = "Mars/Olympus"
	_, err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DB_USER", "loose", "Mars/Olympus"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error should mention %s: %v", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 5432, DBName: "n"}
	if got := cfg.DSN(); got != "postgres://u:p@h:5432/n?sslmode=disable" {
		t.Fatalf("DSN: %s", got)
	}
}
