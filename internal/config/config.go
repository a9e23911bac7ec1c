package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kjannette/priceboard-backend/internal/pricefilter"
)

type Config struct {
	// Secrets (from .env)
	APIKey          string
	CORSAllowOrigin string
	WebhookURL      string
	BotName         string

	// API
	APIPort int

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Scraping backend
	ScraperAPIURL         string
	ScraperTimeoutSeconds int

	// Price visualization
	FilterProfile     string
	AggregateTimezone string
	SubtypePairs      bool

	// Timing
	ScrapeAllIntervalHours     int
	StatusCheckIntervalSeconds int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "PriceBoard"),

		// API
		APIPort: envInt("API_PORT", 3001),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "priceboard"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Scraping backend
		ScraperAPIURL:         strings.TrimRight(envStr("SCRAPER_API_URL", ""), "/"),
		ScraperTimeoutSeconds: envInt("SCRAPER_TIMEOUT_SECONDS", 120),

		// Price visualization
		FilterProfile:     envStr("FILTER_PROFILE", pricefilter.ProfileDefault),
		AggregateTimezone: envStr("AGGREGATE_TIMEZONE", "UTC"),
		SubtypePairs:      envBool("SUBTYPE_PAIRS", false),

		// Timing
		ScrapeAllIntervalHours:     envInt("SCRAPE_ALL_INTERVAL_HOURS", 0),
		StatusCheckIntervalSeconds: envInt("STATUS_CHECK_INTERVAL_SECONDS", 60),

		// Logging
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

// Validate returns hard errors joined together and the list of soft
// warnings the caller should log.
func (c *Config) Validate() (warnings []string, err error) {
	var errs []string

	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if _, perr := pricefilter.Profile(c.FilterProfile); perr != nil {
		errs = append(errs, perr.Error())
	}
	if _, lerr := time.LoadLocation(c.AggregateTimezone); lerr != nil {
		errs = append(errs, fmt.Sprintf("AGGREGATE_TIMEZONE %q: %v", c.AggregateTimezone, lerr))
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d out of range", c.APIPort))
	}

	if c.ScraperAPIURL == "" {
		warnings = append(warnings, "SCRAPER_API_URL not set: scraper endpoints will report the backend as offline")
	}
	if c.APIKey == "" {
		warnings = append(warnings, "API_KEY not set: REST API has no authentication")
	}
	if c.ScrapeAllIntervalHours == 0 {
		warnings = append(warnings, "SCRAPE_ALL_INTERVAL_HOURS is 0: periodic scrape-all disabled")
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return warnings, nil
}

// FilterParams resolves the configured anomaly-filter profile.
func (c *Config) FilterParams() pricefilter.Params {
	p, err := pricefilter.Profile(c.FilterProfile)
	if err != nil {
		return pricefilter.DefaultParams
	}
	return p
}

// Location resolves the configured day-bucketing time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AggregateTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Print() {
	fmt.Println("=== PriceBoard Configuration ===")
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("Database: %s@%s:%d/%s\n", c.DBUser, c.DBHost, c.DBPort, c.DBName)
	fmt.Println("--------------------------------------")
	fmt.Printf("Scraper Backend: %s\n", boolLabel(c.ScraperAPIURL != "", c.ScraperAPIURL, "not set"))
	fmt.Printf("Scrape-all Interval: %s\n", boolLabel(c.ScrapeAllIntervalHours > 0, fmt.Sprintf("every %d hours", c.ScrapeAllIntervalHours), "disabled"))
	fmt.Printf("Status Check: every %ds\n", c.StatusCheckIntervalSeconds)
	fmt.Println("--------------------------------------")
	fmt.Println("Price Visualization:")
	fmt.Printf("  Filter Profile: %s\n", c.FilterProfile)
	fmt.Printf("  Day Time Zone: %s\n", c.AggregateTimezone)
	fmt.Printf("  Subtype Pairs: %v\n", c.SubtypePairs)
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Printf("API Auth: %s\n", boolLabel(c.APIKey != "", "enabled", "disabled"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
