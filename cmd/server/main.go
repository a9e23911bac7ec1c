package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/priceboard-backend/internal/aggregate"
	"github.com/kjannette/priceboard-backend/internal/api"
	"github.com/kjannette/priceboard-backend/internal/config"
	"github.com/kjannette/priceboard-backend/internal/db"
	"github.com/kjannette/priceboard-backend/internal/logging"
	"github.com/kjannette/priceboard-backend/internal/notifications"
	"github.com/kjannette/priceboard-backend/internal/repository"
	"github.com/kjannette/priceboard-backend/internal/scheduler"
	"github.com/kjannette/priceboard-backend/internal/scraper"
)

const banner = `
╔══════════════════════════════════════╗
║        PriceBoard Backend v0.3       ║
║                                      ║
╚══════════════════════════════════════╝
`

// Scrape-all proxies can take minutes; the write timeout has to cover them.
const apiWriteTimeout = 3 * time.Minute

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	cfg.Print()

	// Database
	dbLog := logging.Component(log, "DB")
	dbLog.Info().Str("host", cfg.DBHost).Int("port", cfg.DBPort).Str("name", cfg.DBName).Msg("connecting")
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		dbLog.Fatal().Err(err).Msg("connection failed")
	}
	defer func() {
		pool.Close()
		dbLog.Info().Msg("connection pool closed")
	}()

	if err := db.TestConnection(pool, dbLog); err != nil {
		dbLog.Fatal().Err(err).Msg("test query failed")
	}

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, pool)
	cancelMigrate()
	if err != nil {
		dbLog.Fatal().Err(err).Msg("schema migration failed")
	}

	// Repos
	productRepo := repository.NewProductRepo(pool)
	discountRepo := repository.NewDiscountRepo(pool)
	clickRepo := repository.NewClickRepo(pool)
	favoritesRepo := repository.NewFavoritesRepo(pool)

	// Scraping backend and notifications
	scraperClient := scraper.NewClient(
		cfg.ScraperAPIURL,
		time.Duration(cfg.ScraperTimeoutSeconds)*time.Second,
		logging.Component(log, "SCRAPER"),
	)
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName, logging.Component(log, "NOTIFY"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Scrape scheduler
	sched := scheduler.NewScrapeScheduler(scraperClient, notify, scheduler.ScrapeSchedulerConfig{
		ScrapeInterval: time.Duration(cfg.ScrapeAllIntervalHours) * time.Hour,
		StatusInterval: time.Duration(cfg.StatusCheckIntervalSeconds) * time.Second,
	}, logging.Component(log, "SCHEDULER"))
	if scraperClient.Configured() {
		sched.Start()
	} else {
		log.Warn().Msg("scheduler skipped: no scraper backend configured")
	}

	// 2. API server
	apiLog := logging.Component(log, "API")
	srv := api.NewServer(api.Deps{
		DB:        pool,
		Products:  productRepo,
		Discounts: discountRepo,
		Clicks:    clickRepo,
		Favorites: favoritesRepo,
		Scraper:   scraperClient,
		Runner:    sched,
		Aggregate: aggregate.Options{
			Filter:   cfg.FilterParams(),
			Labels:   aggregate.LabelOptions{SubtypePairs: cfg.SubtypePairs},
			Location: cfg.Location(),
		},
		Log: apiLog,
	}, api.Options{
		Port:         cfg.APIPort,
		APIKey:       cfg.APIKey,
		CORSOrigin:   cfg.CORSAllowOrigin,
		WriteTimeout: apiWriteTimeout,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			apiLog.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().Msg("all services started")

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		apiLog.Error().Err(err).Msg("shutdown error")
	}
	apiLog.Info().Msg("server closed")
	log.Info().Msg("shutdown complete")
}
