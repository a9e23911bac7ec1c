package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scraper is the part of the scraping backend client the scheduler drives.
type Scraper interface {
	Status(ctx context.Context) bool
	ScrapeAll(ctx context.Context) (json.RawMessage, error)
}

type Notifier interface {
	Send(msg string)
}

type ScrapeSchedulerConfig struct {
	ScrapeInterval time.Duration // 0 disables the periodic scrape-all
	StatusInterval time.Duration // e.g. 1*time.Minute
	ScrapeTimeout  time.Duration
	OnStatusChange func(up bool)
}

// RunInfo describes the last scrape-all trigger.
type RunInfo struct {
	At       time.Time       `json:"at"`
	Duration time.Duration   `json:"durationNs"`
	Error    string          `json:"error,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// StatusInfo is the last observed backend availability.
type StatusInfo struct {
	Up        bool      `json:"up"`
	CheckedAt time.Time `json:"checkedAt"`
}

// ScrapeScheduler polls the scraping backend status and periodically asks
// it to rescrape the whole catalog. Status transitions and failed runs are
// announced through the notifier.
type ScrapeScheduler struct {
	scraper  Scraper
	notifier Notifier
	cfg      ScrapeSchedulerConfig
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	status  *StatusInfo
	lastRun *RunInfo
}

func NewScrapeScheduler(scraper Scraper, notifier Notifier, cfg ScrapeSchedulerConfig, log zerolog.Logger) *ScrapeScheduler {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 1 * time.Minute
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = 10 * time.Minute
	}
	return &ScrapeScheduler{
		scraper:  scraper,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

func (s *ScrapeScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	// Initial status check on startup (fire-and-forget)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.CheckStatus(ctx)
	}()

	go s.loop(stop, s.cfg.StatusInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.CheckStatus(ctx)
	})

	if s.cfg.ScrapeInterval > 0 {
		go s.loop(stop, s.cfg.ScrapeInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ScrapeTimeout)
			defer cancel()
			if _, err := s.RunNow(ctx); err != nil {
				s.log.Error().Err(err).Msg("scheduled scrape-all failed")
			}
		})
	}

	s.log.Info().
		Dur("status_interval", s.cfg.StatusInterval).
		Dur("scrape_interval", s.cfg.ScrapeInterval).
		Msg("started")
}

func (s *ScrapeScheduler) loop(stop <-chan struct{}, every time.Duration, tick func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tick()
		}
	}
}

func (s *ScrapeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.log.Info().Msg("stopped")
}

func (s *ScrapeScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CheckStatus polls the backend and records the result. The notifier hears
// about every up/down transition and about a backend that is down on the
// first check.
func (s *ScrapeScheduler) CheckStatus(ctx context.Context) bool {
	up := s.scraper.Status(ctx)

	s.mu.Lock()
	prev := s.status
	s.status = &StatusInfo{Up: up, CheckedAt: time.Now().UTC()}
	s.mu.Unlock()

	changed := (prev == nil && !up) || (prev != nil && prev.Up != up)
	if !changed {
		return up
	}

	if up {
		s.log.Info().Msg("scraper backend reachable")
		s.notify("Scraper backend is back online")
	} else {
		s.log.Warn().Msg("scraper backend unreachable")
		s.notify("Scraper backend is unreachable")
	}
	if s.cfg.OnStatusChange != nil {
		s.cfg.OnStatusChange(up)
	}
	return up
}

// RunNow triggers a scrape-all outside the normal schedule and returns the
// record of this run. The record is also returned when the run failed.
func (s *ScrapeScheduler) RunNow(ctx context.Context) (*RunInfo, error) {
	s.log.Info().Msg("scrape-all triggered")
	start := time.Now()
	result, err := s.scraper.ScrapeAll(ctx)

	info := &RunInfo{At: start.UTC(), Duration: time.Since(start), Result: result}
	if err != nil {
		info.Error = err.Error()
	}
	s.mu.Lock()
	s.lastRun = info
	s.mu.Unlock()

	run := *info
	if err != nil {
		s.notify(fmt.Sprintf("Scrape-all failed: %v", err))
		return &run, fmt.Errorf("scrape all: %w", err)
	}
	s.log.Info().Dur("took", info.Duration).Msg("scrape-all finished")
	return &run, nil
}

// LastStatus returns the most recent status check, or nil before the first.
func (s *ScrapeScheduler) LastStatus() *StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return nil
	}
	st := *s.status
	return &st
}

// LastRun returns the most recent scrape-all, or nil if none ran yet.
func (s *ScrapeScheduler) LastRun() *RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	r := *s.lastRun
	return &r
}

func (s *ScrapeScheduler) notify(msg string) {
	if s.notifier != nil {
		s.notifier.Send(msg)
	}
}
