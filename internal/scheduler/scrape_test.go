package scheduler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/priceboard-backend/internal/scheduler"
	"github.com/kjannette/priceboard-backend/internal/scraper"
)

type fakeScraper struct {
	up      atomic.Bool
	scrapes atomic.Int32
	err     error
}

func (f *fakeScraper) Status(ctx context.Context) bool { return f.up.Load() }

func (f *fakeScraper) ScrapeAll(ctx context.Context) (json.RawMessage, error) {
	f.scrapes.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Send(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestScrapeScheduler_StatusTransitions(t *testing.T) {
	fs := &fakeScraper{}
	rec := &recorder{}
	var changes []bool
	sched := scheduler.NewScrapeScheduler(fs, rec, scheduler.ScrapeSchedulerConfig{
		OnStatusChange: func(up bool) { changes = append(changes, up) },
	}, zerolog.Nop())
	ctx := context.Background()

	if sched.LastStatus() != nil {
		t.Fatal("expected no status before first check")
	}

	// down on first check is announced
	if sched.CheckStatus(ctx) {
		t.Fatal("expected down")
	}
	// still down: silent
	sched.CheckStatus(ctx)
	// back up
	fs.up.Store(true)
	if !sched.CheckStatus(ctx) {
		t.Fatal("expected up")
	}
	// still up: silent
	sched.CheckStatus(ctx)

	msgs := rec.all()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %v", len(msgs), msgs)
	}
	if msgs[0] != "Scraper backend is unreachable" || msgs[1] != "Scraper backend is back online" {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
	if len(changes) != 2 || changes[0] || !changes[1] {
		t.Fatalf("unexpected status changes: %v", changes)
	}
	if st := sched.LastStatus(); st == nil || !st.Up {
		t.Fatalf("LastStatus: %+v", st)
	}
}

func TestScrapeScheduler_UpOnFirstCheckIsSilent(t *testing.T) {
	fs := &fakeScraper{}
	fs.up.Store(true)
	rec := &recorder{}
	sched := scheduler.NewScrapeScheduler(fs, rec, scheduler.ScrapeSchedulerConfig{}, zerolog.Nop())

	sched.CheckStatus(context.Background())
	if n := len(rec.all()); n != 0 {
		t.Fatalf("expected no notification, got %d", n)
	}
}

func TestScrapeScheduler_RunNow(t *testing.T) {
	fs := &fakeScraper{}
	rec := &recorder{}
	sched := scheduler.NewScrapeScheduler(fs, rec, scheduler.ScrapeSchedulerConfig{}, zerolog.Nop())

	run, err := sched.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if run == nil || run.Error != "" || string(run.Result) != `{"ok":true}` {
		t.Fatalf("unexpected run: %+v", run)
	}
	if last := sched.LastRun(); last == nil || !last.At.Equal(run.At) {
		t.Fatalf("last run %+v does not match returned run %+v", last, run)
	}
	if len(rec.all()) != 0 {
		t.Fatal("successful run should not notify")
	}

	fs.err = errors.New("backend busy")
	run, err = sched.RunNow(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if run == nil || run.Error != "backend busy" {
		t.Fatalf("run error: %+v", run)
	}
	if last := sched.LastRun(); last.Error != "backend busy" {
		t.Fatalf("last run error: %q", last.Error)
	}
	if msgs := rec.all(); len(msgs) != 1 || msgs[0] != "Scrape-all failed: backend busy" {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
}

func TestScrapeScheduler_StartStop(t *testing.T) {
	fs := &fakeScraper{}
	fs.up.Store(true)
	sched := scheduler.NewScrapeScheduler(fs, &recorder{}, scheduler.ScrapeSchedulerConfig{
		StatusInterval: 20 * time.Millisecond,
		ScrapeInterval: 20 * time.Millisecond,
	}, zerolog.Nop())

	sched.Start()
	sched.Start() // second start is a no-op
	if !sched.Running() {
		t.Fatal("expected running after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for fs.scrapes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fs.scrapes.Load() == 0 {
		t.Fatal("expected at least one scheduled scrape-all")
	}

	sched.Stop()
	if sched.Running() {
		t.Fatal("expected not running after Stop")
	}
	sched.Stop()
}

func TestScrapeScheduler_WithScraperClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			w.WriteHeader(http.StatusOK)
		case "/scrape-all":
			w.Write([]byte(`{"queued":12}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := scraper.NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	sched := scheduler.NewScrapeScheduler(client, &recorder{}, scheduler.ScrapeSchedulerConfig{}, zerolog.Nop())

	if !sched.CheckStatus(context.Background()) {
		t.Fatal("expected backend up")
	}
	run, err := sched.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if got := string(run.Result); got != `{"queued":12}` {
		t.Fatalf("result: %s", got)
	}
}

func TestScrapeScheduler_FailedTriggerIsSentOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/scrape-all" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := scraper.NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	rec := &recorder{}
	sched := scheduler.NewScrapeScheduler(client, rec, scheduler.ScrapeSchedulerConfig{}, zerolog.Nop())

	run, err := sched.RunNow(context.Background())
	if err == nil {
		t.Fatal("expected error from 502")
	}
	if run == nil || run.Error == "" {
		t.Fatalf("expected failed run record, got %+v", run)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected exactly one scrape-all request, got %d", n)
	}
	if len(rec.all()) != 1 {
		t.Fatalf("expected one failure notification, got %v", rec.all())
	}
}
