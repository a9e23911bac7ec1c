package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/priceboard-backend/internal/aggregate"
	"github.com/kjannette/priceboard-backend/internal/models"
	"github.com/kjannette/priceboard-backend/internal/repository"
	"github.com/kjannette/priceboard-backend/internal/scheduler"
	"github.com/kjannette/priceboard-backend/internal/scraper"
)

const (
	maxQueryLimit = 1000
	maxBodyBytes  = 1 << 20
	maxImageBytes = 10 << 20
)

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ProductStore interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	AppendPrice(ctx context.Context, id string, pt models.PricePoint) error
	PriceHistory(ctx context.Context, id string) ([]models.PricePoint, error)
	ListWithHistory(ctx context.Context) ([]models.Product, error)
	SetProvisional(ctx context.Context, id string, price *float64) error
	ApproveProvisional(ctx context.Context, id string) (float64, error)
	ListProvisional(ctx context.Context) ([]models.Product, error)
	ListNeedingFix(ctx context.Context) ([]models.Product, error)
	SaveScraper(ctx context.Context, id string, actions []models.ScraperAction) error
}

type DiscountStore interface {
	List(ctx context.Context) ([]models.BrandDiscount, error)
	ApplyToStore(ctx context.Context, d models.BrandDiscount) (int64, error)
	RemoveFromStore(ctx context.Context, brand string) (int64, error)
}

type ClickStore interface {
	Record(ctx context.Context, c *models.Click) error
	ListSince(ctx context.Context, since time.Time) ([]models.Click, error)
}

type FavoriteStore interface {
	List(ctx context.Context) ([]string, error)
	Replace(ctx context.Context, ids []string) error
}

type ScraperBackend interface {
	Status(ctx context.Context) bool
	TestScraper(ctx context.Context, url string, actions []models.ScraperAction, cookieXPaths []string) (scraper.TestResult, error)
	TestAI(ctx context.Context, url string) (scraper.TestResult, error)
	PushToWordpress(ctx context.Context, url string, actions []models.ScraperAction) (json.RawMessage, error)
	ScrapeAll(ctx context.Context) (json.RawMessage, error)
	AnalyzeImage(ctx context.Context, filename string, image []byte) ([]models.Ingredient, error)
}

// ScrapeRunner is the scheduler view the scraper routes use so manual runs
// show up in the same run history as scheduled ones.
type ScrapeRunner interface {
	RunNow(ctx context.Context) (*scheduler.RunInfo, error)
	LastRun() *scheduler.RunInfo
	LastStatus() *scheduler.StatusInfo
}

type Deps struct {
	DB        Pinger
	Products  ProductStore
	Discounts DiscountStore
	Clicks    ClickStore
	Favorites FavoriteStore
	Scraper   ScraperBackend
	Runner    ScrapeRunner // optional
	Aggregate aggregate.Options
	Log       zerolog.Logger
}

type Options struct {
	Port         int
	APIKey       string
	CORSOrigin   string
	WriteTimeout time.Duration
}

type Server struct {
	db         Pinger
	products   ProductStore
	discounts  DiscountStore
	clicks     ClickStore
	favorites  FavoriteStore
	scraper    ScraperBackend
	runner     ScrapeRunner
	aggOpts    aggregate.Options
	log        zerolog.Logger
	handler    http.Handler
	httpServer *http.Server
	apiKey     string
}

func NewServer(deps Deps, opts Options) *Server {
	s := &Server{
		db:        deps.DB,
		products:  deps.Products,
		discounts: deps.Discounts,
		clicks:    deps.Clicks,
		favorites: deps.Favorites,
		scraper:   deps.Scraper,
		runner:    deps.Runner,
		aggOpts:   deps.Aggregate,
		log:       deps.Log,
		apiKey:    opts.APIKey,
	}

	mux := http.NewServeMux()

	// Product routes
	mux.HandleFunc("GET /v1/products", s.handleListProducts)
	mux.HandleFunc("POST /v1/products", s.handleCreateProduct)
	mux.HandleFunc("GET /v1/products/provisional", s.handleListProvisional)
	mux.HandleFunc("GET /v1/products/needs-fix", s.handleListNeedsFix)
	mux.HandleFunc("GET /v1/products/{id}", s.handleGetProduct)
	mux.HandleFunc("PUT /v1/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /v1/products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("GET /v1/products/{id}/price-history", s.handlePriceHistory)
	mux.HandleFunc("POST /v1/products/{id}/prices", s.handleAddPrice)
	mux.HandleFunc("POST /v1/products/{id}/approve-provisional", s.handleApproveProvisional)
	mux.HandleFunc("PUT /v1/products/{id}/scraper", s.handleSaveScraper)

	// Visualization routes
	mux.HandleFunc("GET /v1/visualization", s.handleVisualization)
	mux.HandleFunc("GET /v1/visualization/stats", s.handleVisualizationStats)

	// Discount routes
	mux.HandleFunc("GET /v1/discounts", s.handleListDiscounts)
	mux.HandleFunc("PUT /v1/discounts/{brand}", s.handleApplyDiscount)
	mux.HandleFunc("DELETE /v1/discounts/{brand}", s.handleRemoveDiscount)

	// Favorites, clicks and analytics
	mux.HandleFunc("GET /v1/favorites", s.handleListFavorites)
	mux.HandleFunc("PUT /v1/favorites", s.handleReplaceFavorites)
	mux.HandleFunc("POST /v1/clicks", s.handleRecordClick)
	mux.HandleFunc("GET /v1/analytics/summary", s.handleAnalyticsSummary)
	mux.HandleFunc("GET /v1/analytics/clicks", s.handleAnalyticsClicks)
	mux.HandleFunc("GET /v1/analytics/products", s.handleAnalyticsProducts)
	mux.HandleFunc("GET /v1/analytics/stores", s.handleAnalyticsStores)

	// Scraper backend proxy
	mux.HandleFunc("GET /v1/scraper/status", s.handleScraperStatus)
	mux.HandleFunc("POST /v1/scraper/test", s.handleScraperTest)
	mux.HandleFunc("POST /v1/scraper/test-ai", s.handleScraperTestAI)
	mux.HandleFunc("POST /v1/scraper/push", s.handleScraperPush)
	mux.HandleFunc("POST /v1/scraper/scrape-all", s.handleScrapeAll)
	mux.HandleFunc("POST /v1/scraper/analyze-image", s.handleAnalyzeImage)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = corsMiddleware(s.authMiddleware(mux), opts.CORSOrigin)

	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
	}

	return s
}

// Handler exposes the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("REST API server started")
	if s.apiKey != "" {
		s.log.Info().Msg("authentication: enabled (Bearer token)")
	} else {
		s.log.Warn().Msg("authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// queryFlag reads boolean query parameters such as ?filtered=1.
func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps repository errors to HTTP statuses. Anything
// unexpected is logged and reported as a 500 with msg.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrNoProvisional):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg(msg)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
