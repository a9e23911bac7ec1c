package api

import (
	"net/http"
	"time"

	"github.com/kjannette/priceboard-backend/internal/analytics"
	"github.com/kjannette/priceboard-backend/internal/models"
)

const defaultClickRangeDays = 30

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	ids, err := s.favorites.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch favorites")
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

type favoritesRequest struct {
	ProductIDs []string `json:"productIds"`
}

func (s *Server) handleReplaceFavorites(w http.ResponseWriter, r *http.Request) {
	var req favoritesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductIDs == nil {
		req.ProductIDs = []string{}
	}
	if err := s.favorites.Replace(r.Context(), req.ProductIDs); err != nil {
		s.writeStoreError(w, err, "failed to save favorites")
		return
	}
	writeJSON(w, http.StatusOK, req.ProductIDs)
}

func (s *Server) handleRecordClick(w http.ResponseWriter, r *http.Request) {
	var c models.Click
	if !decodeJSON(w, r, &c) {
		return
	}
	if c.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	c.ID = 0
	if err := s.clicks.Record(r.Context(), &c); err != nil {
		s.writeStoreError(w, err, "failed to record click")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// loadClicks returns the catalog and every click since since.
func (s *Server) loadClicks(w http.ResponseWriter, r *http.Request, since time.Time) ([]models.Product, []models.Click, bool) {
	products, err := s.products.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch products")
		return nil, nil, false
	}
	clicks, err := s.clicks.ListSince(r.Context(), since)
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch clicks")
		return nil, nil, false
	}
	return products, clicks, true
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	products, clicks, ok := s.loadClicks(w, r, time.Time{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(products, clicks))
}

func (s *Server) handleAnalyticsProducts(w http.ResponseWriter, r *http.Request) {
	products, clicks, ok := s.loadClicks(w, r, time.Time{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.ProductPerformance(products, clicks))
}

func (s *Server) handleAnalyticsStores(w http.ResponseWriter, r *http.Request) {
	products, clicks, ok := s.loadClicks(w, r, time.Time{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.StoreAnalytics(products, clicks))
}

// handleAnalyticsClicks serves ?from=&to=&byProduct=1. The range defaults
// to the last 30 days.
func (s *Server) handleAnalyticsClicks(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	to := now
	from := now.AddDate(0, 0, -defaultClickRangeDays)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if !validateDate(v) {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		from, _ = time.Parse("2006-01-02", v)
	}
	if v := q.Get("to"); v != "" {
		if !validateDate(v) {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		to, _ = time.Parse("2006-01-02", v)
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	since := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	products, clicks, ok := s.loadClicks(w, r, since)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.ClicksOverTime(products, clicks, from, to, queryFlag(r, "byProduct")))
}
