package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/priceboard-backend/internal/actions"
	"github.com/kjannette/priceboard-backend/internal/models"
	"github.com/kjannette/priceboard-backend/internal/pricefilter"
	"github.com/kjannette/priceboard-backend/internal/pricing"
)

const defaultProductLimit = maxQueryLimit

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch products")
		return
	}

	q := r.URL.Query()
	store, typ := q.Get("store"), q.Get("type")
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if store != "" && p.Store != store {
			continue
		}
		if typ != "" && p.Type != typ {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	if limit := parseLimit(r, defaultProductLimit); len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// prepareProduct validates p and fills in the derived unit prices.
func prepareProduct(w http.ResponseWriter, p *models.Product) bool {
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if p.DiscountType == "" {
		p.Discount = models.NoDiscount()
	}
	pricing.Apply(p)
	// History is only written through the prices endpoint.
	p.PriceHistory = nil
	return true
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	if !prepareProduct(w, &p) {
		return
	}
	if err := s.products.Create(r.Context(), &p); err != nil {
		s.writeStoreError(w, err, "failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = r.PathValue("id")
	if !prepareProduct(w, &p) {
		return
	}
	if err := s.products.Update(r.Context(), &p); err != nil {
		s.writeStoreError(w, err, "failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type priceHistoryDebug struct {
	Raw      []models.PricePoint `json:"raw"`
	Filtered []models.PricePoint `json:"filtered"`
	Removed  int                 `json:"removed"`
	Bounds   pricefilter.Bounds  `json:"bounds"`
	Params   pricefilter.Params  `json:"params"`
}

// handlePriceHistory returns the stored history. ?filtered=1 runs it
// through the anomaly filter; ?debug=1 additionally returns the raw series
// and the computed acceptance window.
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := s.products.Get(ctx, id); err != nil {
		s.writeStoreError(w, err, "failed to fetch product")
		return
	}

	history, err := s.products.PriceHistory(ctx, id)
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch price history")
		return
	}
	if history == nil {
		history = []models.PricePoint{}
	}

	debug := queryFlag(r, "debug")
	if !queryFlag(r, "filtered") && !debug {
		writeJSON(w, http.StatusOK, history)
		return
	}

	params := s.filterParams()
	filtered := pricefilter.Filter(history, params)
	if filtered == nil {
		filtered = []models.PricePoint{}
	}
	if !debug {
		writeJSON(w, http.StatusOK, filtered)
		return
	}

	values := make([]float64, 0, len(history))
	for _, pt := range history {
		if pt.Value > 0 {
			values = append(values, pt.Value)
		}
	}
	dbg := priceHistoryDebug{
		Raw:      history,
		Filtered: filtered,
		Removed:  len(history) - len(filtered),
		Params:   params,
	}
	if len(values) > 0 {
		dbg.Bounds = pricefilter.ComputeBounds(values, params)
	}
	writeJSON(w, http.StatusOK, dbg)
}

func (s *Server) filterParams() pricefilter.Params {
	if s.aggOpts.Filter == (pricefilter.Params{}) {
		return pricefilter.DefaultParams
	}
	return s.aggOpts.Filter
}

type addPriceRequest struct {
	Price       float64   `json:"price"`
	Date        time.Time `json:"date"`
	Provisional bool      `json:"provisional"`
}

// handleAddPrice records a scraped price. Provisional prices are held for
// review instead of entering the history.
func (s *Server) handleAddPrice(w http.ResponseWriter, r *http.Request) {
	var req addPriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	if req.Provisional {
		price := pricing.Round2(req.Price)
		if err := s.products.SetProvisional(ctx, id, &price); err != nil {
			s.writeStoreError(w, err, "failed to store provisional price")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "provisional_price": price})
		return
	}

	pt := models.PricePoint{Value: req.Price, Timestamp: req.Date}
	if pt.Timestamp.IsZero() {
		pt.Timestamp = time.Now().UTC()
	}
	if err := s.products.AppendPrice(ctx, id, pt); err != nil {
		s.writeStoreError(w, err, "failed to record price")
		return
	}
	writeJSON(w, http.StatusCreated, pt)
}

func (s *Server) handleListProvisional(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.ListProvisional(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch provisional prices")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleApproveProvisional(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	price, err := s.products.ApproveProvisional(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "failed to approve provisional price")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "price": price})
}

func (s *Server) handleListNeedsFix(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.ListNeedingFix(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch products needing a fix")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

type saveScraperRequest struct {
	Actions []models.ScraperAction `json:"actions"`
}

func (s *Server) handleSaveScraper(w http.ResponseWriter, r *http.Request) {
	var req saveScraperRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := actions.Validate(req.Actions); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	if err := s.products.SaveScraper(r.Context(), id, req.Actions); err != nil {
		s.writeStoreError(w, err, "failed to save scraper")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "scraper": req.Actions, "warning": false})
}
