package api

import (
	"net/http"
	"strings"

	"github.com/kjannette/priceboard-backend/internal/models"
)

func (s *Server) handleListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := s.discounts.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to fetch discounts")
		return
	}
	if discounts == nil {
		discounts = []models.BrandDiscount{}
	}
	writeJSON(w, http.StatusOK, discounts)
}

type discountResponse struct {
	models.BrandDiscount
	ProductsUpdated int64 `json:"productsUpdated"`
}

func (s *Server) handleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var d models.Discount
	if !decodeJSON(w, r, &d) {
		return
	}
	if d.DiscountType == "" || d.DiscountType == models.DiscountNone {
		writeError(w, http.StatusBadRequest, "discount_type must be percentage or fixed; use DELETE to remove")
		return
	}
	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(d.DiscountValue) == "" {
		writeError(w, http.StatusBadRequest, "discount_value is required")
		return
	}

	bd := models.BrandDiscount{Brand: r.PathValue("brand"), Discount: d}
	n, err := s.discounts.ApplyToStore(r.Context(), bd)
	if err != nil {
		s.writeStoreError(w, err, "failed to apply discount")
		return
	}
	s.log.Info().Str("brand", bd.Brand).Int64("products", n).Msg("brand discount applied")
	writeJSON(w, http.StatusOK, discountResponse{BrandDiscount: bd, ProductsUpdated: n})
}

func (s *Server) handleRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	brand := r.PathValue("brand")
	n, err := s.discounts.RemoveFromStore(r.Context(), brand)
	if err != nil {
		s.writeStoreError(w, err, "failed to remove discount")
		return
	}
	s.log.Info().Str("brand", brand).Int64("products", n).Msg("brand discount removed")
	writeJSON(w, http.StatusOK, discountResponse{
		BrandDiscount:   models.BrandDiscount{Brand: brand, Discount: models.NoDiscount()},
		ProductsUpdated: n,
	})
}
