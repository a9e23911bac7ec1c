package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Catalog product types. Unit prices are derived for protein, creatine,
// weight gainer and preworkout only.
const (
	TypeProtein        = "proteine"
	TypeCreatine       = "creatine"
	TypeWeightGainer   = "weight_gainer"
	TypePreworkout     = "preworkout"
	TypePreworkoutIngr = "preworkout_ingredient"
	TypeVitamins       = "vitamins"
	TypeOther          = "other"
)

var productTypes = map[string]bool{
	TypeProtein:        true,
	TypeCreatine:       true,
	TypeWeightGainer:   true,
	TypePreworkout:     true,
	TypePreworkoutIngr: true,
	TypeVitamins:       true,
	TypeOther:          true,
}

// IsKnownType reports whether t is one of the catalog's product types.
func IsKnownType(t string) bool {
	return productTypes[t]
}

type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Store    string   `json:"store"`
	URL      string   `json:"url"`
	Image    string   `json:"image"`
	Type     string   `json:"type"`
	Subtypes []string `json:"subtypes"`

	Price            float64  `json:"price"`
	ProvisionalPrice *float64 `json:"provisional_price"`

	Enabled       bool `json:"enabled"`
	EnabledTop10  bool `json:"enabled_top10"`
	Warning       bool `json:"warning"`
	ScrapeEnabled bool `json:"scrape_enabled"`
	OutOfStock    bool `json:"out_of_stock"`
	OnlyInStore   bool `json:"only_in_store"`

	Discount

	TrustpilotURL   string   `json:"trustpilot_url"`
	TrustpilotScore *float64 `json:"trustPilotScore,omitempty"`

	// Nutrient fields are free-form strings as entered in the form.
	ProteinPer100g  string `json:"protein_per_100g,omitempty"`
	CreatinePer100g string `json:"creatine_per_100g,omitempty"`
	CaloriesPer100g string `json:"calories_per_100g,omitempty"`
	Dose            string `json:"dose,omitempty"`
	Amount          string `json:"ammount"`

	PriceForElementGram string `json:"price_for_element_gram"`
	PricePerDose        string `json:"price_per_dose,omitempty"`
	PricePer100Calories string `json:"price_per_100_calories,omitempty"`

	Scraper            []ScraperAction `json:"scraper"`
	CookieBannerXPaths []string        `json:"cookieBannerXPaths"`
	Ingredients        []Ingredient    `json:"ingredients,omitempty"`

	PriceHistory []PricePoint `json:"price_history,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields the catalog cannot do without.
func (p *Product) Validate() error {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(p.Store) == "" {
		errs = append(errs, "store is required")
	}
	if !IsKnownType(p.Type) {
		errs = append(errs, fmt.Sprintf("unknown product type %q", p.Type))
	}
	if p.Price < 0 {
		errs = append(errs, "price must not be negative")
	}
	if err := p.Discount.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	for i, a := range p.Scraper {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("scraper action %d: %v", i, err))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
