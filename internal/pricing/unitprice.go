// Package pricing derives the comparison prices shown next to each product
// (price per 100 g of protein or creatine, per 100 kcal, per dose).
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kjannette/priceboard-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// parseAmount reads a form value such as "80", "80.5" or "80,5".
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// perHundred returns price / (perHundredGrams * total / 100) * 100.
func perHundred(price decimal.Decimal, perHundredGrams, total string) (string, bool) {
	content, ok := parseAmount(perHundredGrams)
	if !ok {
		return "", false
	}
	amount, ok := parseAmount(total)
	if !ok {
		return "", false
	}
	units := content.Mul(amount).Div(hundred)
	if units.IsZero() {
		return "", false
	}
	return price.Div(units).Mul(hundred).StringFixed(2), true
}

// Apply fills the derived price fields of p from its price and nutrient
// fields. Fields whose inputs are missing are left unchanged.
func Apply(p *models.Product) {
	if p.Price <= 0 {
		return
	}
	price := decimal.NewFromFloat(p.Price)

	switch p.Type {
	case models.TypeProtein, models.TypeWeightGainer:
		if v, ok := perHundred(price, p.ProteinPer100g, p.Amount); ok {
			p.PriceForElementGram = v
		}
	case models.TypeCreatine:
		if v, ok := perHundred(price, p.CreatinePer100g, p.Amount); ok {
			p.PriceForElementGram = v
		}
	}

	if p.Type == models.TypeWeightGainer {
		if v, ok := perHundred(price, p.CaloriesPer100g, p.Amount); ok {
			p.PricePer100Calories = v
		}
	}

	if p.Type == models.TypePreworkout {
		dose, okDose := parseAmount(p.Dose)
		total, okTotal := parseAmount(p.Amount)
		if okDose && okTotal {
			doses := total.Div(dose)
			if !doses.IsZero() {
				p.PricePerDose = price.Div(doses).StringFixed(2)
			}
		}
	}
}

// Round2 rounds a currency amount to cents, half away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
