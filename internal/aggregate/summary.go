package aggregate

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

type CategoryStats struct {
	Category   string  `json:"category"`
	DataPoints int     `json:"dataPoints"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
	AvgPrice   float64 `json:"avgPrice"`
	PriceRange float64 `json:"priceRange"`
}

type Summary struct {
	TotalCategories          int             `json:"totalCategories"`
	TotalDataPoints          int             `json:"totalDataPoints"`
	AvgDataPointsPerCategory int             `json:"avgDataPointsPerCategory"`
	Categories               []CategoryStats `json:"categoryStats"`
}

// Summarize derives the dashboard's headline numbers from s. Category stats
// are ordered by data points, most first, ties broken by label.
func Summarize(s Series) Summary {
	sum := Summary{
		TotalCategories: len(s),
		Categories:      make([]CategoryStats, 0, len(s)),
	}

	for category, points := range s {
		sum.TotalDataPoints += len(points)
		if len(points) == 0 {
			continue
		}

		cs := CategoryStats{
			Category:   category,
			DataPoints: len(points),
			MinPrice:   math.Inf(1),
			MaxPrice:   math.Inf(-1),
		}
		var total float64
		for _, p := range points {
			cs.MinPrice = min(cs.MinPrice, p.AveragePrice)
			cs.MaxPrice = max(cs.MaxPrice, p.AveragePrice)
			total += p.AveragePrice
		}
		cs.AvgPrice = total / float64(len(points))
		cs.PriceRange = cs.MaxPrice - cs.MinPrice
		sum.Categories = append(sum.Categories, cs)
	}

	if sum.TotalCategories > 0 {
		sum.AvgDataPointsPerCategory = int(math.Round(float64(sum.TotalDataPoints) / float64(sum.TotalCategories)))
	}

	slices.SortFunc(sum.Categories, func(a, b CategoryStats) int {
		if c := cmp.Compare(b.DataPoints, a.DataPoints); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return sum
}
