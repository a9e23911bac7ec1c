// Package pricefilter removes implausible observations from a product's
// scraped price history before it is charted or aggregated.
package pricefilter

import (
	"math"
	"slices"

	"github.com/kjannette/priceboard-backend/internal/models"
)

// Bounds are the order statistics of one history and the combined
// [Lower, Upper] window derived from them.
type Bounds struct {
	N      int     `json:"n"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Contains reports whether v lies inside the combined window.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// ComputeBounds derives the combined outlier window from values.
// values must be non-empty.
func ComputeBounds(values []float64, p Params) Bounds {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)

	b := Bounds{N: n}
	b.Q1 = sorted[n/4]
	b.Q3 = sorted[(3*n)/4]
	b.IQR = b.Q3 - b.Q1
	b.Median = sorted[n/2]

	var sum float64
	for _, v := range values {
		sum += v
	}
	b.Mean = sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - b.Mean
		sq += d * d
	}
	b.StdDev = math.Sqrt(sq / float64(n))

	iqrLo := b.Q1 - p.IQRMultiplier*b.IQR
	iqrHi := b.Q3 + p.IQRMultiplier*b.IQR
	medLo := b.Median * p.MedianLowerMultiplier
	medHi := b.Median * p.MedianUpperMultiplier
	stdLo := b.Mean - p.StdDevMultiplier*b.StdDev
	stdHi := b.Mean + p.StdDevMultiplier*b.StdDev

	b.Lower = max(iqrLo, medLo, stdLo, p.MinPrice)
	b.Upper = min(iqrHi, medHi, stdHi)
	return b
}

// Filter returns the plausible subset of history ordered by timestamp.
//
// Histories with fewer than p.MinPoints observations (before or after
// dropping non-positive values) are returned with only the non-positive
// values removed, in their original order.
func Filter(history []models.PricePoint, p Params) []models.PricePoint {
	valid := make([]models.PricePoint, 0, len(history))
	for _, pt := range history {
		if pt.Value > 0 {
			valid = append(valid, pt)
		}
	}
	if len(history) < p.MinPoints || len(valid) < p.MinPoints {
		return valid
	}

	values := make([]float64, len(valid))
	for i, pt := range valid {
		values[i] = pt.Value
	}
	b := ComputeBounds(values, p)

	kept := make([]models.PricePoint, 0, len(valid))
	for _, pt := range valid {
		if b.Contains(pt.Value) {
			kept = append(kept, pt)
		}
	}
	SortByTime(kept)

	if !p.JumpFilter {
		return kept
	}
	return dropJumps(kept, p.JumpMinRatio, p.JumpMaxRatio)
}

// dropJumps keeps the first point and every following point whose ratio to
// the last kept point lies in [lo, hi]. points must be time-ordered.
func dropJumps(points []models.PricePoint, lo, hi float64) []models.PricePoint {
	if len(points) == 0 {
		return points
	}
	out := make([]models.PricePoint, 0, len(points))
	out = append(out, points[0])
	for _, pt := range points[1:] {
		ratio := pt.Value / out[len(out)-1].Value
		if ratio >= lo && ratio <= hi {
			out = append(out, pt)
		}
	}
	return out
}

// SortByTime orders points by ascending timestamp, keeping the input order
// of equal timestamps.
func SortByTime(points []models.PricePoint) {
	slices.SortStableFunc(points, func(a, b models.PricePoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
