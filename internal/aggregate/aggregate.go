// Package aggregate turns a snapshot of the product catalog into
// per-category daily average price series for charting.
//
// Every call processes the whole snapshot; nothing is cached between calls.
package aggregate

import (
	"slices"
	"strings"
	"time"

	"github.com/kjannette/priceboard-backend/internal/models"
	"github.com/kjannette/priceboard-backend/internal/pricefilter"
)

const dayLayout = "2006-01-02"

// Series maps a category label to its daily points in ascending date order.
// Categories without any surviving price point are absent.
type Series map[string][]models.DailyAggregatePoint

type Options struct {
	// Filter is applied to every product's history; the zero value means
	// pricefilter.DefaultParams.
	Filter pricefilter.Params
	Labels LabelOptions
	// Location decides which calendar day an instant falls on. nil means UTC.
	Location *time.Location
}

// DefaultOptions uses the canonical filter profile and UTC days.
func DefaultOptions() Options {
	return Options{Filter: pricefilter.DefaultParams, Location: time.UTC}
}

// Day formats the calendar day of ts in loc (UTC when loc is nil).
func Day(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(dayLayout)
}

type bucket struct {
	sum   float64
	count int
}

// Process filters each product's history and averages the surviving prices
// per category and calendar day.
func Process(products []models.Product, opts Options) Series {
	if opts.Filter == (pricefilter.Params{}) {
		opts.Filter = pricefilter.DefaultParams
	}
	buckets := make(map[string]map[string]*bucket)

	for _, p := range products {
		cleaned := pricefilter.Filter(p.PriceHistory, opts.Filter)
		if len(cleaned) == 0 {
			continue
		}

		for _, category := range CategoryLabels(p.Type, p.Subtypes, opts.Labels) {
			days, ok := buckets[category]
			if !ok {
				days = make(map[string]*bucket)
				buckets[category] = days
			}
			for _, pt := range cleaned {
				d := Day(pt.Timestamp, opts.Location)
				b, ok := days[d]
				if !ok {
					b = &bucket{}
					days[d] = b
				}
				b.sum += pt.Value
				b.count++
			}
		}
	}

	out := make(Series, len(buckets))
	for category, days := range buckets {
		points := make([]models.DailyAggregatePoint, 0, len(days))
		for d, b := range days {
			points = append(points, models.DailyAggregatePoint{
				Date:         d,
				AveragePrice: b.sum / float64(b.count),
				SampleCount:  b.count,
			})
		}
		// YYYY-MM-DD sorts chronologically as a string.
		slices.SortFunc(points, func(a, b models.DailyAggregatePoint) int {
			return strings.Compare(a.Date, b.Date)
		})
		out[category] = points
	}
	return out
}

// Categories returns the series' labels in lexical order.
func (s Series) Categories() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
