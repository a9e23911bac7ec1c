// Package analytics turns recorded product clicks into the chart series the
// dashboard analytics page draws. Every function is pure; callers load the
// products and clicks from the repositories.
package analytics

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/kjannette/priceboard-backend/internal/models"
)

const (
	topN       = 5
	otherLabel = "Other"
	totalKey   = "clicks"
	totalLabel = "Total Clicks"
	// maxRangeDays bounds the number of daily buckets one request can ask for.
	maxRangeDays = 3660
)

var palette = []string{
	"#00bcd4",
	"#f97316",
	"#3b82f6",
	"#10b981",
	"#8b5cf6",
	"#ec4899",
	"#f59e0b",
	"#6366f1",
	"#ef4444",
	"#84cc16",
}

// Color returns the chart color for the i-th series, cycling the palette.
func Color(i int) string {
	return palette[i%len(palette)]
}

// Slice is one wedge of a pie chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// ClickDay is one x-axis point. PerProduct is flattened into the JSON
// object keyed by product id, next to date and clicks.
type ClickDay struct {
	Date       string
	Clicks     int
	PerProduct map[string]int
}

func (d ClickDay) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.PerProduct)+2)
	for k, v := range d.PerProduct {
		m[k] = v
	}
	m["date"] = d.Date
	m["clicks"] = d.Clicks
	return json.Marshal(m)
}

type LegendEntry struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Clicks int    `json:"clicks"`
	Color  string `json:"color"`
}

type ClicksChart struct {
	Data   []ClickDay    `json:"chartData"`
	Legend []LegendEntry `json:"legend"`
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func displayName(p models.Product) string {
	return p.Store + " - " + p.Name
}

// clicksByProduct groups clicks by product id. Clicks for ids not in the
// catalog are dropped.
func clicksByProduct(products []models.Product, clicks []models.Click) map[string][]models.Click {
	known := make(map[string]bool, len(products))
	for _, p := range products {
		known[p.ID] = true
	}
	out := make(map[string][]models.Click)
	for _, c := range clicks {
		if known[c.ProductID] {
			out[c.ProductID] = append(out[c.ProductID], c)
		}
	}
	return out
}

// ClicksOverTime buckets clicks into UTC days from from to to inclusive.
// With byProduct each day also carries per-product counts and the legend
// lists every clicked product, most clicked first; otherwise the legend is
// a single total entry.
func ClicksOverTime(products []models.Product, clicks []models.Click, from, to time.Time, byProduct bool) ClicksChart {
	start := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.UTC().Year(), to.UTC().Month(), to.UTC().Day(), 0, 0, 0, 0, time.UTC)

	var days []string
	index := make(map[string]int)
	for d := start; !d.After(end) && len(days) < maxRangeDays; d = d.AddDate(0, 0, 1) {
		index[dayKey(d)] = len(days)
		days = append(days, dayKey(d))
	}

	data := make([]ClickDay, len(days))
	for i, d := range days {
		data[i] = ClickDay{Date: d}
		if byProduct {
			data[i].PerProduct = make(map[string]int)
		}
	}

	grouped := clicksByProduct(products, clicks)
	inRange := make(map[string]int)
	for _, p := range products {
		for _, c := range grouped[p.ID] {
			i, ok := index[dayKey(c.Timestamp)]
			if !ok {
				continue
			}
			data[i].Clicks++
			inRange[p.ID]++
			if byProduct {
				data[i].PerProduct[p.ID]++
			}
		}
	}

	if !byProduct {
		total := 0
		for _, n := range inRange {
			total += n
		}
		return ClicksChart{
			Data:   data,
			Legend: []LegendEntry{{Name: totalLabel, Key: totalKey, Clicks: total, Color: Color(0)}},
		}
	}

	legend := []LegendEntry{}
	for _, p := range products {
		if inRange[p.ID] == 0 {
			continue
		}
		legend = append(legend, LegendEntry{
			Name:   displayName(p),
			Key:    p.ID,
			Clicks: inRange[p.ID],
			Color:  Color(len(legend)),
		})
	}
	slices.SortStableFunc(legend, func(a, b LegendEntry) int { return b.Clicks - a.Clicks })
	return ClicksChart{Data: data, Legend: legend}
}

type productClicks struct {
	product models.Product
	clicks  int
}

// ranked returns clicked products, most clicked first. Ties keep catalog
// order.
func ranked(products []models.Product, clicks []models.Click) []productClicks {
	grouped := clicksByProduct(products, clicks)
	var out []productClicks
	for _, p := range products {
		if n := len(grouped[p.ID]); n > 0 {
			out = append(out, productClicks{product: p, clicks: n})
		}
	}
	slices.SortStableFunc(out, func(a, b productClicks) int { return b.clicks - a.clicks })
	return out
}

// ProductPerformance returns the five most clicked products and, when more
// exist, one "Other" slice holding the rest.
func ProductPerformance(products []models.Product, clicks []models.Click) []Slice {
	out := []Slice{}
	for i, pc := range ranked(products, clicks) {
		if i < topN {
			out = append(out, Slice{Name: displayName(pc.product), Value: pc.clicks, Color: Color(i)})
			continue
		}
		if i == topN {
			out = append(out, Slice{Name: otherLabel, Color: Color(topN)})
		}
		out[topN].Value += pc.clicks
	}
	return out
}

type storeTotals struct {
	store    string
	products int
	clicks   int
}

// byStore totals products and clicks per store in first-seen order.
func byStore(products []models.Product, clicks []models.Click) []storeTotals {
	grouped := clicksByProduct(products, clicks)
	pos := make(map[string]int)
	var out []storeTotals
	for _, p := range products {
		i, ok := pos[p.Store]
		if !ok {
			i = len(out)
			pos[p.Store] = i
			out = append(out, storeTotals{store: p.Store})
		}
		out[i].products++
		out[i].clicks += len(grouped[p.ID])
	}
	return out
}

type StoreBreakdown struct {
	StoreClicks   []Slice `json:"storeClicks"`
	StoreProducts []Slice `json:"storeProducts"`
}

// StoreAnalytics returns per-store click and product counts as pie data.
// A store keeps the same color in both charts.
func StoreAnalytics(products []models.Product, clicks []models.Click) StoreBreakdown {
	totals := byStore(products, clicks)
	b := StoreBreakdown{StoreClicks: []Slice{}, StoreProducts: []Slice{}}
	for i, s := range totals {
		b.StoreClicks = append(b.StoreClicks, Slice{Name: s.store, Value: s.clicks, Color: Color(i)})
		b.StoreProducts = append(b.StoreProducts, Slice{Name: s.store, Value: s.products, Color: Color(i)})
	}
	desc := func(a, b Slice) int { return b.Value - a.Value }
	slices.SortStableFunc(b.StoreClicks, desc)
	slices.SortStableFunc(b.StoreProducts, desc)
	return b
}

type TopProduct struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Store  string `json:"store"`
	Clicks int    `json:"clicks"`
}

type StoreShare struct {
	Store    string `json:"store"`
	Products int    `json:"products"`
	Clicks   int    `json:"clicks"`
}

type Summary struct {
	TotalClicks           int          `json:"totalClicks"`
	TotalProducts         int          `json:"totalProducts"`
	ActiveProducts        int          `json:"activeProducts"`
	RogiersChoiceClicks   int          `json:"rogiersChoiceClicks"`
	TopPerformingProducts []TopProduct `json:"topPerformingProducts"`
	StoreDistribution     []StoreShare `json:"storeDistribution"`
}

func Summarize(products []models.Product, clicks []models.Click) Summary {
	s := Summary{
		TotalProducts:         len(products),
		TopPerformingProducts: []TopProduct{},
		StoreDistribution:     []StoreShare{},
	}
	for _, p := range products {
		if p.Enabled {
			s.ActiveProducts++
		}
	}
	for _, cs := range clicksByProduct(products, clicks) {
		s.TotalClicks += len(cs)
		for _, c := range cs {
			if c.RogierChoice {
				s.RogiersChoiceClicks++
			}
		}
	}

	for i, pc := range ranked(products, clicks) {
		if i == topN {
			break
		}
		s.TopPerformingProducts = append(s.TopPerformingProducts, TopProduct{
			ID:     pc.product.ID,
			Name:   pc.product.Name,
			Store:  pc.product.Store,
			Clicks: pc.clicks,
		})
	}

	for _, st := range byStore(products, clicks) {
		s.StoreDistribution = append(s.StoreDistribution, StoreShare{Store: st.store, Products: st.products, Clicks: st.clicks})
	}
	slices.SortStableFunc(s.StoreDistribution, func(a, b StoreShare) int { return b.Clicks - a.Clicks })
	return s
}
