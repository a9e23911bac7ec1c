package aggregate

import (
	"strings"

	"github.com/kjannette/priceboard-backend/internal/models"
)

// Query narrows a Series the way the dashboard's search box, category
// picker and date range do. Zero values disable each filter. From and To
// are inclusive YYYY-MM-DD days.
type Query struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func (q Query) IsZero() bool {
	return q == Query{}
}

// Apply returns the part of s matching q. Categories left without points
// are dropped. s is not modified.
func Apply(s Series, q Query) Series {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make(Series)

	for category, points := range s {
		if q.Category != "" && category != q.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(category), search) {
			continue
		}

		kept := points
		if q.From != "" || q.To != "" {
			kept = make([]models.DailyAggregatePoint, 0, len(points))
			for _, p := range points {
				if q.From != "" && p.Date < q.From {
					continue
				}
				if q.To != "" && p.Date > q.To {
					continue
				}
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			out[category] = kept
		}
	}
	return out
}
