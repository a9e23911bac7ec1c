package api

import (
	"net/http"

	"github.com/kjannette/priceboard-backend/internal/aggregate"
)

type visualizationResponse struct {
	Categories []string         `json:"categories"`
	Series     aggregate.Series `json:"series"`
	Query      aggregate.Query  `json:"query"`
}

// parseQuery reads ?search=&category=&from=&to=. Dates must be YYYY-MM-DD.
func parseQuery(w http.ResponseWriter, r *http.Request) (aggregate.Query, bool) {
	v := r.URL.Query()
	q := aggregate.Query{
		Search:   v.Get("search"),
		Category: v.Get("category"),
		From:     v.Get("from"),
		To:       v.Get("to"),
	}
	for _, d := range []string{q.From, q.To} {
		if d != "" && !validateDate(d) {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return q, false
		}
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return q, false
	}
	return q, true
}

// series runs the whole catalog through the aggregation pipeline and
// narrows the result to q.
func (s *Server) series(w http.ResponseWriter, r *http.Request, q aggregate.Query) (aggregate.Series, bool) {
	products, err := s.products.ListWithHistory(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to load price history")
		return nil, false
	}
	out := aggregate.Process(products, s.aggOpts)
	if !q.IsZero() {
		out = aggregate.Apply(out, q)
	}
	return out, true
}

func (s *Server) handleVisualization(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	series, ok := s.series(w, r, q)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, visualizationResponse{
		Categories: series.Categories(),
		Series:     series,
		Query:      q,
	})
}

func (s *Server) handleVisualizationStats(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	series, ok := s.series(w, r, q)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Summarize(series))
}
