package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
	Scraper  string `json:"scraper,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if s.db == nil || s.db.Ping(r.Context()) != nil {
		dbStatus = "disconnected"
	}

	services := healthServices{Database: dbStatus}
	if s.runner != nil {
		if st := s.runner.LastStatus(); st != nil {
			services.Scraper = "offline"
			if st.Up {
				services.Scraper = "online"
			}
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}
