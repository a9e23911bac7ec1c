package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/kjannette/priceboard-backend/internal/models"
	"github.com/kjannette/priceboard-backend/internal/scheduler"
)

type scraperStatusResponse struct {
	Online        bool                  `json:"online"`
	LastCheck     *scheduler.StatusInfo `json:"lastCheck,omitempty"`
	LastScrapeAll *scheduler.RunInfo    `json:"lastScrapeAll,omitempty"`
}

func (s *Server) handleScraperStatus(w http.ResponseWriter, r *http.Request) {
	resp := scraperStatusResponse{Online: s.scraper.Status(r.Context())}
	if s.runner != nil {
		resp.LastCheck = s.runner.LastStatus()
		resp.LastScrapeAll = s.runner.LastRun()
	}
	writeJSON(w, http.StatusOK, resp)
}

type scraperTestRequest struct {
	URL                string                 `json:"url"`
	Actions            []models.ScraperAction `json:"actions"`
	CookieBannerXPaths []string               `json:"cookieBannerXPaths"`
}

func decodeScraperRequest(w http.ResponseWriter, r *http.Request) (scraperTestRequest, bool) {
	var req scraperTestRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return req, false
	}
	return req, true
}

// handleScraperTest always answers 200 with a test result; backend
// failures come back as an error at action index 0.
func (s *Server) handleScraperTest(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScraperRequest(w, r)
	if !ok {
		return
	}
	result, err := s.scraper.TestScraper(r.Context(), req.URL, req.Actions, req.CookieBannerXPaths)
	if err != nil {
		s.log.Warn().Err(err).Str("url", req.URL).Msg("scraper test failed")
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleScraperTestAI(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScraperRequest(w, r)
	if !ok {
		return
	}
	result, err := s.scraper.TestAI(r.Context(), req.URL)
	if err != nil {
		s.log.Warn().Err(err).Str("url", req.URL).Msg("AI scraper test failed")
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleScraperPush(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScraperRequest(w, r)
	if !ok {
		return
	}
	out, err := s.scraper.PushToWordpress(r.Context(), req.URL, req.Actions)
	if err != nil {
		s.log.Error().Err(err).Str("url", req.URL).Msg("push to wordpress failed")
		writeError(w, http.StatusBadGateway, "scraper backend: "+err.Error())
		return
	}
	writeRaw(w, out)
}

func (s *Server) handleScrapeAll(w http.ResponseWriter, r *http.Request) {
	if s.runner != nil {
		run, err := s.runner.RunNow(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeRaw(w, run.Result)
		return
	}

	out, err := s.scraper.ScrapeAll(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("scrape-all failed")
		writeError(w, http.StatusBadGateway, "scraper backend: "+err.Error())
		return
	}
	writeRaw(w, out)
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, hdr, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "image is empty")
		return
	}

	ingredients, err := s.scraper.AnalyzeImage(r.Context(), hdr.Filename, data)
	if err != nil {
		s.log.Error().Err(err).Str("file", hdr.Filename).Msg("image analysis failed")
		writeError(w, http.StatusBadGateway, "scraper backend: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

// writeRaw relays a backend JSON body unchanged. An empty body becomes
// {"ok":true}.
func writeRaw(w http.ResponseWriter, body json.RawMessage) {
	if len(body) == 0 {
		body = json.RawMessage(`{"ok":true}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
