package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/ingest"
)

// ingestRequest is the optional JSON body of the trigger endpoint
type ingestRequest struct {
	DryRun  bool     `json:"dryRun"`
	ListIDs []string `json:"listIds"`
}

// ingestHandler triggers an ingestion run. Requires the shared secret in the
// X-Ingest-Secret header. Returns 200 with the run summary even when some
// lists failed, 400 when no lists resolve, 500 on unexpected failure with the
// partial summary attached when available.
func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	secret := s.config.GetTriggerSecret()
	if secret == "" {
		lgr.Printf("[WARN] ingest trigger rejected, no secret configured")
		renderError(w, r, fmt.Errorf("unauthorized"), http.StatusUnauthorized)
		return
	}
	provided := r.Header.Get("X-Ingest-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		renderError(w, r, fmt.Errorf("unauthorized"), http.StatusUnauthorized)
		return
	}

	var req ingestRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		renderError(w, r, fmt.Errorf("read request body: %w", err), http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
			return
		}
	}
	if r.URL.Query().Get("dryRun") == "1" {
		req.DryRun = true
	}

	lgr.Printf("[INFO] ingest triggered via http, dryRun=%v, lists=%v", req.DryRun, req.ListIDs)

	summary, err := s.runner.RunNow(r.Context(), ingest.RunOptions{ListIDs: req.ListIDs, DryRun: req.DryRun})
	if err != nil {
		if errors.Is(err, ingest.ErrNoActiveLists) {
			renderError(w, r, err, http.StatusBadRequest)
			return
		}
		lgr.Printf("[ERROR] ingest run failed: %v", err)
		if summary != nil {
			renderJSON(w, r, http.StatusInternalServerError, summary)
			return
		}
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, summary)
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	count, err := s.articles.CountArticles(r.Context())
	if err != nil {
		lgr.Printf("[WARN] failed to count articles: %v", err)
	}

	status := map[string]interface{}{
		"status":   "ok",
		"version":  s.version,
		"time":     time.Now().UTC(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"articles": count,
	}
	renderJSON(w, r, http.StatusOK, status)
}

// articlesHandler returns recent articles, newest first
func (s *Server) articlesHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	articles, err := s.articles.GetArticles(r.Context(), limit, offset)
	if err != nil {
		lgr.Printf("[ERROR] failed to get articles: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, articles)
}

// articleHandler returns a single article by slug
func (s *Server) articleHandler(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	article, err := s.articles.GetBySlug(r.Context(), slug)
	if err != nil {
		lgr.Printf("[ERROR] failed to get article %q: %v", slug, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if article == nil {
		renderError(w, r, fmt.Errorf("article not found"), http.StatusNotFound)
		return
	}
	renderJSON(w, r, http.StatusOK, article)
}

// listsHandler returns the registered lists
func (s *Server) listsHandler(w http.ResponseWriter, r *http.Request) {
	lists, err := s.lists.GetLists(r.Context())
	if err != nil {
		lgr.Printf("[ERROR] failed to get lists: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, lists)
}

// usageHandler returns today's quota counters
func (s *Server) usageHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.usage.StatsAll(r.Context())
	if err != nil {
		lgr.Printf("[ERROR] failed to get usage stats: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, stats)
}

// queryInt parses an integer query parameter with a default
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
