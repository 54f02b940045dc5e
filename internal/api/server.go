package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/bookmarks/internal/engine"
	"github.com/knowledge-engine/bookmarks/internal/models"
	"github.com/knowledge-engine/bookmarks/internal/search"
)

const snippetLength = 200

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router chi.Router

	httpServer *http.Server
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.WithField("component", "api")
	}
	s := &Server{
		Engine: eng,
		Logger: logger,
		Router: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(s.requestLogger)
	s.Router.Use(middleware.Recoverer)
	if timeout := s.Engine.Config.API.RequestTimeout; timeout > 0 {
		s.Router.Use(middleware.Timeout(timeout))
	}

	s.Router.Get("/health", s.handleHealth)
	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/similar", s.handleSimilar)
		r.Post("/enrich", s.handleEnrich)
		r.Get("/status", s.handleStatus)
	})
}

// Start serves HTTP on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Infof("Starting API Server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.Logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("Handled request")
	})
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type SearchResponse struct {
	Query   string             `json:"query,omitempty"`
	Site    string             `json:"site,omitempty"`
	Results []SearchResultView `json:"results"`
}

type SearchResultView struct {
	Site        string   `json:"site"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    []string `json:"category"`
	Tag         []string `json:"tag"`
	Similarity  float64  `json:"similarity"`
	Snippet     string   `json:"snippet"`
}

type StatusResponse struct {
	Running   bool      `json:"running"`
	Indexed   int       `json:"indexed"`
	Enriched  int       `json:"enriched"`
	Embedded  int       `json:"embedded"`
	Skipped   int       `json:"skipped"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

type EnrichResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	hits, err := s.Engine.Search(r.Context(), query, limit)
	if err != nil {
		s.handleError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, SearchResponse{Query: query, Results: toViews(hits)})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("site")
	if site == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Parameter 'site' is required"})
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	hits, err := s.Engine.Similar(site, limit)
	if err != nil {
		s.handleError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, SearchResponse{Site: site, Results: toViews(hits)})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.StartEnrich(); err != nil {
		s.handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusAccepted, EnrichResponse{Status: "enrichment_started"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.GetStats()

	jsonResponse(w, http.StatusOK, StatusResponse{
		Running:   s.Engine.IsRunning(),
		Indexed:   len(s.Engine.Corpus()),
		Enriched:  stats.Enriched,
		Embedded:  stats.Embedded,
		Skipped:   stats.Skipped,
		LastRunID: stats.LastRunID,
		LastRun:   stats.LastRun,
		LastError: stats.LastError,
	})
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		code = http.StatusBadRequest
	case errors.Is(err, search.ErrUnknownSite):
		code = http.StatusNotFound
	case errors.Is(err, search.ErrNoEmbedding):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrAlreadyRunning):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		s.Logger.WithError(err).Error("Request failed")
	}
	jsonResponse(w, code, ErrorResponse{Error: err.Error()})
}

// parseLimit reads the optional limit parameter; 0 means the search default
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Parameter 'limit' must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}

func toViews(hits []models.SearchResult) []SearchResultView {
	views := make([]SearchResultView, len(hits))
	for i, hit := range hits {
		txt := hit.Content
		if runes := []rune(txt); len(runes) > snippetLength {
			txt = string(runes[:snippetLength]) + "..."
		}
		views[i] = SearchResultView{
			Site:        hit.Site,
			Title:       hit.Title,
			Description: hit.Description,
			Category:    hit.Category,
			Tag:         hit.Tag,
			Similarity:  hit.Similarity,
			Snippet:     txt,
		}
	}
	return views
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
