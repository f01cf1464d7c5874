// Package server exposes search and cache administration over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/roastlab/brewfind/pkg/budget"
	"github.com/roastlab/brewfind/pkg/cache/sqlite"
	"github.com/roastlab/brewfind/pkg/catalog"
	"github.com/roastlab/brewfind/pkg/config"
	"github.com/roastlab/brewfind/pkg/fingerprint"
	"github.com/roastlab/brewfind/pkg/models"
	"github.com/roastlab/brewfind/pkg/resolver"
	"github.com/roastlab/brewfind/pkg/translator"
)

// Server serves search requests and the cache admin surface.
type Server struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	store    *sqlite.Store
	catalog  *catalog.Catalog
	logger   zerolog.Logger
	mux      *http.ServeMux
}

// New creates a Server wired with all dependencies.
func New(cfg *config.Config, r *resolver.Resolver, store *sqlite.Store, cat *catalog.Catalog, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: r,
		store:    store,
		catalog:  cat,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/search", s.handleSearch)
	s.mux.HandleFunc("GET /v1/cache/stats", s.handleStats)
	s.mux.HandleFunc("POST /v1/cache/cleanup", s.handleCleanup)
	s.mux.HandleFunc("POST /v1/cache/clear", s.handleClear)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts down gracefully when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.cfg.Listen).Msg("brewfind server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

type searchRequest struct {
	Query string `json:"query,omitempty"`
	Image string `json:"image,omitempty"` // base64
	Limit int    `json:"limit,omitempty"`
}

type searchResponse struct {
	Params      models.SearchParams `json:"params"`
	Cached      bool                `json:"cached"`
	Fingerprint string              `json:"fingerprint"`
	Results     []models.Coffee     `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q := models.Query{Text: req.Query}
	if req.Image != "" {
		img, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid image encoding")
			return
		}
		q.Image = img
	}

	res, err := s.resolver.Resolve(r.Context(), q)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}

	var results []models.Coffee
	if s.catalog != nil {
		results, err = s.catalog.Search(r.Context(), res.Params, req.Limit)
		if err != nil {
			s.logger.Error().Err(err).Msg("catalog search failed")
			s.writeError(w, http.StatusInternalServerError, "catalog search failed")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, searchResponse{
		Params:      res.Params,
		Cached:      res.Cached,
		Fingerprint: res.Fingerprint,
		Results:     results,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context(), s.cfg.Cache.TopQueries)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.DeleteExpired(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	kind := models.QueryKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		s.writeError(w, http.StatusBadRequest, "kind must be text or image")
		return
	}
	removed, err := s.store.DeleteAll(r.Context(), kind)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fingerprint.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, "query or image is required")
	case errors.Is(err, budget.ErrBudgetExceeded):
		s.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, translator.ErrTranslationFailed):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, sqlite.ErrStorageUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
