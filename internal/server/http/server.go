// Package httpserver provides the HTTP REST API server for the reference import service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/refkeeper/reference-import-service/internal/enrich"
	"github.com/refkeeper/reference-import-service/internal/importer"
)

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// SkipDuplicates is the default applied when a request leaves the
	// field unset.
	SkipDuplicates bool
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	importer   *importer.Importer
	pubmed     enrich.PubMedFetcher
	validate   *validator.Validate
	logger     zerolog.Logger

	defaultSkipDuplicates bool
}

// NewServer creates a new HTTP server with all dependencies. The pubmed
// fetcher may be nil, which disables the PMID import endpoint.
func NewServer(cfg Config, imp *importer.Importer, pubmed enrich.PubMedFetcher, logger zerolog.Logger) *Server {
	s := &Server{
		importer:              imp,
		pubmed:                pubmed,
		validate:              validator.New(),
		logger:                logger.With().Str("component", "http-server").Logger(),
		defaultSkipDuplicates: cfg.SkipDuplicates,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/imports", s.runImport)
		r.Post("/imports/pubmed", s.runPubMedImport)
		r.Post("/duplicates", s.checkDuplicates)
		r.Get("/collections", s.listCollections)
		r.Post("/collections/suggestions", s.suggestCollections)
	})

	return r
}

// Router returns the server's handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness, including whether the reference
// manager's local API answers.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.importer.Collections(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"library": "unreachable",
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"library": "reachable",
	})
}
