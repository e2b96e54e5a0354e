// Package server exposes the monitoring subsystem over HTTP: an ingest
// endpoint the host generation layer posts interactions to, read endpoints
// for status, summaries, alerts and recommendations, and control endpoints
// for manual adaptation, rollback and state persistence.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/driftwatch/driftwatch/internal/storage"
	"github.com/driftwatch/driftwatch/internal/trainer"
)

// Server is the HTTP front of the subsystem.
type Server struct {
	trainer *trainer.Trainer
	store   storage.SnapshotStore
	logger  *slog.Logger
	http    *http.Server
}

// New builds a Server listening on port.
func New(port int, t *trainer.Trainer, store storage.SnapshotStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		trainer: t,
		store:   store,
		logger:  logger.With("component", "http_server"),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/interactions", s.handleIngest)
		r.Get("/status", s.handleStatus)
		r.Get("/summary", s.handleSummary)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/patterns", s.handlePatterns)
		r.Get("/correlations", s.handleCorrelations)
		r.Get("/adaptations", s.handleAdaptations)
		r.Post("/adapt", s.handleAdapt)
		r.Post("/rollback", s.handleRollback)
		r.Post("/cycle", s.handleCycle)
		r.Post("/state/save", s.handleStateSave)
		r.Post("/state/load", s.handleStateLoad)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           otelhttp.NewHandler(r, "driftwatch"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the configured HTTP handler, for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
