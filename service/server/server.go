package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/txplain/service/metrics"
	natspkg "github.com/brojonat/txplain/service/nats"
	"github.com/brojonat/txplain/service/sui"
)

// Server represents the HTTP server for the interpretation service.
type Server struct {
	addr      string
	engine    Interpreter
	active    *sui.ActiveSource
	archive   Archive
	publisher natspkg.Publisher
	jobs      JobRunner
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The archive is optional - if nil, archive endpoints respond 404 and
// interpretations are not stored.
// The publisher is optional - if nil, interpretations are not published.
// The jobs runner is optional - if nil, job endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, engine Interpreter, active *sui.ActiveSource, archive Archive, publisher natspkg.Publisher, jobs JobRunner, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		engine:    engine,
		active:    active,
		archive:   archive,
		publisher: publisher,
		jobs:      jobs,
		metrics:   m,
		logger:    logger,
	}
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	sinks := &sinks{archive: s.archive, publisher: s.publisher, logger: s.logger}

	// Interpretation routes
	mux.Handle("GET /api/v1/transactions/{digest}", handleInterpretTransaction(s.engine, s.active, s.archive, sinks, s.logger))
	mux.Handle("POST /api/v1/explain", handleExplainTransaction(s.engine, s.logger))

	// Archive routes
	mux.Handle("GET /api/v1/interpretations", handleListInterpretations(s.archive, s.logger))
	mux.Handle("GET /api/v1/interpretations/{digest}", handleGetInterpretation(s.archive, s.logger))

	// Background job routes (if Temporal is configured)
	if s.jobs != nil {
		mux.Handle("POST /api/v1/jobs", handleStartJob(s.jobs, s.logger))
		mux.Handle("GET /api/v1/jobs/{workflow_id}", handleGetJob(s.jobs, s.logger))
		s.logger.Info("job endpoints enabled")
	} else {
		s.logger.Warn("temporal not configured, job endpoints disabled")
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status": "ok",
			"source": s.active.Get().Name,
		}, http.StatusOK)
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(metrics.HTTPMetricsMiddleware(s.metrics)(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // one interpretation may retry and fall back
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server",
		"addr", s.addr,
		"source", s.active.Get().Name,
		"archive", s.archive != nil,
		"publish", s.publisher != nil,
	)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
