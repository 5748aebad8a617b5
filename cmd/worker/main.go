package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/txplain/service/config"
	"github.com/brojonat/txplain/service/db"
	"github.com/brojonat/txplain/service/interpret"
	"github.com/brojonat/txplain/service/metrics"
	natspkg "github.com/brojonat/txplain/service/nats"
	"github.com/brojonat/txplain/service/temporal"
)

func main() {
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	metricsAddr := getEnv("METRICS_ADDR", ":9091")
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	engine, active, err := interpret.FromConfig(cfg, metricsCollector, logger)
	if err != nil {
		logger.Error("failed to build interpretation engine", "error", err)
		os.Exit(1)
	}

	var store temporal.StoreInterface
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		s := db.NewStore(dbPool, metricsCollector)
		if err := s.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		store = s
		logger.Info("connected to database")
	}

	var publisher temporal.PublisherInterface
	if cfg.NATSURL != "" {
		p, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	// Temporal client for schedule management
	temporalClient, err := temporal.NewClient(
		cfg.TemporalHost,
		cfg.TemporalNamespace,
		cfg.TemporalTaskQueue,
		logger,
	)
	if err != nil {
		logger.Error("failed to create temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	retention := cfg.ArchiveRetention
	if store == nil {
		retention = 0
	}
	if err := temporal.EnsurePruneSchedule(ctx, temporalClient, cfg.PruneInterval, retention); err != nil {
		logger.Error("failed to reconcile prune schedule", "error", err)
		os.Exit(1)
	}
	logger.Info("prune schedule reconciled",
		"retention", retention.String(),
		"every", cfg.PruneInterval.String(),
	)

	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Interpreter:       engine,
		Active:            active,
		Store:             store,
		Publisher:         publisher,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"primary_source", active.Get().Name,
		"fallback_sources", len(cfg.SuiFallbackRPCURLs),
		"archive", store != nil,
		"nats", publisher != nil,
	)

	workerErrors := make(chan error, 1)
	go func() {
		logger.Info("starting temporal worker")
		workerErrors <- worker.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		logger.Info("stopping temporal worker")
		worker.Stop()
		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getEnv returns the value of an environment variable or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
