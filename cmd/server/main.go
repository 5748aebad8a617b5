package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/txplain/service/config"
	"github.com/brojonat/txplain/service/db"
	"github.com/brojonat/txplain/service/interpret"
	"github.com/brojonat/txplain/service/metrics"
	natspkg "github.com/brojonat/txplain/service/nats"
	"github.com/brojonat/txplain/service/server"
	"github.com/brojonat/txplain/service/temporal"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(nil)

	engine, active, err := interpret.FromConfig(cfg, m, logger)
	if err != nil {
		logger.Error("failed to build interpretation engine", "error", err)
		os.Exit(1)
	}
	logger.Info("initialized sui rpc sources",
		"primary", active.Get().Name,
		"fallbacks", len(cfg.SuiFallbackRPCURLs),
	)

	// Optional sinks stay untyped nil when disabled so the handlers can
	// tell them apart from a configured dependency.
	var archive server.Archive
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
		store := db.NewStore(dbPool, m)
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		archive = store
		logger.Info("connected to database")
	} else {
		logger.Info("DATABASE_URL not set, archive disabled")
	}

	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		p, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Info("NATS_URL not set, event publishing disabled")
	}

	// Jobs are optional: the synchronous API keeps working without Temporal.
	var jobs server.JobRunner
	temporalClient, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
	if err != nil {
		logger.Warn("temporal unavailable, background jobs disabled", "error", err)
	} else {
		defer temporalClient.Close()
		jobs = temporalClient
	}

	httpServer := server.New(cfg.ServerAddr, engine, active, archive, publisher, jobs, m, logger)

	logger.Info("server initialized, all dependencies ready",
		"archive", archive != nil,
		"nats", publisher != nil,
		"jobs", jobs != nil,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
