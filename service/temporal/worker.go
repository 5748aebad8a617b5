package temporal

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/brojonat/txplain/service/metrics"
	"github.com/brojonat/txplain/service/sui"
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// Temporal connection settings
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	// Dependencies
	Interpreter Interpreter
	Active      *sui.ActiveSource
	Store       StoreInterface     // Optional: archive disabled when nil
	Publisher   PublisherInterface // Optional: publishing disabled when nil
	Metrics     *metrics.Metrics   // Optional: if nil, no metrics will be recorded
	Logger      *slog.Logger
}

// Worker wraps a Temporal worker and provides lifecycle management.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker creates and configures a new Temporal worker.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Interpreter == nil || config.Active == nil {
		return nil, fmt.Errorf("interpreter and active source are required")
	}

	logger := config.Logger.With("component", "temporal_worker")

	logger.Info("creating temporal worker",
		"host", config.TemporalHost,
		"namespace", config.TemporalNamespace,
		"task_queue", config.TaskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  config.TemporalHost,
		Namespace: config.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal: %w", err)
	}

	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     10,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(InterpretTransactionWorkflow)
	w.RegisterWorkflow(PruneArchiveWorkflow)

	activities := NewActivities(
		config.Interpreter,
		config.Active,
		config.Store,
		config.Publisher,
		config.Metrics,
		logger,
	)
	w.RegisterActivity(activities)

	logger.Info("registered workflows and activities",
		"workflows", []string{"InterpretTransactionWorkflow", "PruneArchiveWorkflow"},
		"archive", config.Store != nil,
		"publish", config.Publisher != nil,
	)

	return &Worker{
		client: c,
		worker: w,
		logger: logger,
	}, nil
}

// Start begins processing workflows and activities.
// This method blocks until an interrupt signal is received or an error occurs.
func (w *Worker) Start() error {
	w.logger.Info("starting temporal worker")
	err := w.worker.Run(worker.InterruptCh())
	if err != nil {
		w.logger.Error("worker stopped with error", "error", err)
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	w.logger.Info("worker stopped gracefully")
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping temporal worker")
	w.worker.Stop()
	w.client.Close()
	w.logger.Info("temporal worker stopped")
}
