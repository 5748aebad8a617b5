package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"

	"github.com/brojonat/txplain/service/db"
	"github.com/brojonat/txplain/service/interpret"
	"github.com/brojonat/txplain/service/metrics"
	natspkg "github.com/brojonat/txplain/service/nats"
	"github.com/brojonat/txplain/service/sui"
)

// InterpretWorkflowInput contains the input for InterpretTransactionWorkflow.
type InterpretWorkflowInput struct {
	Digest string `json:"digest"`
}

// InterpretWorkflowResult contains the result of InterpretTransactionWorkflow.
type InterpretWorkflowResult struct {
	Digest      string                            `json:"digest"`
	Transaction *interpret.InterpretedTransaction `json:"transaction,omitempty"`
	Source      string                            `json:"source,omitempty"`
	Archived    bool                              `json:"archived"`
	Published   bool                              `json:"published"`
	Error       *string                           `json:"error,omitempty"`
}

// InterpretInput contains parameters for the InterpretTransaction activity.
type InterpretInput struct {
	Digest string `json:"digest"`
}

// InterpretResult contains the result of the InterpretTransaction activity.
type InterpretResult struct {
	Transaction *interpret.InterpretedTransaction `json:"transaction"`
	Source      string                            `json:"source"`
	Switched    bool                              `json:"switched"`
}

// ArchiveInput contains parameters for the ArchiveInterpretation and
// PublishInterpretation activities.
type ArchiveInput struct {
	Transaction *interpret.InterpretedTransaction `json:"transaction"`
	Source      string                            `json:"source"`
}

// ArchiveResult reports whether the sink was configured and written.
type ArchiveResult struct {
	Written bool `json:"written"`
}

// PruneInput contains parameters for the PruneArchive activity.
type PruneInput struct {
	Retention time.Duration `json:"retention"`
}

// PruneResult contains the result of the PruneArchive activity.
type PruneResult struct {
	Deleted int64 `json:"deleted"`
}

// Interpreter interprets a transaction starting from src.
type Interpreter interface {
	Interpret(ctx context.Context, src sui.Source, digest string) (*interpret.Result, error)
}

// StoreInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	SaveInterpretation(ctx context.Context, tx *interpret.InterpretedTransaction, source string) (*db.Interpretation, error)
	DeleteInterpretationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PublisherInterface defines the NATS publishing operations needed by activities.
type PublisherInterface interface {
	PublishInterpretation(ctx context.Context, event *natspkg.InterpretationEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
// store and publisher are optional; their activities no-op when nil.
type Activities struct {
	interpreter Interpreter
	active      *sui.ActiveSource
	store       StoreInterface
	publisher   PublisherInterface
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(
	interpreter Interpreter,
	active *sui.ActiveSource,
	store StoreInterface,
	publisher PublisherInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		interpreter: interpreter,
		active:      active,
		store:       store,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
	}
}

// Non-retryable application error types.
const (
	ErrTypeInvalidDigest = "InvalidDigest"
	ErrTypeNotFound      = "NotFound"
)

// InterpretTransaction interprets a digest starting from the worker's
// active source. A successful source switch is kept for later runs.
// Invalid digests and not-found transactions are not retried.
func (a *Activities) InterpretTransaction(ctx context.Context, input InterpretInput) (*InterpretResult, error) {
	start := time.Now()
	defer a.recordDuration("InterpretTransaction", start)

	src := a.active.Get()
	res, err := a.interpreter.Interpret(ctx, src, input.Digest)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to interpret transaction",
			"digest", input.Digest,
			"source", src.Name,
			"error", err,
		)
		if errors.Is(err, sui.ErrInvalidDigest) {
			return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidDigest, err)
		}
		if sui.IsKind(err, sui.ErrorNotFound) {
			return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
		}
		return nil, err
	}

	if res.Switched {
		a.active.Set(res.Source)
		a.logger.InfoContext(ctx, "active source updated",
			"from", src.Name,
			"to", res.Source.Name,
		)
	}

	return &InterpretResult{
		Transaction: res.Transaction,
		Source:      res.Source.Name,
		Switched:    res.Switched,
	}, nil
}

// ArchiveInterpretation stores the interpretation in Postgres.
func (a *Activities) ArchiveInterpretation(ctx context.Context, input ArchiveInput) (*ArchiveResult, error) {
	start := time.Now()
	defer a.recordDuration("ArchiveInterpretation", start)

	if a.store == nil {
		return &ArchiveResult{}, nil
	}
	if input.Transaction == nil {
		return nil, temporalsdk.NewNonRetryableApplicationError("transaction is required", "InvalidInput", nil)
	}

	if _, err := a.store.SaveInterpretation(ctx, input.Transaction, input.Source); err != nil {
		return nil, fmt.Errorf("failed to archive interpretation: %w", err)
	}

	a.logger.DebugContext(ctx, "archived interpretation", "digest", input.Transaction.Digest)
	return &ArchiveResult{Written: true}, nil
}

// PublishInterpretation publishes the interpretation event to NATS.
func (a *Activities) PublishInterpretation(ctx context.Context, input ArchiveInput) (*ArchiveResult, error) {
	start := time.Now()
	defer a.recordDuration("PublishInterpretation", start)

	if a.publisher == nil {
		return &ArchiveResult{}, nil
	}
	if input.Transaction == nil {
		return nil, temporalsdk.NewNonRetryableApplicationError("transaction is required", "InvalidInput", nil)
	}

	event := natspkg.FromInterpretation(input.Transaction, input.Source)
	if err := a.publisher.PublishInterpretation(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish interpretation: %w", err)
	}
	return &ArchiveResult{Written: true}, nil
}

// PruneArchive deletes archived interpretations older than the retention.
func (a *Activities) PruneArchive(ctx context.Context, input PruneInput) (*PruneResult, error) {
	start := time.Now()
	defer a.recordDuration("PruneArchive", start)

	if a.store == nil || input.Retention <= 0 {
		return &PruneResult{}, nil
	}

	cutoff := time.Now().Add(-input.Retention)
	deleted, err := a.store.DeleteInterpretationsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to prune archive: %w", err)
	}

	a.logger.InfoContext(ctx, "pruned archive",
		"cutoff", cutoff,
		"deleted", deleted,
	)
	return &PruneResult{Deleted: deleted}, nil
}

func (a *Activities) recordDuration(activity string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordActivityDuration(activity, time.Since(start).Seconds())
	}
}
