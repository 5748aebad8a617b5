package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// InterpretTransactionWorkflow interprets one transaction, then archives
// and publishes the result. Archive and publish failures are logged and
// reported in the result; they never fail the workflow.
func InterpretTransactionWorkflow(ctx workflow.Context, input InterpretWorkflowInput) (*InterpretWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("InterpretTransactionWorkflow started", "digest", input.Digest)

	result := &InterpretWorkflowResult{Digest: input.Digest}

	// A single interpretation already retries and falls back internally,
	// so the activity-level policy stays short.
	interpretCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInvalidDigest, ErrTypeNotFound},
		},
	})

	var interpreted *InterpretResult
	err := workflow.ExecuteActivity(interpretCtx, a.InterpretTransaction, InterpretInput{Digest: input.Digest}).Get(ctx, &interpreted)
	if err != nil {
		logger.Error("failed to interpret transaction", "digest", input.Digest, "error", err)
		errMsg := fmt.Sprintf("failed to interpret transaction: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to interpret transaction: %w", err)
	}

	result.Transaction = interpreted.Transaction
	result.Source = interpreted.Source

	sinkCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})
	sinkInput := ArchiveInput{Transaction: interpreted.Transaction, Source: interpreted.Source}

	var archived *ArchiveResult
	if err := workflow.ExecuteActivity(sinkCtx, a.ArchiveInterpretation, sinkInput).Get(ctx, &archived); err != nil {
		logger.Warn("failed to archive interpretation", "digest", input.Digest, "error", err)
	} else {
		result.Archived = archived.Written
	}

	var published *ArchiveResult
	if err := workflow.ExecuteActivity(sinkCtx, a.PublishInterpretation, sinkInput).Get(ctx, &published); err != nil {
		logger.Warn("failed to publish interpretation", "digest", input.Digest, "error", err)
	} else {
		result.Published = published.Written
	}

	logger.Info("InterpretTransactionWorkflow completed",
		"digest", input.Digest,
		"headline_tier", interpreted.Transaction.HeadlineTier,
		"archived", result.Archived,
		"published", result.Published,
	)
	return result, nil
}

// PruneArchiveWorkflow deletes archived interpretations past retention.
// It is triggered by the prune schedule.
func PruneArchiveWorkflow(ctx workflow.Context, input PruneInput) (*PruneResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	var result *PruneResult
	if err := workflow.ExecuteActivity(ctx, a.PruneArchive, input).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to prune archive: %w", err)
	}
	workflow.GetLogger(ctx).Info("PruneArchiveWorkflow completed", "deleted", result.Deleted)
	return result, nil
}
