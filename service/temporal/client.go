package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// ErrWorkflowRunning is returned by InterpretWorkflowResult while the
// workflow has not completed.
var ErrWorkflowRunning = errors.New("workflow still running")

// Client starts interpretation workflows and manages the prune schedule.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// InterpretWorkflowID is the workflow ID used for a digest. Concurrent
// requests for the same digest attach to the same run.
func InterpretWorkflowID(digest string) string {
	return "interpret-" + digest
}

// StartInterpretWorkflow starts InterpretTransactionWorkflow for digest and
// returns the workflow ID. If a run for the digest is already in flight it
// is reused.
func (c *Client) StartInterpretWorkflow(ctx context.Context, digest string) (string, error) {
	id := InterpretWorkflowID(digest)
	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: 10 * time.Minute,
	}, InterpretTransactionWorkflow, InterpretWorkflowInput{Digest: digest})
	if err != nil {
		return "", fmt.Errorf("failed to start workflow %q: %w", id, err)
	}

	c.logger.Debug("interpret workflow started",
		"digest", digest,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run.GetID(), nil
}

// InterpretWorkflowResult returns the result of a completed interpretation
// workflow, or ErrWorkflowRunning if it has not finished.
func (c *Client) InterpretWorkflowResult(ctx context.Context, workflowID string) (*InterpretWorkflowResult, error) {
	desc, err := c.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to describe workflow %q: %w", workflowID, err)
	}
	if desc.GetWorkflowExecutionInfo().GetStatus() == enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING {
		return nil, ErrWorkflowRunning
	}

	var result InterpretWorkflowResult
	if err := c.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("workflow %q failed: %w", workflowID, err)
	}
	return &result, nil
}

// WaitInterpretWorkflow blocks until the workflow completes or ctx ends.
func (c *Client) WaitInterpretWorkflow(ctx context.Context, workflowID string) (*InterpretWorkflowResult, error) {
	var result InterpretWorkflowResult
	if err := c.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("workflow %q failed: %w", workflowID, err)
	}
	return &result, nil
}

// UpsertPruneSchedule creates or updates the archive prune schedule.
func (c *Client) UpsertPruneSchedule(ctx context.Context, every, retention time.Duration) error {
	handle := c.client.ScheduleClient().GetHandle(ctx, PruneScheduleID)
	if _, err := handle.Describe(ctx); err != nil {
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", PruneScheduleID,
			"error", err,
		)
		return c.createPruneSchedule(ctx, every, retention)
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{{Every: every}}
			input.Description.Schedule.Action = c.pruneAction(retention)
			return &client.ScheduleUpdate{Schedule: &input.Description.Schedule}, nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update schedule %q: %w", PruneScheduleID, err)
	}

	c.logger.Info("prune schedule updated",
		"schedule_id", PruneScheduleID,
		"interval", every,
		"retention", retention,
	)
	return nil
}

func (c *Client) createPruneSchedule(ctx context.Context, every, retention time.Duration) error {
	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: PruneScheduleID,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: every}},
		},
		Action: c.pruneAction(retention),
		Memo: map[string]any{
			"retention":  retention.String(),
			"created_by": "txplain",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create schedule %q: %w", PruneScheduleID, err)
	}

	c.logger.Info("prune schedule created",
		"schedule_id", PruneScheduleID,
		"interval", every,
		"retention", retention,
	)
	return nil
}

func (c *Client) pruneAction(retention time.Duration) *client.ScheduleWorkflowAction {
	return &client.ScheduleWorkflowAction{
		ID:        PruneScheduleID,
		Workflow:  PruneArchiveWorkflow,
		TaskQueue: c.taskQueue,
		Args:      []any{PruneInput{Retention: retention}},
	}
}

// DeletePruneSchedule deletes the archive prune schedule.
func (c *Client) DeletePruneSchedule(ctx context.Context) error {
	handle := c.client.ScheduleClient().GetHandle(ctx, PruneScheduleID)
	if err := handle.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete schedule %q: %w", PruneScheduleID, err)
	}
	c.logger.Info("prune schedule deleted", "schedule_id", PruneScheduleID)
	return nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...any) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...any) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...any) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...any) {
	l.logger.Error(msg, keyvals...)
}
