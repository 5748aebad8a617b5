package temporal

import (
	"context"
	"time"
)

// PruneScheduleID is the ID of the schedule that triggers PruneArchiveWorkflow.
const PruneScheduleID = "txplain-prune-archive"

// Scheduler manages the archive prune schedule.
type Scheduler interface {
	// UpsertPruneSchedule creates or updates the schedule so that
	// PruneArchiveWorkflow runs every interval with the given retention.
	UpsertPruneSchedule(ctx context.Context, every, retention time.Duration) error

	// DeletePruneSchedule removes the schedule. Deleting a missing
	// schedule is an error.
	DeletePruneSchedule(ctx context.Context) error
}

// EnsurePruneSchedule installs the prune schedule when retention is
// positive and removes any existing one otherwise.
func EnsurePruneSchedule(ctx context.Context, s Scheduler, every, retention time.Duration) error {
	if retention <= 0 {
		// Nothing to remove is the common case.
		_ = s.DeletePruneSchedule(ctx)
		return nil
	}
	return s.UpsertPruneSchedule(ctx, every, retention)
}
