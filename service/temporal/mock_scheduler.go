package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler is an in-memory Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	every     time.Duration
	retention time.Duration
	exists    bool
	upsertErr error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{}
}

// UpsertPruneSchedule records the schedule.
func (m *MockScheduler) UpsertPruneSchedule(ctx context.Context, every, retention time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.every = every
	m.retention = retention
	m.exists = true
	return nil
}

// DeletePruneSchedule removes the schedule.
func (m *MockScheduler) DeletePruneSchedule(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return fmt.Errorf("schedule %q not found", PruneScheduleID)
	}
	m.exists = false
	return nil
}

// Schedule returns the recorded schedule and whether it exists.
func (m *MockScheduler) Schedule() (every, retention time.Duration, exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.every, m.retention, m.exists
}

// SetUpsertError makes UpsertPruneSchedule fail with err.
func (m *MockScheduler) SetUpsertError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertErr = err
}
