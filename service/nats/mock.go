package nats

import (
	"context"
	"sync"
)

// MockPublisher records events in memory for tests.
type MockPublisher struct {
	mu           sync.RWMutex
	events       []*InterpretationEvent
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishInterpretation records the event and returns any configured error.
func (m *MockPublisher) PublishInterpretation(ctx context.Context, event *InterpretationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.events = append(m.events, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []*InterpretationEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*InterpretationEvent, len(m.events))
	copy(events, m.events)
	return events
}

// EventsForSender returns events published to sender's subject.
func (m *MockPublisher) EventsForSender(sender string) []*InterpretationEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subject := SubjectFor(sender)
	var events []*InterpretationEvent
	for _, e := range m.events {
		if e.Subject() == subject {
			events = append(events, e)
		}
	}
	return events
}

// SetPublishError makes subsequent publishes fail with err.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
