package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalsdk "go.temporal.io/sdk/temporal"

	"github.com/brojonat/txplain/service/db"
	"github.com/brojonat/txplain/service/interpret"
	natspkg "github.com/brojonat/txplain/service/nats"
	"github.com/brojonat/txplain/service/sui"
)

// Mock Interpreter
type MockInterpreter struct {
	mock.Mock
}

func (m *MockInterpreter) Interpret(ctx context.Context, src sui.Source, digest string) (*interpret.Result, error) {
	args := m.Called(ctx, src, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interpret.Result), args.Error(1)
}

// Mock Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveInterpretation(ctx context.Context, tx *interpret.InterpretedTransaction, source string) (*db.Interpretation, error) {
	args := m.Called(ctx, tx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Interpretation), args.Error(1)
}

func (m *MockStore) DeleteInterpretationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

var (
	primary = sui.Source{Name: "primary", URL: "https://primary.example"}
	backup  = sui.Source{Name: "backup", URL: "https://backup.example"}
)

func newTestActivities(interpreter Interpreter, store StoreInterface, publisher PublisherInterface) (*Activities, *sui.ActiveSource) {
	active := sui.NewActiveSource(primary)
	return NewActivities(interpreter, active, store, publisher, nil, slog.Default()), active
}

func requireApplicationErrorType(t *testing.T, err error, errType string) {
	t.Helper()
	var appErr *temporalsdk.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errType, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestActivities_InterpretTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("success keeps the active source", func(t *testing.T) {
		interpreter := new(MockInterpreter)
		interpreter.On("Interpret", mock.Anything, primary, testDigest).
			Return(&interpret.Result{Transaction: testInterpretation(), Source: primary}, nil)

		activities, active := newTestActivities(interpreter, nil, nil)
		result, err := activities.InterpretTransaction(ctx, InterpretInput{Digest: testDigest})

		require.NoError(t, err)
		assert.Equal(t, "primary", result.Source)
		assert.False(t, result.Switched)
		assert.Equal(t, primary, active.Get())
		interpreter.AssertExpectations(t)
	})

	t.Run("switch updates the active source", func(t *testing.T) {
		interpreter := new(MockInterpreter)
		interpreter.On("Interpret", mock.Anything, primary, testDigest).
			Return(&interpret.Result{Transaction: testInterpretation(), Source: backup, Switched: true}, nil)

		activities, active := newTestActivities(interpreter, nil, nil)
		result, err := activities.InterpretTransaction(ctx, InterpretInput{Digest: testDigest})

		require.NoError(t, err)
		assert.True(t, result.Switched)
		assert.Equal(t, "backup", result.Source)
		assert.Equal(t, backup, active.Get())
	})

	t.Run("invalid digest is non-retryable", func(t *testing.T) {
		interpreter := new(MockInterpreter)
		interpreter.On("Interpret", mock.Anything, primary, "bad").
			Return(nil, fmt.Errorf("%w %q: must be base58", sui.ErrInvalidDigest, "bad"))

		activities, _ := newTestActivities(interpreter, nil, nil)
		_, err := activities.InterpretTransaction(ctx, InterpretInput{Digest: "bad"})

		requireApplicationErrorType(t, err, ErrTypeInvalidDigest)
	})

	t.Run("not found is non-retryable", func(t *testing.T) {
		interpreter := new(MockInterpreter)
		interpreter.On("Interpret", mock.Anything, primary, testDigest).
			Return(nil, &sui.FetchError{Kind: sui.ErrorNotFound, Message: "transaction not found"})

		activities, _ := newTestActivities(interpreter, nil, nil)
		_, err := activities.InterpretTransaction(ctx, InterpretInput{Digest: testDigest})

		requireApplicationErrorType(t, err, ErrTypeNotFound)
	})

	t.Run("rate limit stays retryable", func(t *testing.T) {
		interpreter := new(MockInterpreter)
		fe := &sui.FetchError{Kind: sui.ErrorRateLimited, Message: "rate limited"}
		interpreter.On("Interpret", mock.Anything, primary, testDigest).Return(nil, fe)

		activities, active := newTestActivities(interpreter, nil, nil)
		_, err := activities.InterpretTransaction(ctx, InterpretInput{Digest: testDigest})

		require.Error(t, err)
		var appErr *temporalsdk.ApplicationError
		assert.False(t, errors.As(err, &appErr))
		assert.Equal(t, primary, active.Get())
	})
}

func TestActivities_ArchiveInterpretation(t *testing.T) {
	ctx := context.Background()
	tx := testInterpretation()

	t.Run("no store configured", func(t *testing.T) {
		activities, _ := newTestActivities(nil, nil, nil)
		result, err := activities.ArchiveInterpretation(ctx, ArchiveInput{Transaction: tx})
		require.NoError(t, err)
		assert.False(t, result.Written)
	})

	t.Run("saves with source", func(t *testing.T) {
		store := new(MockStore)
		store.On("SaveInterpretation", mock.Anything, tx, "primary").Return(&db.Interpretation{Digest: tx.Digest}, nil)

		activities, _ := newTestActivities(nil, store, nil)
		result, err := activities.ArchiveInterpretation(ctx, ArchiveInput{Transaction: tx, Source: "primary"})

		require.NoError(t, err)
		assert.True(t, result.Written)
		store.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		store := new(MockStore)
		store.On("SaveInterpretation", mock.Anything, tx, "").Return(nil, errors.New("connection refused"))

		activities, _ := newTestActivities(nil, store, nil)
		_, err := activities.ArchiveInterpretation(ctx, ArchiveInput{Transaction: tx})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to archive interpretation")
	})

	t.Run("missing transaction", func(t *testing.T) {
		activities, _ := newTestActivities(nil, new(MockStore), nil)
		_, err := activities.ArchiveInterpretation(ctx, ArchiveInput{})
		assert.Error(t, err)
	})
}

func TestActivities_PublishInterpretation(t *testing.T) {
	ctx := context.Background()
	tx := testInterpretation()

	t.Run("publishes event", func(t *testing.T) {
		publisher := natspkg.NewMockPublisher()
		activities, _ := newTestActivities(nil, nil, publisher)

		result, err := activities.PublishInterpretation(ctx, ArchiveInput{Transaction: tx, Source: "primary"})

		require.NoError(t, err)
		assert.True(t, result.Written)
		events := publisher.EventsForSender("0xa11ce")
		require.Len(t, events, 1)
		assert.Equal(t, testDigest, events[0].Digest)
		assert.Equal(t, "primary", events[0].Source)
	})

	t.Run("publish error", func(t *testing.T) {
		publisher := natspkg.NewMockPublisher()
		publisher.SetPublishError(errors.New("nats down"))
		activities, _ := newTestActivities(nil, nil, publisher)

		_, err := activities.PublishInterpretation(ctx, ArchiveInput{Transaction: tx})
		assert.Error(t, err)
	})

	t.Run("no publisher configured", func(t *testing.T) {
		activities, _ := newTestActivities(nil, nil, nil)
		result, err := activities.PublishInterpretation(ctx, ArchiveInput{Transaction: tx})
		require.NoError(t, err)
		assert.False(t, result.Written)
	})
}

func TestActivities_PruneArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes before cutoff", func(t *testing.T) {
		store := new(MockStore)
		store.On("DeleteInterpretationsOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
			return time.Since(cutoff) > 23*time.Hour && time.Since(cutoff) < 25*time.Hour
		})).Return(int64(7), nil)

		activities, _ := newTestActivities(nil, store, nil)
		result, err := activities.PruneArchive(ctx, PruneInput{Retention: 24 * time.Hour})

		require.NoError(t, err)
		assert.Equal(t, int64(7), result.Deleted)
		store.AssertExpectations(t)
	})

	t.Run("zero retention is a no-op", func(t *testing.T) {
		store := new(MockStore)
		activities, _ := newTestActivities(nil, store, nil)

		result, err := activities.PruneArchive(ctx, PruneInput{})

		require.NoError(t, err)
		assert.Zero(t, result.Deleted)
		store.AssertNotCalled(t, "DeleteInterpretationsOlderThan", mock.Anything, mock.Anything)
	})
}

func TestEnsurePruneSchedule(t *testing.T) {
	ctx := context.Background()

	s := NewMockScheduler()
	require.NoError(t, EnsurePruneSchedule(ctx, s, time.Hour, 720*time.Hour))
	every, retention, exists := s.Schedule()
	assert.True(t, exists)
	assert.Equal(t, time.Hour, every)
	assert.Equal(t, 720*time.Hour, retention)

	require.NoError(t, EnsurePruneSchedule(ctx, s, time.Hour, 0))
	_, _, exists = s.Schedule()
	assert.False(t, exists)

	// Removing a schedule that does not exist is fine.
	assert.NoError(t, EnsurePruneSchedule(ctx, s, time.Hour, 0))

	s.SetUpsertError(errors.New("temporal unavailable"))
	assert.Error(t, EnsurePruneSchedule(ctx, s, time.Hour, time.Hour))
}
