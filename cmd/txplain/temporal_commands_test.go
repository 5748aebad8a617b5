package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func temporalHost(t *testing.T) string {
	t.Helper()

	// Skip by default - require explicit opt-in
	if os.Getenv("RUN_TEMPORAL_TESTS") == "" {
		t.Skip("Skipping Temporal integration test (set RUN_TEMPORAL_TESTS=1 to enable)")
	}

	host := os.Getenv("TEST_TEMPORAL_HOST")
	if host == "" {
		host = "localhost:7233"
	}
	return host
}

func TestPruneScheduleCommands(t *testing.T) {
	host := temporalHost(t)
	t.Cleanup(func() {
		_, _ = runApp(t, "--temporal-host", host, "temporal", "delete-prune-schedule")
	})

	out, err := runApp(t, "--temporal-host", host, "--temporal-task-queue", "txplain-interpret-test",
		"temporal", "upsert-prune-schedule", "--retention", "720h", "--every", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Prune schedule set")

	// Upserting again updates in place.
	_, err = runApp(t, "--temporal-host", host, "--temporal-task-queue", "txplain-interpret-test",
		"temporal", "upsert-prune-schedule", "--retention", "360h", "--every", "2h")
	require.NoError(t, err)

	out, err = runApp(t, "--temporal-host", host, "temporal", "describe-prune-schedule")
	require.NoError(t, err)
	assert.Contains(t, out, "txplain-prune-archive")
	assert.Contains(t, out, "txplain-interpret-test")
	assert.Contains(t, out, "Every 2h0m0s")

	out, err = runApp(t, "--temporal-host", host, "temporal", "delete-prune-schedule")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted schedule")
}

func TestUpsertPruneSchedule_RejectsNonPositive(t *testing.T) {
	_, err := runApp(t, "temporal", "upsert-prune-schedule", "--retention", "0s")
	assert.ErrorContains(t, err, "must be positive")
}

func TestStartJobCommand_InvalidDigest(t *testing.T) {
	_, err := runApp(t, "temporal", "start", "bogus!")
	assert.ErrorContains(t, err, "invalid transaction digest")
}
