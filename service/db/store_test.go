package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/txplain/service/interpret"
)

func newInterpretation(digest, sender, headline string) *interpret.InterpretedTransaction {
	return &interpret.InterpretedTransaction{
		Digest:       digest,
		Sender:       sender,
		Success:      true,
		GasCostMist:  "2521880",
		GasCost:      "0.002521880",
		Bullets:      []string{"{{User A}} paid 0.002521880 SUI in gas."},
		Headline:     headline,
		HeadlineTier: "coin-transfer",
		Breakdown:    []string{},
	}
}

func TestSaveInterpretation(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	t.Run("insert", func(t *testing.T) {
		tx := newInterpretation("digest-1", "0xA11CE", "{{User A}} sent 1 SUI to {{User B}}.")

		saved, err := store.SaveInterpretation(ctx, tx, "fullnode.mainnet.sui.io")
		require.NoError(t, err)
		require.NotNil(t, saved)

		assert.Equal(t, "digest-1", saved.Digest)
		assert.Equal(t, "0xa11ce", saved.Sender, "sender is stored lowercased")
		assert.True(t, saved.Success)
		assert.Equal(t, "2521880", saved.GasCostMist)
		require.NotNil(t, saved.Source)
		assert.Equal(t, "fullnode.mainnet.sui.io", *saved.Source)
		assert.WithinDuration(t, time.Now(), saved.CreatedAt, 5*time.Second)

		decoded, err := saved.Decode()
		require.NoError(t, err)
		assert.Equal(t, tx.Headline, decoded.Headline)
		assert.Equal(t, tx.Bullets, decoded.Bullets)
	})

	t.Run("upsert replaces payload and keeps source", func(t *testing.T) {
		tx := newInterpretation("digest-1", "0xa11ce", "{{User A}} called a contract.")

		saved, err := store.SaveInterpretation(ctx, tx, "")
		require.NoError(t, err)
		assert.Equal(t, "{{User A}} called a contract.", saved.Headline)
		require.NotNil(t, saved.Source)
		assert.Equal(t, "fullnode.mainnet.sui.io", *saved.Source)
	})

	t.Run("offline interpretation has no source", func(t *testing.T) {
		saved, err := store.SaveInterpretation(ctx, newInterpretation("digest-2", "0xb0b", "x"), "")
		require.NoError(t, err)
		assert.Nil(t, saved.Source)
	})

	t.Run("rejects malformed gas", func(t *testing.T) {
		tx := newInterpretation("digest-3", "0xb0b", "x")
		tx.GasCostMist = "lots"
		_, err := store.SaveInterpretation(ctx, tx, "")
		assert.Error(t, err)
	})
}

func TestGetInterpretation(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	_, err := store.SaveInterpretation(ctx, newInterpretation("digest-1", "0xa11ce", "h"), "")
	require.NoError(t, err)

	got, err := store.GetInterpretation(ctx, "digest-1")
	require.NoError(t, err)
	assert.Equal(t, "h", got.Headline)

	_, err = store.GetInterpretation(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListInterpretations(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	for _, d := range []string{"d1", "d2", "d3"} {
		_, err := store.SaveInterpretation(ctx, newInterpretation(d, "0xa11ce", d), "")
		require.NoError(t, err)
	}
	_, err := store.SaveInterpretation(ctx, newInterpretation("d4", "0xb0b", "d4"), "")
	require.NoError(t, err)

	t.Run("all senders", func(t *testing.T) {
		got, err := store.ListInterpretations(ctx, ListInterpretationsParams{Limit: 10})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("filter by sender is case-insensitive", func(t *testing.T) {
		got, err := store.ListInterpretations(ctx, ListInterpretationsParams{Sender: "0xA11CE", Limit: 10})
		require.NoError(t, err)
		assert.Len(t, got, 3)
		for _, i := range got {
			assert.Equal(t, "0xa11ce", i.Sender)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		page1, err := store.ListInterpretations(ctx, ListInterpretationsParams{Limit: 2})
		require.NoError(t, err)
		page2, err := store.ListInterpretations(ctx, ListInterpretationsParams{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, page1, 2)
		assert.Len(t, page2, 2)
		assert.NotEqual(t, page1[0].Digest, page2[0].Digest)
	})
}

func TestDeleteInterpretationsOlderThan(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	_, err := store.SaveInterpretation(ctx, newInterpretation("old", "0xa11ce", "h"), "")
	require.NoError(t, err)
	store.MustExec(t, "UPDATE interpretations SET created_at = NOW() - INTERVAL '40 days' WHERE digest = 'old'")
	_, err = store.SaveInterpretation(ctx, newInterpretation("new", "0xa11ce", "h"), "")
	require.NoError(t, err)

	n, err := store.DeleteInterpretationsOlderThan(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetInterpretation(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetInterpretation(ctx, "new")
	assert.NoError(t, err)
}
