package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/txplain/service/metrics"
	"github.com/brojonat/txplain/service/sui"
)

// fetcherFunc adapts a function to ObjectFetcher.
type fetcherFunc func(ctx context.Context, id string) (*sui.EnrichedObject, error)

func (f fetcherFunc) GetObject(ctx context.Context, id string) (*sui.EnrichedObject, error) {
	return f(ctx, id)
}

var testConfig = Config{
	ObjectTimeout: 40 * time.Millisecond,
	BatchTimeout:  80 * time.Millisecond,
}

func change(kind, objectType, id string) sui.ObjectChange {
	return sui.ObjectChange{Type: kind, ObjectType: objectType, ObjectID: id}
}

func txWith(changes ...sui.ObjectChange) *sui.RawTransaction {
	return &sui.RawTransaction{Digest: "d", ObjectChanges: changes}
}

const (
	coinType = "0x2::coin::Coin<0x2::sui::SUI>"
	nftType  = "0xabc::capy::Capy"
)

func TestSelect_CapsPerCategory(t *testing.T) {
	var changes []sui.ObjectChange
	for i := range 6 {
		changes = append(changes,
			change(sui.ChangeTransferred, coinType, fmt.Sprintf("coin-%d", i)),
			change(sui.ChangeCreated, nftType, fmt.Sprintf("new-%d", i)),
			change(sui.ChangeTransferred, nftType, fmt.Sprintf("nft-%d", i)),
			change(sui.ChangeMutated, nftType, fmt.Sprintf("mut-%d", i)),
		)
	}

	ids := Select(txWith(changes...))

	assert.Equal(t, []string{
		"coin-0", "coin-1", "coin-2",
		"new-0", "new-1", "new-2", "new-3", "new-4",
		"nft-0", "nft-1", "nft-2", "nft-3", "nft-4",
	}, ids)
}

func TestSelect_Dedupes(t *testing.T) {
	ids := Select(txWith(
		change(sui.ChangeCreated, nftType, "0x1"),
		change(sui.ChangeTransferred, nftType, "0x1"),
		change(sui.ChangeTransferred, nftType, ""),
	))
	assert.Equal(t, []string{"0x1"}, ids)
}

func TestEnrich_EmptySelectionDoesNotCallFetcher(t *testing.T) {
	var calls atomic.Int32
	src := fetcherFunc(func(ctx context.Context, id string) (*sui.EnrichedObject, error) {
		calls.Add(1)
		return nil, nil
	})

	out := New(testConfig, nil, nil).Enrich(context.Background(), src,
		txWith(change(sui.ChangeMutated, nftType, "0x1"), change(sui.ChangeDeleted, "", "0x2")))

	assert.Empty(t, out)
	assert.NotNil(t, out)
	assert.Equal(t, int32(0), calls.Load())
}

func TestEnrich_CollectsSuccesses(t *testing.T) {
	src := fetcherFunc(func(ctx context.Context, id string) (*sui.EnrichedObject, error) {
		return &sui.EnrichedObject{ObjectID: id, Type: nftType}, nil
	})

	out := New(testConfig, nil, nil).Enrich(context.Background(), src,
		txWith(change(sui.ChangeCreated, nftType, "0x1"), change(sui.ChangeTransferred, nftType, "0x2")))

	require.Len(t, out, 2)
	assert.Equal(t, "0x1", out["0x1"].ObjectID)
	assert.Equal(t, "0x2", out["0x2"].ObjectID)
}

func TestEnrich_EveryFetchFails(t *testing.T) {
	src := fetcherFunc(func(ctx context.Context, id string) (*sui.EnrichedObject, error) {
		if id == "0x3" {
			panic("boom")
		}
		return nil, errors.New("connection refused")
	})

	var out map[string]*sui.EnrichedObject
	require.NotPanics(t, func() {
		out = New(testConfig, nil, nil).Enrich(context.Background(), src, txWith(
			change(sui.ChangeCreated, nftType, "0x1"),
			change(sui.ChangeTransferred, coinType, "0x2"),
			change(sui.ChangeTransferred, nftType, "0x3"),
		))
	})
	assert.Empty(t, out)
}

func TestEnrich_SlowObjectIsOmitted(t *testing.T) {
	src := fetcherFunc(func(ctx context.Context, id string) (*sui.EnrichedObject, error) {
		if id == "slow" {
			// Ignores ctx on purpose.
			time.Sleep(300 * time.Millisecond)
		}
		return &sui.EnrichedObject{ObjectID: id}, nil
	})

	start := time.Now()
	out := New(testConfig, nil, nil).Enrich(context.Background(), src, txWith(
		change(sui.ChangeCreated, nftType, "fast"),
		change(sui.ChangeCreated, nftType, "slow"),
	))

	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Contains(t, out, "fast")
	assert.NotContains(t, out, "slow")
}

func TestEnrich_BatchDeadlineCapsTotalLatency(t *testing.T) {
	cfg := Config{ObjectTimeout: time.Second, BatchTimeout: 50 * time.Millisecond}
	src := fetcherFunc(func(ctx context.Context, id string) (*sui.EnrichedObject, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	out := New(cfg, nil, nil).Enrich(context.Background(), src, txWith(
		change(sui.ChangeCreated, nftType, "0x1"),
		change(sui.ChangeCreated, nftType, "0x2"),
	))

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, out)
}

func TestEnrich_RecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	src := fetcherFunc(func(ctx context.Context, id string) (*sui.EnrichedObject, error) {
		return &sui.EnrichedObject{ObjectID: id}, nil
	})

	out := New(testConfig, m, nil).Enrich(context.Background(), src, txWith(change(sui.ChangeCreated, nftType, "0x1")))

	assert.Len(t, out, 1)
}
