// Package enrich fetches supplemental object data for a transaction under
// per-object and whole-batch time limits. Failures are absorbed.
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/txplain/service/metrics"
	"github.com/brojonat/txplain/service/sui"
)

// Selection caps, per category.
const (
	MaxCoinTransfers  = 3
	MaxCreated        = 5
	MaxOtherTransfers = 5
)

// ObjectFetcher is the object lookup the enricher needs; sui.RPCClient
// satisfies it.
type ObjectFetcher interface {
	GetObject(ctx context.Context, objectID string) (*sui.EnrichedObject, error)
}

// Config bounds enrichment latency.
type Config struct {
	ObjectTimeout time.Duration
	BatchTimeout  time.Duration
}

// DefaultConfig keeps the batch ceiling below the sum of per-object timeouts.
var DefaultConfig = Config{
	ObjectTimeout: 3 * time.Second,
	BatchTimeout:  5 * time.Second,
}

// Enricher runs the enrichment fan-out.
type Enricher struct {
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Enricher.
// If metrics is nil, no metrics will be recorded.
func New(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Enricher{cfg: cfg, metrics: m, logger: logger}
}

// Select picks the object ids worth enriching, in record order: up to
// MaxCoinTransfers coin transfers, MaxCreated created objects and
// MaxOtherTransfers other transfers. Ids are deduplicated.
func Select(raw *sui.RawTransaction) []string {
	if raw == nil {
		return nil
	}

	var coins, created, other []string
	seen := make(map[string]bool)
	take := func(dst *[]string, limit int, id string) {
		if id == "" || seen[id] || len(*dst) >= limit {
			return
		}
		seen[id] = true
		*dst = append(*dst, id)
	}

	for _, ch := range raw.ObjectChanges {
		switch ch.Type {
		case sui.ChangeTransferred:
			if sui.IsCoinType(ch.ObjectType) {
				take(&coins, MaxCoinTransfers, ch.ObjectID)
			} else {
				take(&other, MaxOtherTransfers, ch.ObjectID)
			}
		case sui.ChangeCreated:
			take(&created, MaxCreated, ch.ObjectID)
		}
	}

	ids := make([]string, 0, len(coins)+len(created)+len(other))
	ids = append(ids, coins...)
	ids = append(ids, created...)
	return append(ids, other...)
}

type result struct {
	id  string
	obj *sui.EnrichedObject
	err error
}

// Enrich fetches the selected objects concurrently and returns whatever
// arrived in time. It never fails; the map may be empty.
func (e *Enricher) Enrich(ctx context.Context, src ObjectFetcher, raw *sui.RawTransaction) map[string]*sui.EnrichedObject {
	out := make(map[string]*sui.EnrichedObject)

	ids := Select(raw)
	if e.metrics != nil {
		e.metrics.RecordEnrichmentBatch(len(ids))
	}
	if len(ids) == 0 || src == nil {
		return out
	}

	batchCtx, cancel := context.WithTimeout(ctx, e.cfg.BatchTimeout)
	defer cancel()

	results := make(chan result, len(ids))
	for _, id := range ids {
		go func() {
			obj, err := e.fetchOne(batchCtx, src, id)
			results <- result{id: id, obj: obj, err: err}
		}()
	}

	var failed, omitted int
collect:
	for handled := 0; handled < len(ids); handled++ {
		select {
		case r := <-results:
			switch {
			case r.err != nil:
				failed++
				e.logger.DebugContext(ctx, "object enrichment failed",
					"object_id", r.id,
					"error", r.err,
				)
			case r.obj != nil:
				out[r.id] = r.obj
			}
		case <-batchCtx.Done():
			omitted = len(ids) - handled
			e.logger.DebugContext(ctx, "enrichment batch deadline reached",
				"omitted", omitted,
				"received", len(out),
			)
			break collect
		}
	}

	if e.metrics != nil {
		e.metrics.RecordEnrichmentOutcome("success", len(out))
		e.metrics.RecordEnrichmentOutcome("error", failed)
		e.metrics.RecordEnrichmentOutcome("omitted", omitted)
	}
	return out
}

// fetchOne runs one lookup under ObjectTimeout. The collaborator may ignore
// ctx, so the call is raced against the deadline rather than trusted to
// return. Panics in the collaborator are reported as errors.
func (e *Enricher) fetchOne(ctx context.Context, src ObjectFetcher, id string) (*sui.EnrichedObject, error) {
	objCtx, cancel := context.WithTimeout(ctx, e.cfg.ObjectTimeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{id: id, err: fmt.Errorf("object lookup panicked: %v", p)}
			}
		}()
		obj, err := src.GetObject(objCtx, id)
		done <- result{id: id, obj: obj, err: err}
	}()

	select {
	case r := <-done:
		return r.obj, r.err
	case <-objCtx.Done():
		return nil, objCtx.Err()
	}
}
