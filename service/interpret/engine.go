// Package interpret runs the interpretation pipeline: fetch, enrich,
// normalize, label and summarize one transaction.
package interpret

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/txplain/service/enrich"
	"github.com/brojonat/txplain/service/labels"
	"github.com/brojonat/txplain/service/metrics"
	"github.com/brojonat/txplain/service/normalize"
	"github.com/brojonat/txplain/service/sui"
	"github.com/brojonat/txplain/service/summary"
	"github.com/brojonat/txplain/service/tokens"
)

var errNoFetcher = errors.New("no rpc source configured")

// Result carries the interpretation and the source that produced it.
// Callers start their next interpretation from Source.
type Result struct {
	Transaction *InterpretedTransaction
	Source      sui.Source
	Switched    bool
}

// Engine interprets transactions. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	fetcher    *sui.Fetcher
	enricher   *enrich.Enricher
	normalizer *normalize.Normalizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewEngine creates an Engine. fetcher may be nil for an offline engine
// that only serves InterpretRaw.
// If metrics is nil, no metrics will be recorded.
func NewEngine(fetcher *sui.Fetcher, enricher *enrich.Enricher, reg *tokens.Registry, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if enricher == nil {
		enricher = enrich.New(enrich.DefaultConfig, m, logger)
	}
	return &Engine{
		fetcher:    fetcher,
		enricher:   enricher,
		normalizer: normalize.New(reg),
		metrics:    m,
		logger:     logger,
	}
}

// Interpret fetches digest from src and interprets it. When src keeps
// failing for reasons other than not-found, the first healthy alternate
// is tried once and, on success, returned in Result.Source. Errors are
// sui.ErrInvalidDigest wraps or *sui.FetchError.
func (e *Engine) Interpret(ctx context.Context, src sui.Source, digest string) (*Result, error) {
	start := time.Now()
	status := "success"
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordInterpretation(status, time.Since(start).Seconds())
		}
	}()

	if err := sui.ValidateDigest(digest); err != nil {
		status = "invalid"
		return nil, err
	}
	if e.fetcher == nil {
		status = sui.ErrorConnectivity.String()
		return nil, sui.Classify(errNoFetcher)
	}

	tx, err := e.run(ctx, src, digest)
	if err == nil {
		return &Result{Transaction: tx, Source: src}, nil
	}

	fe := sui.Classify(err)
	if fe.Kind == sui.ErrorNotFound {
		status = fe.Kind.String()
		return nil, fe
	}

	alt, ok := e.fetcher.Probe(ctx, src)
	if !ok {
		e.logger.WarnContext(ctx, "no healthy alternate source",
			"digest", digest,
			"source", src.Name,
			"error", err,
		)
		status = fe.Kind.String()
		return nil, fe
	}

	e.logger.InfoContext(ctx, "switching rpc source",
		"digest", digest,
		"from", src.Name,
		"to", alt.Name,
	)
	if e.metrics != nil {
		e.metrics.RecordSourceSwitch(src.Name, alt.Name)
	}

	tx, err = e.run(ctx, alt, digest)
	if err != nil {
		fe = sui.Classify(err)
		status = fe.Kind.String()
		return nil, fe
	}
	return &Result{Transaction: tx, Source: alt, Switched: true}, nil
}

func (e *Engine) run(ctx context.Context, src sui.Source, digest string) (*InterpretedTransaction, error) {
	raw, err := e.fetcher.Fetch(ctx, src, digest)
	if err != nil {
		return nil, err
	}
	enriched := e.enricher.Enrich(ctx, e.fetcher.Client(src), raw)
	return e.InterpretRaw(ctx, raw, enriched), nil
}

// InterpretRaw normalizes and summarizes an already-fetched transaction.
// It does no I/O and yields identical output for identical input.
func (e *Engine) InterpretRaw(ctx context.Context, raw *sui.RawTransaction, enriched map[string]*sui.EnrichedObject) *InterpretedTransaction {
	if raw == nil {
		raw = &sui.RawTransaction{}
	}

	l := labels.New()
	changes := e.normalizer.Normalize(raw, enriched, l)
	l.Freeze()
	s := summary.Synthesize(changes, l)

	if e.metrics != nil {
		e.metrics.RecordHeadlineTier(s.HeadlineTier)
	}

	var statusErr string
	gasMist := GasCost(sui.GasUsed{})
	if raw.Effects != nil {
		statusErr = raw.Effects.Status.Error
		gasMist = GasCost(raw.Effects.GasUsed)
	}

	e.logger.DebugContext(ctx, "interpreted transaction",
		"digest", raw.Digest,
		"headline_tier", s.HeadlineTier,
		"labels", l.Len(),
		"enriched", len(enriched),
	)

	return &InterpretedTransaction{
		Digest:         raw.Digest,
		Sender:         changes.Sender,
		Success:        raw.Succeeded(),
		StatusError:    statusErr,
		TimestampMs:    raw.TimestampMs,
		Checkpoint:     raw.Checkpoint,
		GasCostMist:    gasMist.String(),
		GasCost:        tokens.FormatFixed(gasMist, sui.NativeDecimals),
		Created:        nonNil(changes.Created),
		Deleted:        nonNil(changes.Deleted),
		Mutated:        nonNil(changes.Mutated),
		Transferred:    nonNil(changes.Transferred),
		Calls:          nonNil(changes.Calls),
		BalanceChanges: nonNil(changes.BalanceChanges),
		Bullets:        nonNil(s.Bullets),
		Headline:       s.Headline,
		HeadlineTier:   s.HeadlineTier,
		Breakdown:      nonNil(s.Breakdown),
		Labels:         nonNil(l.Entries()),
	}
}
