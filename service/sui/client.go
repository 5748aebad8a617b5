package sui

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/brojonat/txplain/service/metrics"
)

// FetchConfig bounds the primary fetch and the fallback probe.
type FetchConfig struct {
	MaxRetries     int           // attempts against one source
	BaseDelay      time.Duration // first backoff, doubled per attempt
	AttemptTimeout time.Duration // hard timeout around a single attempt
	ProbeTimeout   time.Duration // health probe timeout per alternate
}

// DefaultFetchConfig mirrors the service defaults.
var DefaultFetchConfig = FetchConfig{
	MaxRetries:     3,
	BaseDelay:      500 * time.Millisecond,
	AttemptTimeout: 10 * time.Second,
	ProbeTimeout:   3 * time.Second,
}

// Fetcher fetches raw transactions with retry and knows the alternate
// sources it may fall back to. It holds no notion of the "current" source;
// callers pass the source they want and keep the one that worked.
type Fetcher struct {
	sources []Source // primary first
	dial    func(url string) RPCClient
	cfg     FetchConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[string]RPCClient
}

// NewFetcher creates a Fetcher over primary and alternates. dial builds the
// RPCClient for a source URL; pass NewRPCClient in production.
// If metrics is nil, no metrics will be recorded.
func NewFetcher(primary Source, alternates []Source, dial func(string) RPCClient, cfg FetchConfig, m *metrics.Metrics, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	sources := append([]Source{primary}, alternates...)
	return &Fetcher{
		sources: sources,
		dial:    dial,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		clients: make(map[string]RPCClient),
	}
}

// Primary returns the configured primary source.
func (f *Fetcher) Primary() Source {
	return f.sources[0]
}

// Client returns the RPCClient for src, dialing it on first use.
func (f *Fetcher) Client(src Source) RPCClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[src.URL]; ok {
		return c
	}
	c := f.dial(src.URL)
	f.clients[src.URL] = c
	return c
}

// Fetch retrieves the transaction from src, retrying with exponential
// backoff. Every attempt runs under its own AttemptTimeout. Not-found
// responses are returned immediately. The returned error is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, src Source, digest string) (*RawTransaction, error) {
	rpc := f.Client(src)

	var lastErr error
	for attempt := range f.cfg.MaxRetries {
		tx, err := f.attempt(ctx, rpc, src, digest)
		if err == nil {
			return tx, nil
		}
		lastErr = err

		fe := Classify(err)
		if fe.Kind == ErrorNotFound {
			f.logger.DebugContext(ctx, "transaction not found, not retrying",
				"digest", digest,
				"source", src.Name,
			)
			return nil, fe
		}
		if fe.Kind == ErrorRateLimited && f.metrics != nil {
			f.metrics.RecordRateLimitHit(src.Name)
		}
		if attempt == f.cfg.MaxRetries-1 {
			break
		}

		backoff := f.cfg.BaseDelay * time.Duration(1<<uint(attempt))
		f.logger.WarnContext(ctx, "failed to get transaction on attempt",
			"digest", digest,
			"source", src.Name,
			"attempt", attempt+1,
			"error", err,
			"backoff_seconds", backoff.Seconds(),
		)
		if f.metrics != nil {
			f.metrics.RecordRPCRetry("sui_getTransactionBlock", fe.Kind.String())
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, Classify(err)
		}
	}

	f.logger.WarnContext(ctx, "failed to get transaction after retries",
		"digest", digest,
		"source", src.Name,
		"attempts", f.cfg.MaxRetries,
		"error", lastErr,
	)
	return nil, Classify(lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, rpc RPCClient, src Source, digest string) (*RawTransaction, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.AttemptTimeout)
	defer cancel()

	type outcome struct {
		tx  *RawTransaction
		err error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		tx, err := rpc.GetTransactionBlock(attemptCtx, digest)
		done <- outcome{tx, err}
	}()

	var tx *RawTransaction
	var err error
	select {
	case o := <-done:
		tx, err = o.tx, o.err
	case <-attemptCtx.Done():
		err = attemptCtx.Err()
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	if f.metrics != nil {
		f.metrics.RecordRPCCall("sui_getTransactionBlock", status, src.Name, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, &FetchError{Kind: ErrorNotFound, Message: kindMessages[ErrorNotFound]}
	}
	return tx, nil
}

// Probe health-checks every source other than current, in configuration
// order, and returns the first one that answers within ProbeTimeout.
func (f *Fetcher) Probe(ctx context.Context, current Source) (Source, bool) {
	for _, candidate := range f.sources {
		if candidate.URL == current.URL {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, f.cfg.ProbeTimeout)
		start := time.Now()
		err := f.Client(candidate).Ping(probeCtx)
		cancel()

		status := "success"
		if err != nil {
			status = "error"
		}
		if f.metrics != nil {
			f.metrics.RecordRPCCall("sui_getChainIdentifier", status, candidate.Name, time.Since(start).Seconds())
		}
		if err != nil {
			f.logger.DebugContext(ctx, "alternate source unhealthy",
				"source", candidate.Name,
				"error", err,
			)
			continue
		}
		return candidate, true
	}
	return Source{}, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
