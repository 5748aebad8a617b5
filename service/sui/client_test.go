package sui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	mu sync.Mutex

	tx       *RawTransaction
	txErrs   []error // consumed one per call; the last one repeats
	objects  map[string]*EnrichedObject
	objErr   error
	pingErr  error
	hang     bool
	txCalls  int
	objCalls int
}

func (m *mockRPCClient) GetTransactionBlock(ctx context.Context, digest string) (*RawTransaction, error) {
	m.mu.Lock()
	m.txCalls++
	var err error
	if n := len(m.txErrs); n > 0 {
		idx := m.txCalls - 1
		if idx >= n {
			idx = n - 1
		}
		err = m.txErrs[idx]
	}
	hang := m.hang
	m.mu.Unlock()

	if hang {
		// Ignores ctx on purpose so the fetcher's own timeout is exercised.
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		return nil, err
	}
	return m.tx, nil
}

func (m *mockRPCClient) GetObject(ctx context.Context, objectID string) (*EnrichedObject, error) {
	m.mu.Lock()
	m.objCalls++
	m.mu.Unlock()
	if m.objErr != nil {
		return nil, m.objErr
	}
	return m.objects[objectID], nil
}

func (m *mockRPCClient) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockRPCClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCalls
}

var testConfig = FetchConfig{
	MaxRetries:     3,
	BaseDelay:      time.Millisecond,
	AttemptTimeout: 50 * time.Millisecond,
	ProbeTimeout:   50 * time.Millisecond,
}

func newTestFetcher(t *testing.T, clients map[string]*mockRPCClient, urls ...string) *Fetcher {
	t.Helper()
	sources, err := ParseSources(urls)
	require.NoError(t, err)
	require.NotEmpty(t, sources)

	dial := func(url string) RPCClient {
		c, ok := clients[url]
		require.True(t, ok, "unexpected dial to %s", url)
		return c
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFetcher(sources[0], sources[1:], dial, testConfig, nil, logger)
}

func TestFetch_Success(t *testing.T) {
	want := &RawTransaction{Digest: "abc"}
	primary := &mockRPCClient{tx: want}
	f := newTestFetcher(t, map[string]*mockRPCClient{"https://primary.example": primary}, "https://primary.example")

	got, err := f.Fetch(context.Background(), f.Primary(), "abc")

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 1, primary.calls())
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	want := &RawTransaction{Digest: "abc"}
	primary := &mockRPCClient{
		tx:     want,
		txErrs: []error{errors.New("connection reset"), errors.New("rpc status 429: too many requests"), nil},
	}
	f := newTestFetcher(t, map[string]*mockRPCClient{"https://primary.example": primary}, "https://primary.example")

	got, err := f.Fetch(context.Background(), f.Primary(), "abc")

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 3, primary.calls())
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	primary := &mockRPCClient{txErrs: []error{errors.New("rpc error -32602: Could not find the referenced transaction")}}
	f := newTestFetcher(t, map[string]*mockRPCClient{"https://primary.example": primary}, "https://primary.example")

	_, err := f.Fetch(context.Background(), f.Primary(), "abc")

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorNotFound))
	assert.Equal(t, 1, primary.calls())
}

func TestFetch_NilResultIsNotFound(t *testing.T) {
	primary := &mockRPCClient{}
	f := newTestFetcher(t, map[string]*mockRPCClient{"https://primary.example": primary}, "https://primary.example")

	_, err := f.Fetch(context.Background(), f.Primary(), "abc")

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorNotFound))
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	primary := &mockRPCClient{txErrs: []error{errors.New("dial tcp: connection refused")}}
	f := newTestFetcher(t, map[string]*mockRPCClient{"https://primary.example": primary}, "https://primary.example")

	_, err := f.Fetch(context.Background(), f.Primary(), "abc")

	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrorConnectivity, fe.Kind)
	assert.Equal(t, testConfig.MaxRetries, primary.calls())
}

func TestFetch_AttemptTimeoutIsHard(t *testing.T) {
	primary := &mockRPCClient{tx: &RawTransaction{}, hang: true}
	f := newTestFetcher(t, map[string]*mockRPCClient{"https://primary.example": primary}, "https://primary.example")
	f.cfg.MaxRetries = 1

	start := time.Now()
	_, err := f.Fetch(context.Background(), f.Primary(), "abc")

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorTimeout))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestFetch_ContextCancelledDuringBackoff(t *testing.T) {
	primary := &mockRPCClient{txErrs: []error{errors.New("connection reset")}}
	f := newTestFetcher(t, map[string]*mockRPCClient{"https://primary.example": primary}, "https://primary.example")
	f.cfg.BaseDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, f.Primary(), "abc")

	require.Error(t, err)
	assert.Equal(t, 1, primary.calls())
}

func TestProbe_ReturnsFirstHealthyAlternate(t *testing.T) {
	clients := map[string]*mockRPCClient{
		"https://primary.example": {},
		"https://alt-1.example":   {pingErr: errors.New("connection refused")},
		"https://alt-2.example":   {},
		"https://alt-3.example":   {},
	}
	f := newTestFetcher(t, clients,
		"https://primary.example", "https://alt-1.example", "https://alt-2.example", "https://alt-3.example")

	got, ok := f.Probe(context.Background(), f.Primary())

	require.True(t, ok)
	assert.Equal(t, "alt-2.example", got.Name)
}

func TestProbe_SkipsCurrentAndCanReturnPrimary(t *testing.T) {
	clients := map[string]*mockRPCClient{
		"https://primary.example": {},
		"https://alt-1.example":   {},
	}
	f := newTestFetcher(t, clients, "https://primary.example", "https://alt-1.example")
	alt, err := NewSource("https://alt-1.example")
	require.NoError(t, err)

	got, ok := f.Probe(context.Background(), alt)

	require.True(t, ok)
	assert.Equal(t, f.Primary(), got)
}

func TestProbe_NoHealthySource(t *testing.T) {
	clients := map[string]*mockRPCClient{
		"https://primary.example": {},
		"https://alt-1.example":   {pingErr: errors.New("503")},
	}
	f := newTestFetcher(t, clients, "https://primary.example", "https://alt-1.example")

	_, ok := f.Probe(context.Background(), f.Primary())

	assert.False(t, ok)
}

func TestActiveSource(t *testing.T) {
	a, err := NewSource("https://fullnode.mainnet.sui.io:443")
	require.NoError(t, err)
	b, err := NewSource("https://sui-rpc.publicnode.com")
	require.NoError(t, err)

	active := NewActiveSource(a)
	assert.Equal(t, a, active.Get())

	active.Set(b)
	assert.Equal(t, b, active.Get())
	assert.Equal(t, "sui-rpc.publicnode.com", active.Get().Name)
}

func TestNewSource_Invalid(t *testing.T) {
	_, err := NewSource("")
	assert.Error(t, err)

	_, err = NewSource("not a url")
	assert.Error(t, err)
}
