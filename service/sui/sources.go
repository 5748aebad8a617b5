package sui

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// Source is one JSON-RPC endpoint transactions can be fetched from.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// NewSource names a source after its host so metrics labels stay short and
// never include API keys embedded in the path or query.
func NewSource(rawURL string) (Source, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Source{}, fmt.Errorf("no RPC endpoint configured")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Source{}, fmt.Errorf("invalid RPC endpoint %q", rawURL)
	}
	return Source{Name: u.Host, URL: rawURL}, nil
}

// ParseSources parses a list of endpoint URLs, skipping blanks.
func ParseSources(urls []string) ([]Source, error) {
	sources := make([]Source, 0, len(urls))
	for _, raw := range urls {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		src, err := NewSource(raw)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// ActiveSource holds the source that new interpretations start from.
// Concurrent callers read and replace it atomically; last writer wins.
type ActiveSource struct {
	p atomic.Pointer[Source]
}

// NewActiveSource starts with src.
func NewActiveSource(src Source) *ActiveSource {
	a := &ActiveSource{}
	a.Set(src)
	return a
}

// Get returns the current source.
func (a *ActiveSource) Get() Source {
	if s := a.p.Load(); s != nil {
		return *s
	}
	return Source{}
}

// Set replaces the current source.
func (a *ActiveSource) Set(src Source) {
	a.p.Store(&src)
}
