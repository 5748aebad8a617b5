// Package tokens resolves coin types to display symbols and decimal scales
// and formats base-unit amounts with exact integer arithmetic.
package tokens

import (
	"strings"
	"sync"

	"github.com/brojonat/txplain/service/sui"
)

// DefaultDecimals is assumed for coin types the registry does not know.
// Most bridged and native stablecoins on Sui use 6.
const DefaultDecimals = 6

// Info describes how to display amounts of one coin type.
type Info struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	// Known is false when Symbol was derived from the type name.
	Known bool `json:"known"`
}

var wellKnown = map[string]Info{
	sui.NativeCoinType: {Symbol: sui.NativeSymbol, Decimals: sui.NativeDecimals},
	"0xdba34672e30cb065b1f93e3ab55318768fd6fef66c15942c9f7cb846e2f900e7::usdc::USDC": {Symbol: "USDC", Decimals: 6},
	"0x5d4b302506645c37ff133b98c4b50a5ae14841659738d6d733d59d0d217a93bf::coin::COIN": {Symbol: "wUSDC", Decimals: 6},
	"0xc060006111016b8a020ad5b33834984a437aaa7d3c74c18e09a95d48aceab08c::coin::COIN": {Symbol: "wUSDT", Decimals: 6},
	"0xaf8cd5edc19c4512f4259f0bee101a40d41ebed738ade5874359610ef8eeced5::coin::COIN": {Symbol: "wETH", Decimals: 8},
	"0x06864a6f921804860930db6ddbe2e16acdf8504495ea7481637a1c8b9a8fe54b::cetus::CETUS": {Symbol: "CETUS", Decimals: 9},
	"0xdeeb7a4662eec9f2f3def03fb937a663dddaa2e215b8078a284d026b7946c270::deep::DEEP": {Symbol: "DEEP", Decimals: 6},
}

// Registry maps coin types to display info. Derived entries are cached so
// repeated lookups across interpretations are cheap. Safe for concurrent use.
type Registry struct {
	known map[string]Info

	mu      sync.RWMutex
	derived map[string]Info
}

// NewRegistry builds a registry from the built-in table plus extra entries.
// Extra entries override built-ins with the same type.
func NewRegistry(extra map[string]Info) *Registry {
	r := &Registry{
		known:   make(map[string]Info, len(wellKnown)+len(extra)),
		derived: make(map[string]Info),
	}
	for t, info := range wellKnown {
		info.Known = true
		r.known[sui.NormalizeType(t)] = info
	}
	for t, info := range extra {
		info.Known = true
		r.known[sui.NormalizeType(t)] = info
	}
	return r
}

// Default is the registry used by Resolve.
var Default = NewRegistry(nil)

// Resolve looks up typeID in the Default registry.
func Resolve(typeID string) Info {
	return Default.Resolve(typeID)
}

// Resolve returns display info for typeID. It accepts either a coin type
// (0x2::sui::SUI) or a coin object type (0x2::coin::Coin<0x2::sui::SUI>)
// and never fails: unknown types get a symbol derived from their name.
func (r *Registry) Resolve(typeID string) Info {
	key := sui.NormalizeType(sui.CoinInnerType(typeID))
	if info, ok := r.known[key]; ok {
		return info
	}

	r.mu.RLock()
	info, ok := r.derived[key]
	r.mu.RUnlock()
	if ok {
		return info
	}

	info = Info{Symbol: deriveSymbol(key), Decimals: DefaultDecimals}
	r.mu.Lock()
	r.derived[key] = info
	r.mu.Unlock()
	return info
}

func deriveSymbol(typeID string) string {
	name, _, _ := strings.Cut(typeID, "<")
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	name = strings.TrimSpace(name)

	for _, suffix := range []string{"_TOKEN", "TOKEN"} {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok {
			if trimmed != "" {
				name = trimmed
			}
			break
		}
	}
	if name == "" {
		return "UNKNOWN"
	}
	return name
}
