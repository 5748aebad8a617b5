package sui

import (
	"regexp"
	"strings"
)

const (
	// NativeCoinType is the fully-qualified SUI coin type in short form.
	NativeCoinType = "0x2::sui::SUI"

	// NativeSymbol and NativeDecimals describe SUI; the base unit is MIST.
	NativeSymbol   = "SUI"
	NativeDecimals = 9

	// AddressPrefix starts every account and object id.
	AddressPrefix = "0x"
)

var (
	leadingZeroAddress = regexp.MustCompile(`0x0+([0-9a-fA-F])`)
	coinTypePattern    = regexp.MustCompile(`^0x0*2::coin::Coin<(.+)>$`)
)

// NormalizeType rewrites every package address in a Move type to its short
// form, e.g. 0x000…002::sui::SUI becomes 0x2::sui::SUI.
func NormalizeType(t string) string {
	return leadingZeroAddress.ReplaceAllString(strings.TrimSpace(t), "0x$1")
}

// IsCoinType reports whether t is a 0x2::coin::Coin<T> object type.
func IsCoinType(t string) bool {
	return coinTypePattern.MatchString(strings.TrimSpace(t))
}

// CoinInnerType returns T for 0x2::coin::Coin<T>, or t unchanged otherwise.
func CoinInnerType(t string) string {
	m := coinTypePattern.FindStringSubmatch(strings.TrimSpace(t))
	if m == nil {
		return t
	}
	return m[1]
}

// IsNativeCoin reports whether t is SUI itself or a Coin<SUI>.
func IsNativeCoin(t string) bool {
	return NormalizeType(CoinInnerType(t)) == NativeCoinType
}

// TypeName returns the struct name of a Move type without its generic
// parameters: 0x2::coin::Coin<0x2::sui::SUI> becomes "Coin".
func TypeName(t string) string {
	base, _, _ := strings.Cut(t, "<")
	if i := strings.LastIndex(base, "::"); i >= 0 {
		base = base[i+2:]
	}
	return strings.TrimSpace(base)
}
