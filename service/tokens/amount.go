package tokens

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseAmount parses a signed base-unit integer such as "-1000000".
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// FormatFixed renders value/10^decimals with exactly decimals fractional
// digits: FormatFixed(120, 9) is "0.000000120".
func FormatFixed(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	if decimals <= 0 {
		return value.String()
	}

	abs := new(big.Int).Abs(value)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	fracStr := frac.String()
	if pad := decimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}

	sign := ""
	if value.Sign() < 0 {
		sign = "-"
	}
	return sign + whole.String() + "." + fracStr
}

// FormatAmount is FormatFixed with trailing fractional zeros removed:
// FormatAmount(1500000, 6) is "1.5" and FormatAmount(2000000, 6) is "2".
func FormatAmount(value *big.Int, decimals int) string {
	s := FormatFixed(value, decimals)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
