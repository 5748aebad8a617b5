package summary

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/brojonat/txplain/service/classify"
	"github.com/brojonat/txplain/service/labels"
	"github.com/brojonat/txplain/service/normalize"
	"github.com/brojonat/txplain/service/sui"
	"github.com/brojonat/txplain/service/tokens"
)

// NoiseThresholdMist is the smallest native balance change worth reporting
// (0.01 SUI). Smaller changes are almost always gas.
const NoiseThresholdMist = 10_000_000

var noiseThreshold = big.NewInt(NoiseThresholdMist)

// addressDisplayMin is the length above which a 0x-prefixed name is treated
// as a raw address rather than a human name.
const addressDisplayMin = 20

var placeholderWords = []string{"temp", "placeholder", "dummy"}

// braceStripper keeps on-chain text from opening or closing a marker.
var braceStripper = strings.NewReplacer("{", "", "}", "")

func marker(s string) string {
	return "{{" + braceStripper.Replace(s) + "}}"
}

func (s *synth) who(addr string) string {
	return marker(s.l.Lookup(addr))
}

func (s *synth) sender() string {
	return s.who(s.c.Sender)
}

func (s *synth) owner(o sui.Owner) string {
	switch o.Kind {
	case sui.OwnerAddress:
		return s.who(o.Address)
	case sui.OwnerShared:
		return "a shared object"
	case sui.OwnerImmutable:
		return "an immutable object"
	case sui.OwnerObject:
		return "another object"
	default:
		return marker(labels.Unknown)
	}
}

func (s *synth) isSender(o sui.Owner) bool {
	return o.IsAddress() && normalize.SameAddress(o.Address, s.c.Sender)
}

func countPhrase(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

func amountPhrase(amount *big.Int, decimals int, symbol string) string {
	abs := new(big.Int).Abs(amount)
	return tokens.FormatAmount(abs, decimals) + " " + symbol
}

func nftName(md *classify.DisplayMetadata) string {
	if md == nil || strings.TrimSpace(md.Name) == "" {
		return classify.DefaultName
	}
	return md.Name
}

// collectionName derives a collection from an item name: "Capy #12" and
// "Capy 12" both become "Capy".
func collectionName(name string) string {
	if i := strings.Index(name, "#"); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(strings.TrimRightFunc(name, unicode.IsDigit))
}

func looksLikeAddress(s string) bool {
	return strings.HasPrefix(s, sui.AddressPrefix) && len(s) > addressDisplayMin
}

// isRelevantNFT filters NFTs that are not worth narrating: unnamed items and
// anything whose name or type suggests a temporary or placeholder asset.
func isRelevantNFT(md *classify.DisplayMetadata, typeID string) bool {
	if md == nil {
		return false
	}
	name := strings.TrimSpace(md.Name)
	if name == "" || name == classify.DefaultName {
		return false
	}
	lowerName, lowerType := strings.ToLower(name), strings.ToLower(typeID)
	for _, w := range placeholderWords {
		if strings.Contains(lowerName, w) || strings.Contains(lowerType, w) {
			return false
		}
	}
	return true
}

// itemsPhrase names a group of NFTs: the item itself when there is one,
// "N <collection> NFTs" when they share a collection, else "N NFTs".
func itemsPhrase(names []string) string {
	switch len(names) {
	case 0:
		return marker(classify.DefaultName)
	case 1:
		return marker(names[0])
	}
	if col := sharedCollection(names); col != "" {
		return marker(fmt.Sprintf("%d %s NFTs", len(names), col))
	}
	return marker(fmt.Sprintf("%d NFTs", len(names)))
}

func sharedCollection(names []string) string {
	col := collectionName(names[0])
	if col == "" || col == classify.DefaultName || looksLikeAddress(col) {
		return ""
	}
	for _, n := range names[1:] {
		if collectionName(n) != col {
			return ""
		}
	}
	return col
}

// significant reports whether a balance change clears the noise filter.
func significant(bc normalize.BalanceChange) bool {
	if bc.Amount == nil || bc.Amount.Sign() == 0 {
		return false
	}
	if bc.IsNative() && new(big.Int).Abs(bc.Amount).Cmp(noiseThreshold) < 0 {
		return false
	}
	return true
}

func pronoun(n int) string {
	if n == 1 {
		return "it"
	}
	return "them"
}

func typeName(typeID string) string {
	if name := sui.TypeName(typeID); name != "" {
		return name
	}
	return "Object"
}
