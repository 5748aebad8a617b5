// Package classify decides whether an on-chain object is a fungible coin, a
// non-fungible asset or a plain object, and extracts NFT display metadata.
package classify

import (
	"strings"

	"github.com/brojonat/txplain/service/sui"
)

// Kind is the classification outcome.
type Kind int

const (
	Generic Kind = iota
	Coin
	NonFungible
)

func (k Kind) String() string {
	switch k {
	case Coin:
		return "coin"
	case NonFungible:
		return "nft"
	default:
		return "generic"
	}
}

// Rule inspects a type and optional enrichment. It returns the kind and true
// when it applies; otherwise the next rule is consulted.
type Rule struct {
	Name  string
	Apply func(typeID string, obj *sui.EnrichedObject) (Kind, bool)
}

var (
	internalStorageMarkers = []string{"::dynamic_field::", "::dynamic_object_field::"}

	nftTypeKeywords = []string{
		"nft", "collectible", "asset", "agent", "character",
		"card", "badge", "license", "avatar", "ticket",
	}

	descriptiveFields = []string{"name", "image_url", "image", "url", "description"}
)

// Rules is the decision order. The first rule that applies wins.
var Rules = []Rule{
	{Name: "coin-type", Apply: coinType},
	{Name: "internal-storage", Apply: internalStorage},
	{Name: "display-metadata", Apply: displayMetadata},
	{Name: "type-keyword", Apply: typeKeyword},
	{Name: "content-fields", Apply: contentFields},
}

// Classify runs Rules in order and falls back to Generic.
func Classify(typeID string, obj *sui.EnrichedObject) Kind {
	kind, _ := ClassifyWithRule(typeID, obj)
	return kind
}

// ClassifyWithRule is Classify that also reports which rule decided.
// The rule name is empty when no rule applied.
func ClassifyWithRule(typeID string, obj *sui.EnrichedObject) (Kind, string) {
	for _, r := range Rules {
		if kind, ok := r.Apply(typeID, obj); ok {
			return kind, r.Name
		}
	}
	return Generic, ""
}

// IsNFT is shorthand for Classify(...) == NonFungible.
func IsNFT(typeID string, obj *sui.EnrichedObject) bool {
	return Classify(typeID, obj) == NonFungible
}

func coinType(typeID string, _ *sui.EnrichedObject) (Kind, bool) {
	if sui.IsCoinType(typeID) {
		return Coin, true
	}
	return Generic, false
}

func internalStorage(typeID string, _ *sui.EnrichedObject) (Kind, bool) {
	if isInternalStorage(typeID) {
		return Generic, true
	}
	return Generic, false
}

func displayMetadata(_ string, obj *sui.EnrichedObject) (Kind, bool) {
	if obj != nil && len(obj.Display) > 0 {
		return NonFungible, true
	}
	return Generic, false
}

func typeKeyword(typeID string, _ *sui.EnrichedObject) (Kind, bool) {
	lower := strings.ToLower(typeID)
	for _, kw := range nftTypeKeywords {
		if strings.Contains(lower, kw) {
			return NonFungible, true
		}
	}
	return Generic, false
}

func contentFields(_ string, obj *sui.EnrichedObject) (Kind, bool) {
	if obj == nil {
		return Generic, false
	}
	for _, f := range descriptiveFields {
		if v, ok := obj.Fields[f]; ok && v != nil {
			return NonFungible, true
		}
	}
	return Generic, false
}

func isInternalStorage(typeID string) bool {
	for _, m := range internalStorageMarkers {
		if strings.Contains(typeID, m) {
			return true
		}
	}
	return false
}
