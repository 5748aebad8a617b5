package classify

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/brojonat/txplain/service/sui"
)

// DefaultName is used when neither display nor content names the asset.
const DefaultName = "NFT"

// maxAttributeLen bounds stringified attribute values, in characters.
const maxAttributeLen = 100

// DisplayMetadata is the NFT presentation extracted from enrichment.
type DisplayMetadata struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

var technicalFields = map[string]bool{
	"id":            true,
	"object_id":     true,
	"name":          true,
	"description":   true,
	"image_url":     true,
	"image":         true,
	"img_url":       true,
	"thumbnail_url": true,
	"url":           true,
	"balance":       true,
	"type":          true,
	"owner":         true,
	"version":       true,
	"digest":        true,
}

// ExtractDisplayMetadata pulls name, description, image and extra attributes
// out of an enriched object. It returns nil when obj is nil.
func ExtractDisplayMetadata(obj *sui.EnrichedObject) *DisplayMetadata {
	if obj == nil {
		return nil
	}

	md := &DisplayMetadata{
		Name:        firstNonEmpty(displayValue(obj, "name"), fieldString(obj, "name")),
		Description: firstNonEmpty(displayValue(obj, "description"), fieldString(obj, "description")),
		ImageURL: firstNonEmpty(
			displayValue(obj, "image_url"),
			displayValue(obj, "image"),
			fieldString(obj, "image_url"),
			fieldString(obj, "image"),
			fieldString(obj, "url"),
		),
	}
	if md.Name == "" {
		md.Name = DefaultName
	}

	for k, v := range obj.Fields {
		if technicalFields[strings.ToLower(k)] || v == nil {
			continue
		}
		s := stringify(v)
		if s == "" || utf8.RuneCountInString(s) >= maxAttributeLen {
			continue
		}
		if md.Attributes == nil {
			md.Attributes = make(map[string]string)
		}
		md.Attributes[k] = s
	}
	return md
}

func displayValue(obj *sui.EnrichedObject, key string) string {
	return strings.TrimSpace(obj.Display[key])
}

func fieldString(obj *sui.EnrichedObject, key string) string {
	v, ok := obj.Fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		// Url and String structs serialize as {"url": ...} or {"bytes": ...}.
		for _, inner := range []string{"url", "bytes"} {
			if s, ok := t[inner].(string); ok {
				return strings.TrimSpace(s)
			}
		}
		return ""
	default:
		return ""
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool, float64, float32, int, int64, int32, uint64, uint32:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "[object]"
		}
		return string(b)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
