// Package summary renders the canonical model as text: a bullet list, a
// one-sentence headline and a step-by-step breakdown. Entity references are
// wrapped in {{...}} markers for the presentation layer.
package summary

import (
	"github.com/brojonat/txplain/service/labels"
	"github.com/brojonat/txplain/service/normalize"
)

// Summary holds the three text artifacts.
type Summary struct {
	Bullets      []string `json:"bullets"`
	Headline     string   `json:"headline"`
	HeadlineTier string   `json:"headline_tier"`
	Breakdown    []string `json:"breakdown"`
}

// Synthesize renders c. Labels are looked up, never assigned: addresses the
// normalizer did not visit render as truncated addresses.
func Synthesize(c *normalize.Changes, l *labels.Labeler) Summary {
	if c == nil {
		c = &normalize.Changes{}
	}
	if l == nil {
		l = labels.New()
	}
	s := &synth{c: c, l: l}

	headline, tier := s.headline()
	return Summary{
		Bullets:      s.bullets(),
		Headline:     headline,
		HeadlineTier: tier,
		Breakdown:    s.breakdown(),
	}
}

// synth is the read-only state shared by the three renderers.
type synth struct {
	c *normalize.Changes
	l *labels.Labeler
}
