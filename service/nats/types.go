package nats

import (
	"strings"
	"time"

	"github.com/brojonat/txplain/service/interpret"
)

// InterpretationEvent is published to "interpretations.{sender}" after a
// transaction has been interpreted.
type InterpretationEvent struct {
	Digest       string `json:"digest"`
	Sender       string `json:"sender"`
	Success      bool   `json:"success"`
	Headline     string `json:"headline"`
	HeadlineTier string `json:"headline_tier"`
	GasCostMist  string `json:"gas_cost_mist"`
	TimestampMs  string `json:"timestamp_ms,omitempty"`

	// Source is the RPC source the transaction was fetched from.
	Source string `json:"source,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}

// FromInterpretation converts an interpreted transaction to an event.
func FromInterpretation(tx *interpret.InterpretedTransaction, source string) *InterpretationEvent {
	return &InterpretationEvent{
		Digest:       tx.Digest,
		Sender:       strings.ToLower(tx.Sender),
		Success:      tx.Success,
		Headline:     tx.Headline,
		HeadlineTier: tx.HeadlineTier,
		GasCostMist:  tx.GasCostMist,
		TimestampMs:  tx.TimestampMs,
		Source:       source,
		PublishedAt:  time.Now().UTC(),
	}
}

// Subject returns the subject the event is published to. Transactions
// without a sender go to "interpretations.unknown".
func (e *InterpretationEvent) Subject() string {
	return SubjectFor(e.Sender)
}

// SubjectFor returns the subject for a sender address.
func SubjectFor(sender string) string {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" || strings.ContainsAny(sender, ".*> \t") {
		sender = "unknown"
	}
	return subjectPrefix + sender
}
