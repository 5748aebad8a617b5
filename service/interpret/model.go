package interpret

import (
	"math/big"

	"github.com/brojonat/txplain/service/labels"
	"github.com/brojonat/txplain/service/normalize"
	"github.com/brojonat/txplain/service/sui"
	"github.com/brojonat/txplain/service/tokens"
)

// InterpretedTransaction is the engine output.
type InterpretedTransaction struct {
	Digest      string `json:"digest"`
	Sender      string `json:"sender"`
	Success     bool   `json:"success"`
	StatusError string `json:"status_error,omitempty"`
	TimestampMs string `json:"timestamp_ms,omitempty"`
	Checkpoint  string `json:"checkpoint,omitempty"`

	// GasCostMist is the exact net gas in MIST as a decimal string.
	GasCostMist string `json:"gas_cost_mist"`
	// GasCost is GasCostMist rendered in SUI with 9 fractional digits.
	GasCost string `json:"gas_cost"`

	Created        []normalize.ObjectChange  `json:"created"`
	Deleted        []normalize.ObjectChange  `json:"deleted"`
	Mutated        []normalize.ObjectChange  `json:"mutated"`
	Transferred    []normalize.Transfer      `json:"transferred"`
	Calls          []normalize.ContractCall  `json:"calls"`
	BalanceChanges []normalize.BalanceChange `json:"balance_changes"`

	Bullets      []string       `json:"bullets"`
	Headline     string         `json:"headline"`
	HeadlineTier string         `json:"headline_tier"`
	Breakdown    []string       `json:"breakdown"`
	Labels       []labels.Entry `json:"labels"`
}

// GasCost is computation + storage - rebate, in MIST. Unparseable fields
// count as zero.
func GasCost(g sui.GasUsed) *big.Int {
	total := new(big.Int)
	total.Add(total, parseOrZero(g.ComputationCost))
	total.Add(total, parseOrZero(g.StorageCost))
	total.Sub(total, parseOrZero(g.StorageRebate))
	return total
}

func parseOrZero(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, err := tokens.ParseAmount(s)
	if err != nil {
		return new(big.Int)
	}
	return v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
