// Package normalize turns raw object-change records into the canonical
// created, deleted, mutated and transferred collections.
package normalize

import (
	"math/big"

	"github.com/brojonat/txplain/service/classify"
	"github.com/brojonat/txplain/service/sui"
)

// ObjectChange is a created, deleted or mutated object.
type ObjectChange struct {
	ObjectID string                    `json:"object_id"`
	Type     string                    `json:"type"`
	Version  string                    `json:"version,omitempty"`
	Digest   string                    `json:"digest,omitempty"`
	Owner    *sui.Owner                `json:"owner,omitempty"`
	IsNFT    bool                      `json:"is_nft"`
	NFT      *classify.DisplayMetadata `json:"nft,omitempty"`
}

// CoinAmount is the fungible side of a transfer. Amount is nil when the
// balance could not be determined.
type CoinAmount struct {
	CoinType string   `json:"coin_type"`
	Amount   *big.Int `json:"amount,omitempty"`
	Symbol   string   `json:"symbol"`
	Decimals int      `json:"decimals"`
}

// Transfer is an object that changed hands.
type Transfer struct {
	ObjectID string                    `json:"object_id"`
	Type     string                    `json:"type"`
	Version  string                    `json:"version,omitempty"`
	From     sui.Owner                 `json:"from"`
	To       sui.Owner                 `json:"to"`
	Coin     *CoinAmount               `json:"coin,omitempty"`
	IsNFT    bool                      `json:"is_nft"`
	NFT      *classify.DisplayMetadata `json:"nft,omitempty"`
}

// ContractCall is one MoveCall command.
type ContractCall struct {
	Package     string `json:"package"`
	Module      string `json:"module"`
	Function    string `json:"function"`
	DisplayName string `json:"display_name"`
}

// BalanceChange is a signed coin delta for one owner, with display info.
type BalanceChange struct {
	Owner    sui.Owner `json:"owner"`
	CoinType string    `json:"coin_type"`
	Amount   *big.Int  `json:"amount"`
	Symbol   string    `json:"symbol"`
	Decimals int       `json:"decimals"`
}

// IsNative reports whether the change is in SUI.
func (b BalanceChange) IsNative() bool {
	return sui.IsNativeCoin(b.CoinType)
}

// Changes is the canonical model of one transaction.
type Changes struct {
	Sender         string          `json:"sender"`
	Created        []ObjectChange  `json:"created"`
	Deleted        []ObjectChange  `json:"deleted"`
	Mutated        []ObjectChange  `json:"mutated"`
	Transferred    []Transfer      `json:"transferred"`
	Calls          []ContractCall  `json:"calls"`
	BalanceChanges []BalanceChange `json:"balance_changes"`
}

// CreatedNFTs returns the created objects classified as NFTs.
func (c *Changes) CreatedNFTs() []ObjectChange {
	var out []ObjectChange
	for _, ch := range c.Created {
		if ch.IsNFT {
			out = append(out, ch)
		}
	}
	return out
}

// CreatedOther returns the created objects that are not NFTs.
func (c *Changes) CreatedOther() []ObjectChange {
	var out []ObjectChange
	for _, ch := range c.Created {
		if !ch.IsNFT {
			out = append(out, ch)
		}
	}
	return out
}

// WasCreated reports whether objectID appears among the created objects.
func (c *Changes) WasCreated(objectID string) bool {
	for _, ch := range c.Created {
		if ch.ObjectID == objectID {
			return true
		}
	}
	return false
}
