package normalize

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/brojonat/txplain/service/classify"
	"github.com/brojonat/txplain/service/labels"
	"github.com/brojonat/txplain/service/sui"
	"github.com/brojonat/txplain/service/tokens"
)

// Normalizer builds Changes from a raw transaction.
type Normalizer struct {
	tokens *tokens.Registry
}

// New creates a Normalizer. A nil registry means tokens.Default.
func New(reg *tokens.Registry) *Normalizer {
	if reg == nil {
		reg = tokens.Default
	}
	return &Normalizer{tokens: reg}
}

// Normalize converts raw into the canonical model. enriched may be nil or
// partial. Addresses are registered with l in a fixed order: sender, owners
// of created NFTs, transfer endpoints, then balance-change owners. Changing
// that order changes which address gets which pseudonym.
func (n *Normalizer) Normalize(raw *sui.RawTransaction, enriched map[string]*sui.EnrichedObject, l *labels.Labeler) *Changes {
	if raw == nil {
		return &Changes{}
	}
	c := &Changes{Sender: raw.Sender()}

	for _, ch := range raw.ObjectChanges {
		switch ch.Type {
		case sui.ChangeCreated:
			c.Created = append(c.Created, n.created(ch, enriched[ch.ObjectID]))
		case sui.ChangeDeleted:
			c.Deleted = append(c.Deleted, ObjectChange{
				ObjectID: ch.ObjectID,
				Type:     ch.ObjectType,
				Version:  ch.Version,
				Digest:   ch.Digest,
			})
		case sui.ChangeMutated:
			c.Mutated = append(c.Mutated, ObjectChange{
				ObjectID: ch.ObjectID,
				Type:     ch.ObjectType,
				Version:  ch.Version,
				Digest:   ch.Digest,
				Owner:    ch.Owner,
			})
		case sui.ChangeTransferred:
			c.Transferred = append(c.Transferred, n.transfer(ch, enriched[ch.ObjectID]))
		}
	}

	for _, call := range raw.MoveCalls() {
		c.Calls = append(c.Calls, ContractCall{
			Package:     call.Package,
			Module:      call.Module,
			Function:    call.Function,
			DisplayName: call.Module + "::" + call.Function,
		})
	}

	for _, bc := range raw.BalanceChanges {
		info := n.tokens.Resolve(bc.CoinType)
		amount, err := tokens.ParseAmount(bc.Amount)
		if err != nil {
			amount = nil
		}
		c.BalanceChanges = append(c.BalanceChanges, BalanceChange{
			Owner:    bc.Owner,
			CoinType: bc.CoinType,
			Amount:   amount,
			Symbol:   info.Symbol,
			Decimals: info.Decimals,
		})
	}

	if l != nil {
		discover(c, l)
	}
	return c
}

func (n *Normalizer) created(ch sui.ObjectChange, obj *sui.EnrichedObject) ObjectChange {
	out := ObjectChange{
		ObjectID: ch.ObjectID,
		Type:     ch.ObjectType,
		Version:  ch.Version,
		Digest:   ch.Digest,
		Owner:    ch.Owner,
	}
	if classify.IsNFT(ch.ObjectType, obj) {
		out.IsNFT = true
		out.NFT = classify.ExtractDisplayMetadata(obj)
	}
	return out
}

func (n *Normalizer) transfer(ch sui.ObjectChange, obj *sui.EnrichedObject) Transfer {
	out := Transfer{
		ObjectID: ch.ObjectID,
		Type:     ch.ObjectType,
		Version:  ch.Version,
		From:     sui.AddressOwned(ch.Sender),
	}
	if ch.Recipient != nil {
		out.To = *ch.Recipient
	}

	if sui.IsCoinType(ch.ObjectType) {
		info := n.tokens.Resolve(ch.ObjectType)
		out.Coin = &CoinAmount{
			CoinType: sui.CoinInnerType(ch.ObjectType),
			Amount:   coinBalance(obj),
			Symbol:   info.Symbol,
			Decimals: info.Decimals,
		}
	}
	if classify.IsNFT(ch.ObjectType, obj) {
		out.IsNFT = true
		out.NFT = classify.ExtractDisplayMetadata(obj)
	}
	return out
}

// coinBalance reads the balance field of an enriched coin object.
func coinBalance(obj *sui.EnrichedObject) *big.Int {
	if obj == nil {
		return nil
	}
	v, ok := obj.Fields["balance"]
	if !ok || v == nil {
		return nil
	}
	amount, err := tokens.ParseAmount(fmt.Sprint(v))
	if err != nil {
		return nil
	}
	return amount
}

func discover(c *Changes, l *labels.Labeler) {
	if c.Sender != "" {
		l.Assign(c.Sender)
	}

	for _, ch := range c.Created {
		if !ch.IsNFT || ch.Owner == nil || !ch.Owner.IsAddress() {
			continue
		}
		if SameAddress(ch.Owner.Address, c.Sender) {
			continue
		}
		l.Assign(ch.Owner.Address)
	}

	for _, tr := range c.Transferred {
		if tr.From.IsAddress() {
			l.Assign(tr.From.Address)
		}
		if tr.To.IsAddress() {
			l.Assign(tr.To.Address)
		}
	}

	for _, bc := range c.BalanceChanges {
		if bc.Owner.IsAddress() {
			l.Assign(bc.Owner.Address)
		}
	}
}

// SameAddress compares two addresses ignoring case and surrounding space.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
