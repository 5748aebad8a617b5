package summary

import (
	"math/big"
	"strings"

	"github.com/brojonat/txplain/service/normalize"
	"github.com/brojonat/txplain/service/sui"
)

// Tier produces a headline sentence, or false when it does not apply.
type Tier struct {
	Name   string
	Render func(s *synth) (string, bool)
}

// Tiers is the headline priority ladder. The first tier that applies wins.
var Tiers = []Tier{
	{Name: "mint-and-send", Render: mintAndSend},
	{Name: "nft-transfer", Render: nftTransfer},
	{Name: "coin-transfer", Render: coinTransfer},
	{Name: "balance-pair", Render: balancePair},
	{Name: "object-transfer", Render: objectTransfer},
	{Name: "created", Render: created},
	{Name: "contract-call", Render: contractCall},
	{Name: "fallback", Render: fallback},
}

func (s *synth) headline() (string, string) {
	for _, t := range Tiers {
		if text, ok := t.Render(s); ok {
			return text + ".", t.Name
		}
	}
	// fallback always applies
	return s.sender() + " executed a transaction.", "fallback"
}

func mintAndSend(s *synth) (string, bool) {
	var minted []normalize.Transfer
	for _, tr := range s.c.Transferred {
		if tr.IsNFT && s.c.WasCreated(tr.ObjectID) {
			minted = append(minted, tr)
		}
	}
	if len(minted) == 0 {
		return "", false
	}

	var recipient *sui.Owner
	for i := range minted {
		if to := minted[i].To; to.IsAddress() && !s.isSender(to) {
			recipient = &minted[i].To
		}
	}

	if recipient == nil {
		return s.sender() + " minted " + itemsPhrase(transferNames(minted)) + " to their own wallet", true
	}

	var sent []normalize.Transfer
	for _, tr := range minted {
		if tr.To.IsAddress() && normalize.SameAddress(tr.To.Address, recipient.Address) {
			sent = append(sent, tr)
		}
	}
	return s.sender() + " minted " + itemsPhrase(transferNames(sent)) +
		" and sent " + pronoun(len(sent)) + " to " + s.owner(*recipient), true
}

func nftTransfer(s *synth) (string, bool) {
	type group struct {
		to    sui.Owner
		items []normalize.Transfer
	}
	var groups []*group
	index := make(map[string]*group)

	for _, tr := range s.c.Transferred {
		if !tr.IsNFT {
			continue
		}
		key := tr.To.Kind.String() + ":" + strings.ToLower(tr.To.Address)
		g, ok := index[key]
		if !ok {
			g = &group{to: tr.To}
			index[key] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, tr)
	}
	if len(groups) == 0 {
		return "", false
	}

	best := groups[0]
	for _, g := range groups[1:] {
		if len(g.items) > len(best.items) {
			best = g
		}
	}
	from := s.owner(best.items[0].From)
	return from + " sent " + itemsPhrase(transferNames(best.items)) + " to " + s.owner(best.to), true
}

func coinTransfer(s *synth) (string, bool) {
	for _, tr := range s.c.Transferred {
		if tr.Coin == nil || tr.Coin.Amount == nil || sui.IsNativeCoin(tr.Coin.CoinType) {
			continue
		}
		amount := marker(amountPhrase(tr.Coin.Amount, tr.Coin.Decimals, tr.Coin.Symbol))
		return s.owner(tr.From) + " sent " + amount + " to " + s.owner(tr.To), true
	}
	return "", false
}

// balancePair looks for one owner losing what another gained, within 1%.
func balancePair(s *synth) (string, bool) {
	changes := s.c.BalanceChanges
	for _, out := range changes {
		if out.Amount == nil || out.Amount.Sign() >= 0 {
			continue
		}
		for _, in := range changes {
			if in.Amount == nil || in.Amount.Sign() <= 0 {
				continue
			}
			if sui.NormalizeType(in.CoinType) != sui.NormalizeType(out.CoinType) {
				continue
			}
			if !out.Owner.IsAddress() || !in.Owner.IsAddress() ||
				normalize.SameAddress(out.Owner.Address, in.Owner.Address) {
				continue
			}

			sent := new(big.Int).Abs(out.Amount)
			received := in.Amount
			larger, smaller := sent, received
			if received.Cmp(sent) > 0 {
				larger, smaller = received, sent
			}
			if out.IsNative() && larger.Cmp(noiseThreshold) < 0 {
				continue
			}
			diff := new(big.Int).Sub(larger, smaller)
			if diff.Mul(diff, big.NewInt(100)).Cmp(larger) > 0 {
				continue
			}

			amount := marker(amountPhrase(smaller, out.Decimals, out.Symbol))
			return s.owner(out.Owner) + " sent " + amount + " to " + s.owner(in.Owner), true
		}
	}
	return "", false
}

func objectTransfer(s *synth) (string, bool) {
	for _, tr := range s.c.Transferred {
		if tr.Coin != nil || tr.IsNFT {
			continue
		}
		return s.owner(tr.From) + " transferred " + marker(typeName(tr.Type)) + " to " + s.owner(tr.To), true
	}
	return "", false
}

func created(s *synth) (string, bool) {
	nfts := s.c.CreatedNFTs()
	if len(nfts) > 0 {
		var recipient *sui.Owner
		for _, ch := range nfts {
			if ch.Owner != nil && ch.Owner.IsAddress() && !s.isSender(*ch.Owner) {
				recipient = ch.Owner
				break
			}
		}
		if recipient != nil {
			var received []string
			for _, ch := range nfts {
				if ch.Owner != nil && ch.Owner.IsAddress() && normalize.SameAddress(ch.Owner.Address, recipient.Address) {
					received = append(received, nftName(ch.NFT))
				}
			}
			return s.owner(*recipient) + " received " + itemsPhrase(received) + " from " + s.sender(), true
		}
		return s.sender() + " created " + itemsPhrase(changeNames(nfts)), true
	}

	if n := len(s.c.Created); n > 0 {
		return s.sender() + " created " + marker(countPhrase(n, "object", "objects")), true
	}
	return "", false
}

// callVerbs maps function-name keywords to a phrase, in match order.
var callVerbs = []struct {
	keyword string
	phrase  string
}{
	{"mint", "minted through"},
	{"swap", "swapped tokens through"},
	{"stake", "staked tokens through"},
	{"claim", "claimed rewards through"},
	{"deposit", "deposited funds through"},
	{"withdraw", "withdrew funds through"},
}

func contractCall(s *synth) (string, bool) {
	if len(s.c.Calls) == 0 {
		return "", false
	}
	for _, call := range s.c.Calls {
		fn := strings.ToLower(call.Function)
		for _, v := range callVerbs {
			if strings.HasPrefix(fn, v.keyword) || strings.Contains(fn, "_"+v.keyword) {
				return s.sender() + " " + v.phrase + " " + call.DisplayName, true
			}
		}
	}
	return s.sender() + " called " + s.c.Calls[0].DisplayName, true
}

func fallback(s *synth) (string, bool) {
	return s.sender() + " executed a transaction", true
}

func transferNames(trs []normalize.Transfer) []string {
	names := make([]string, len(trs))
	for i, tr := range trs {
		names[i] = nftName(tr.NFT)
	}
	return names
}

func changeNames(chs []normalize.ObjectChange) []string {
	names := make([]string, len(chs))
	for i, ch := range chs {
		names[i] = nftName(ch.NFT)
	}
	return names
}
