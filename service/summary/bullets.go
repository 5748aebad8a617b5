package summary

import (
	"strings"

	"github.com/brojonat/txplain/service/normalize"
)

const (
	maxBulletNFTTransfers   = 3
	maxBulletOtherTransfers = 3
	maxBulletBalances       = 5
)

func (s *synth) bullets() []string {
	c := s.c
	out := []string{s.sender() + " initiated this transaction"}

	if len(c.Calls) > 0 {
		names := make([]string, len(c.Calls))
		for i, call := range c.Calls {
			names[i] = call.DisplayName
		}
		out = append(out, "Called "+strings.Join(names, ", "))
	}

	if n := len(c.CreatedNFTs()); n > 0 {
		out = append(out, "Created "+marker(countPhrase(n, "NFT", "NFTs")))
	}
	if n := len(c.CreatedOther()); n > 0 {
		out = append(out, "Created "+marker(countPhrase(n, "object", "objects")))
	}

	var nfts, other []normalize.Transfer
	for _, tr := range c.Transferred {
		if tr.IsNFT {
			nfts = append(nfts, tr)
		} else {
			other = append(other, tr)
		}
	}
	for i, tr := range nfts {
		if i == maxBulletNFTTransfers {
			out = append(out, "...and "+marker(countPhrase(len(nfts)-i, "more NFT", "more NFTs")))
			break
		}
		out = append(out, "Transferred "+marker(nftName(tr.NFT))+" to "+s.owner(tr.To))
	}
	for i, tr := range other {
		if i == maxBulletOtherTransfers {
			break
		}
		out = append(out, "Transferred "+transferObject(tr)+" to "+s.owner(tr.To))
	}

	if n := len(c.Mutated); n > 0 {
		out = append(out, "Modified "+marker(countPhrase(n, "object", "objects")))
	}
	if n := len(c.Deleted); n > 0 {
		out = append(out, "Deleted "+marker(countPhrase(n, "object", "objects")))
	}

	shown := 0
	for _, bc := range c.BalanceChanges {
		if shown == maxBulletBalances {
			break
		}
		if !significant(bc) {
			continue
		}
		amount := marker(amountPhrase(bc.Amount, bc.Decimals, bc.Symbol))
		if bc.Amount.Sign() < 0 {
			out = append(out, s.owner(bc.Owner)+" sent "+amount)
		} else {
			out = append(out, s.owner(bc.Owner)+" received "+amount)
		}
		shown++
	}
	return out
}

// transferObject describes a non-NFT transfer: the amount for coins when it
// is known, the coin symbol otherwise, and the type name for other objects.
func transferObject(tr normalize.Transfer) string {
	if tr.Coin != nil {
		if tr.Coin.Amount != nil {
			return marker(amountPhrase(tr.Coin.Amount, tr.Coin.Decimals, tr.Coin.Symbol))
		}
		return marker(tr.Coin.Symbol)
	}
	return marker(typeName(tr.Type))
}
