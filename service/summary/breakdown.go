package summary

import (
	"fmt"
	"strings"

	"github.com/brojonat/txplain/service/normalize"
)

// routineCallPrefixes are plumbing functions that add nothing to a narrative.
var routineCallPrefixes = []string{"transfer", "public_transfer", "split", "pay"}

// breakdownOtherCreatedMin is the number of non-NFT creations above which
// the breakdown mentions them.
const breakdownOtherCreatedMin = 3

func (s *synth) breakdown() []string {
	var steps []string
	steps = append(steps, s.callSteps()...)
	steps = append(steps, s.mintSteps()...)
	steps = append(steps, s.transferSteps()...)
	if n := len(s.c.CreatedOther()); n > breakdownOtherCreatedMin {
		steps = append(steps, "Created "+marker(countPhrase(n, "object", "objects")))
	}
	return steps
}

func (s *synth) callSteps() []string {
	var order []string
	counts := make(map[string]int)
	for _, call := range s.c.Calls {
		if isRoutineCall(call.Function) {
			continue
		}
		if counts[call.DisplayName] == 0 {
			order = append(order, call.DisplayName)
		}
		counts[call.DisplayName]++
	}

	steps := make([]string, 0, len(order))
	for _, name := range order {
		step := "Called " + name
		if n := counts[name]; n > 1 {
			step += fmt.Sprintf(" (x%d)", n)
		}
		steps = append(steps, step)
	}
	return steps
}

func isRoutineCall(function string) bool {
	fn := strings.ToLower(function)
	for _, p := range routineCallPrefixes {
		if strings.HasPrefix(fn, p) {
			return true
		}
	}
	return false
}

func (s *synth) mintSteps() []string {
	type group struct {
		names []string
		items []normalize.ObjectChange
	}
	var order []string
	groups := make(map[string]*group)

	for _, ch := range s.c.CreatedNFTs() {
		if !isRelevantNFT(ch.NFT, ch.Type) {
			continue
		}
		name := nftName(ch.NFT)
		col := collectionName(name)
		if col == "" {
			col = name
		}
		if looksLikeAddress(col) || looksLikeAddress(name) {
			continue
		}
		g, ok := groups[col]
		if !ok {
			g = &group{}
			groups[col] = g
			order = append(order, col)
		}
		g.names = append(g.names, name)
		g.items = append(g.items, ch)
	}

	steps := make([]string, 0, len(order))
	for _, col := range order {
		g := groups[col]
		step := "Minted " + itemsPhrase(g.names)
		if owner, ok := s.soleRecipient(g.items); ok {
			step += " for " + s.who(owner)
		}
		steps = append(steps, step)
	}
	return steps
}

// soleRecipient returns the single non-sender address that owns every
// change in chs.
func (s *synth) soleRecipient(chs []normalize.ObjectChange) (string, bool) {
	var addr string
	for _, ch := range chs {
		if ch.Owner == nil || !ch.Owner.IsAddress() || s.isSender(*ch.Owner) {
			return "", false
		}
		if addr == "" {
			addr = ch.Owner.Address
			continue
		}
		if !normalize.SameAddress(addr, ch.Owner.Address) {
			return "", false
		}
	}
	return addr, addr != ""
}

func (s *synth) transferSteps() []string {
	type pair struct {
		first normalize.Transfer
		names []string
	}
	var order []string
	pairs := make(map[string]*pair)

	for _, tr := range s.c.Transferred {
		if !tr.IsNFT || !isRelevantNFT(tr.NFT, tr.Type) || s.isSender(tr.To) {
			continue
		}
		key := strings.ToLower(tr.From.Address) + "->" + tr.To.Kind.String() + ":" + strings.ToLower(tr.To.Address)
		p, ok := pairs[key]
		if !ok {
			p = &pair{first: tr}
			pairs[key] = p
			order = append(order, key)
		}
		p.names = append(p.names, nftName(tr.NFT))
	}

	steps := make([]string, 0, len(order))
	for _, key := range order {
		p := pairs[key]
		steps = append(steps, s.owner(p.first.From)+" sent "+itemsPhrase(p.names)+" to "+s.owner(p.first.To))
	}
	return steps
}
