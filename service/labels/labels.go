// Package labels assigns short pseudonyms ("User A", "User B", ...) to the
// addresses seen while interpreting one transaction.
package labels

import (
	"strings"
)

const (
	prefix   = "User "
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Capacity is the number of pseudonyms available to one run.
	Capacity = len(alphabet)

	// Unknown is shown for an empty address.
	Unknown = "Unknown"
)

// Entry pairs a label with the address it stands for.
type Entry struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// Labeler is a bidirectional address/label map scoped to one interpretation.
// It is not safe for concurrent use.
type Labeler struct {
	byAddress map[string]string
	byLabel   map[string]string
	order     []Entry
	assigned  int
	frozen    bool
}

// New returns an empty Labeler.
func New() *Labeler {
	return &Labeler{
		byAddress: make(map[string]string),
		byLabel:   make(map[string]string),
	}
}

// Assign returns the label for addr, allocating the next pseudonym on first
// sight. Once the alphabet is exhausted, addresses get a truncated display
// instead. After Freeze, Assign behaves like Lookup.
func (l *Labeler) Assign(addr string) string {
	key := canonical(addr)
	if key == "" {
		return Unknown
	}
	if label, ok := l.byAddress[key]; ok {
		return label
	}
	if l.frozen {
		return l.fallback(key)
	}

	var label string
	if l.assigned < Capacity {
		label = prefix + string(alphabet[l.assigned])
		l.assigned++
	} else {
		label = l.fallback(key)
	}
	l.byAddress[key] = label
	l.byLabel[label] = key
	l.order = append(l.order, Entry{Label: label, Address: key})
	return label
}

// Lookup returns the label for addr without allocating. Addresses that were
// never assigned render as a truncated address.
func (l *Labeler) Lookup(addr string) string {
	key := canonical(addr)
	if key == "" {
		return Unknown
	}
	if label, ok := l.byAddress[key]; ok {
		return label
	}
	return l.fallback(key)
}

// Has reports whether addr has been assigned a label.
func (l *Labeler) Has(addr string) bool {
	_, ok := l.byAddress[canonical(addr)]
	return ok
}

// Address resolves a label back to its address.
func (l *Labeler) Address(label string) (string, bool) {
	addr, ok := l.byLabel[label]
	return addr, ok
}

// Freeze stops further allocation.
func (l *Labeler) Freeze() {
	l.frozen = true
}

// Entries returns the assignments in allocation order.
func (l *Labeler) Entries() []Entry {
	out := make([]Entry, len(l.order))
	copy(out, l.order)
	return out
}

// Len is the number of assigned addresses.
func (l *Labeler) Len() int {
	return len(l.order)
}

// fallback renders key as 0x1234...abcd. The result never equals a
// pseudonym or a label already taken by another address.
func (l *Labeler) fallback(key string) string {
	label := Truncate(key)
	if owner, taken := l.byLabel[label]; taken && owner != key {
		label = key
	}
	if strings.HasPrefix(strings.ToLower(label), strings.ToLower(prefix)) {
		label = "[" + label + "]"
	}
	return label
}

// Truncate shortens an address to its first six and last four characters.
func Truncate(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func canonical(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
