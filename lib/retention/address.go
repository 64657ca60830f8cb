// Package retention applies storage-class rules: ephemeral events are never
// kept, and replaceable and addressable events keep only the newest event
// per address.
package retention

import (
	"strconv"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
)

// Address is the retention key of a keyed event: "kind:pubkey" for
// replaceable kinds and "kind:pubkey:identifier" for addressable ones. ok is
// false for regular and ephemeral events.
func Address(ev *events.Event) (addr string, ok bool) {
	switch ev.Kind.Class() {
	case kinds.Replaceable:
		return strconv.Itoa(int(ev.Kind)) + ":" + ev.PubKey, true
	case kinds.Addressable:
		return strconv.Itoa(int(ev.Kind)) + ":" + ev.PubKey + ":" + ev.Identifier(), true
	default:
		return "", false
	}
}

// Newer reports whether a supersedes b: a later created_at wins, and on a
// tie the lexicographically greater id wins.
func Newer(a, b *events.Event) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

// Newest returns the winner among evs, or nil for an empty slice.
func Newest(evs []*events.Event) *events.Event {
	var best *events.Event
	for _, ev := range evs {
		if best == nil || Newer(ev, best) {
			best = ev
		}
	}
	return best
}

// SameAddress reports whether a and b compete for one retention slot.
func SameAddress(a, b *events.Event) bool {
	aa, ok := Address(a)
	if !ok {
		return false
	}
	ba, ok := Address(b)
	return ok && aa == ba
}

// AddressFilter selects candidates sharing ev's address. Addressable events
// without a "d" tag have the empty identifier, which a tag filter cannot
// express, so the filter is wider than the address and callers confirm
// each hit with SameAddress.
func AddressFilter(ev *events.Event) filter.Filter {
	f := filter.Filter{
		Authors: []string{ev.PubKey},
		Kinds:   []kinds.Kind{ev.Kind},
	}
	if ev.Kind.IsAddressable() {
		if id := ev.Identifier(); id != "" {
			f.Tags = filter.TagMap{"d": {id}}
		}
	}
	return f
}
