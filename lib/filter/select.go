package filter

import (
	"iter"
	"slices"
	"strings"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
)

// Compare orders events newest first, ties broken by ascending id.
func Compare(a, b *events.Event) int {
	switch {
	case a.CreatedAt > b.CreatedAt:
		return -1
	case a.CreatedAt < b.CreatedAt:
		return 1
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

// Select yields the events matching f, newest first, stopping after the
// filter's limit. The input slice is not modified. Matching happens before
// sorting so only candidates are ordered; yielding is lazy.
func Select(evs []*events.Event, f Filter) iter.Seq[*events.Event] {
	return func(yield func(*events.Event) bool) {
		n := f.MaxResults()
		if n == 0 {
			return
		}
		matched := make([]*events.Event, 0, len(evs))
		for _, ev := range evs {
			if f.Matches(ev) {
				matched = append(matched, ev)
			}
		}
		slices.SortFunc(matched, Compare)
		for i, ev := range matched {
			if n > 0 && i >= n {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Select yields the union of every filter's result, each filter applying
// its own limit, newest first and without duplicates.
func (fs Filters) Select(evs []*events.Event) iter.Seq[*events.Event] {
	return func(yield func(*events.Event) bool) {
		seen := make(map[string]struct{})
		var union []*events.Event
		for _, f := range fs {
			for ev := range Select(evs, f) {
				if _, ok := seen[ev.ID]; ok {
					continue
				}
				seen[ev.ID] = struct{}{}
				union = append(union, ev)
			}
		}
		slices.SortFunc(union, Compare)
		for _, ev := range union {
			if !yield(ev) {
				return
			}
		}
	}
}

// Collect drains a sequence into a slice.
func Collect(seq iter.Seq[*events.Event]) []*events.Event {
	return slices.Collect(seq)
}
