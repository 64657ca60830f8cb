// Package stores defines the narrow persistence interface events are saved
// to and queried from. Backends live in sub-packages.
package stores

import (
	"context"
	"errors"
	"slices"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
)

var (
	ErrNotFound = errors.New("event not found")
	ErrClosed   = errors.New("store is closed")
)

// DefaultMaxLimit caps queries that carry no limit.
const DefaultMaxLimit = 500

type Store interface {
	// SaveEvent writes ev. Saving an id that already exists is a no-op.
	SaveEvent(ctx context.Context, ev *events.Event) error
	// QueryEvents returns matches newest first, ties by ascending id, at
	// most the filter's limit (DefaultMaxLimit when unset).
	QueryEvents(ctx context.Context, f filter.Filter) ([]*events.Event, error)
	HasEvent(ctx context.Context, id string) (bool, error)
	// DeleteEvents removes the given ids; unknown ids are ignored.
	DeleteEvents(ctx context.Context, ids ...string) error
	Close() error
}

// HeadIndex is implemented by stores that track the current event for each
// replaceable or addressable address, so retention can skip a query.
type HeadIndex interface {
	// Latest returns the head event for addr, or ErrNotFound.
	Latest(ctx context.Context, addr string) (*events.Event, error)
}

// QueryFilters runs every filter with its own limit and merges the results
// newest first without duplicates.
func QueryFilters(ctx context.Context, store Store, fs filter.Filters) ([]*events.Event, error) {
	seen := make(map[string]struct{})
	var out []*events.Event
	for _, f := range fs {
		evs, err := store.QueryEvents(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, ev := range evs {
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			seen[ev.ID] = struct{}{}
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, filter.Compare)
	return out, nil
}

// Limit resolves the effective result cap of f.
func Limit(f filter.Filter) int {
	n := f.MaxResults()
	if n < 0 {
		return DefaultMaxLimit
	}
	return n
}

// Finish sorts matches into result order and applies the limit. Backends
// that collect candidates out of order call it last.
func Finish(matched []*events.Event, f filter.Filter) []*events.Event {
	slices.SortFunc(matched, filter.Compare)
	if n := Limit(f); len(matched) > n {
		matched = matched[:n]
	}
	return matched
}
