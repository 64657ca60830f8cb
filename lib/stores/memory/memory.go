// Package memory is a process-local event store backed by a concurrent map.
package memory

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
)

type MemoryStore struct {
	events *xsync.MapOf[string, *events.Event]
	closed atomic.Bool
}

func NewStore() *MemoryStore {
	return &MemoryStore{events: xsync.NewMapOf[string, *events.Event]()}
}

func (store *MemoryStore) SaveEvent(ctx context.Context, ev *events.Event) error {
	if store.closed.Load() {
		return stores.ErrClosed
	}
	store.events.LoadOrStore(ev.ID, ev.Clone())
	return nil
}

func (store *MemoryStore) QueryEvents(ctx context.Context, f filter.Filter) ([]*events.Event, error) {
	if store.closed.Load() {
		return nil, stores.ErrClosed
	}

	var matched []*events.Event
	if len(f.IDs) > 0 {
		seen := make(map[string]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if ev, ok := store.events.Load(id); ok && f.Matches(ev) {
				matched = append(matched, ev.Clone())
			}
		}
	} else {
		store.events.Range(func(_ string, ev *events.Event) bool {
			if f.Matches(ev) {
				matched = append(matched, ev.Clone())
			}
			return ctx.Err() == nil
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return stores.Finish(matched, f), nil
}

func (store *MemoryStore) HasEvent(ctx context.Context, id string) (bool, error) {
	if store.closed.Load() {
		return false, stores.ErrClosed
	}
	_, ok := store.events.Load(id)
	return ok, nil
}

func (store *MemoryStore) DeleteEvents(ctx context.Context, ids ...string) error {
	if store.closed.Load() {
		return stores.ErrClosed
	}
	for _, id := range ids {
		store.events.Delete(id)
	}
	return nil
}

func (store *MemoryStore) Len() int { return store.events.Size() }

func (store *MemoryStore) Close() error {
	store.closed.Store(true)
	return nil
}
