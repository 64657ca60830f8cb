package kvp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/multierr"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
)

const EventBucket = "events"

// EventStore keeps events CBOR-encoded in one bucket keyed by id. Queries
// scan the bucket, which suits the small embedded databases it targets.
type EventStore struct {
	kv     KeyValueStore
	bucket KeyValueStoreBucket

	mu     sync.Mutex
	closed atomic.Bool
}

var _ stores.Store = (*EventStore)(nil)

func NewEventStore(kv KeyValueStore) *EventStore {
	return &EventStore{kv: kv, bucket: kv.GetBucket(EventBucket)}
}

func (store *EventStore) ready(ctx context.Context) error {
	if store.closed.Load() {
		return stores.ErrClosed
	}
	return ctx.Err()
}

func (store *EventStore) SaveEvent(ctx context.Context, ev *events.Event) error {
	if err := store.ready(ctx); err != nil {
		return err
	}

	data, err := cbor.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if _, err := store.bucket.Get(ev.ID); err == nil {
		return nil
	} else if !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	return store.bucket.Put(ev.ID, data)
}

func (store *EventStore) HasEvent(ctx context.Context, id string) (bool, error) {
	if err := store.ready(ctx); err != nil {
		return false, err
	}
	_, err := store.bucket.Get(id)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (store *EventStore) DeleteEvents(ctx context.Context, ids ...string) error {
	if err := store.ready(ctx); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	return store.bucket.Delete(ids)
}

func (store *EventStore) QueryEvents(ctx context.Context, f filter.Filter) ([]*events.Event, error) {
	if err := store.ready(ctx); err != nil {
		return nil, err
	}
	if stores.Limit(f) == 0 {
		return nil, nil
	}

	var matched []*events.Event
	if len(f.IDs) > 0 {
		seen := make(map[string]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			data, err := store.bucket.Get(id)
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			ev, err := decode(data)
			if err != nil {
				return nil, err
			}
			if f.Matches(ev) {
				matched = append(matched, ev)
			}
		}
		return stores.Finish(matched, f), nil
	}

	it, err := store.bucket.Scan()
	if err != nil {
		return nil, err
	}
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, multierr.Append(err, it.Close())
		}
		ev, err := decode(it.Value())
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("corrupt event %x: %w", it.Key(), err), it.Close())
		}
		if f.Matches(ev) {
			matched = append(matched, ev)
		}
	}
	if err := multierr.Append(it.Error(), it.Close()); err != nil {
		return nil, err
	}
	return stores.Finish(matched, f), nil
}

// Close closes the underlying key-value store. Closing twice is a no-op.
func (store *EventStore) Close() error {
	if !store.closed.CompareAndSwap(false, true) {
		return nil
	}
	return store.kv.Cleanup()
}

func decode(data []byte) (*events.Event, error) {
	var ev events.Event
	if err := cbor.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
