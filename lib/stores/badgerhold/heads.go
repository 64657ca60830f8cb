package badgerhold

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/retention"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
)

// AddressHead points at the current event of a replaceable or addressable
// address.
type AddressHead struct {
	Address   string
	EventID   string
	CreatedAt int64
}

func (h AddressHead) beats(ev *events.Event) bool {
	if h.CreatedAt != int64(ev.CreatedAt) {
		return h.CreatedAt > int64(ev.CreatedAt)
	}
	return h.EventID > ev.ID
}

func headOf(addr string, ev *events.Event) AddressHead {
	return AddressHead{Address: addr, EventID: ev.ID, CreatedAt: int64(ev.CreatedAt)}
}

// Latest returns the head event stored for addr.
func (store *BadgerholdStore) Latest(ctx context.Context, addr string) (*events.Event, error) {
	if err := store.ready(ctx); err != nil {
		return nil, err
	}

	var ev *events.Event
	err := store.Database.Badger().View(func(tx *badger.Txn) error {
		var head AddressHead
		if err := store.Database.TxGet(tx, addr, &head); err != nil {
			return err
		}
		var err error
		ev, err = getEvent(tx, head.EventID)
		return err
	})
	if errors.Is(err, badgerhold.ErrNotFound) || errors.Is(err, badger.ErrKeyNotFound) {
		return nil, stores.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load head of %s: %w", addr, err)
	}
	return ev, nil
}

// offerHead makes ev the head of its address unless the current head is
// newer.
func (store *BadgerholdStore) offerHead(tx *badger.Txn, ev *events.Event) error {
	addr, ok := retention.Address(ev)
	if !ok {
		return nil
	}

	var head AddressHead
	err := store.Database.TxGet(tx, addr, &head)
	switch {
	case errors.Is(err, badgerhold.ErrNotFound):
	case err != nil:
		return err
	case head.beats(ev):
		return nil
	}
	return store.Database.TxUpsert(tx, addr, headOf(addr, ev))
}

// dropHead repairs the head of ev's address after ev was deleted, promoting
// the newest remaining event at that address if there is one.
func (store *BadgerholdStore) dropHead(tx *badger.Txn, ev *events.Event) error {
	addr, ok := retention.Address(ev)
	if !ok {
		return nil
	}

	var head AddressHead
	err := store.Database.TxGet(tx, addr, &head)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if head.EventID != ev.ID {
		return nil
	}

	next, err := newestAt(tx, addr, ev)
	if err != nil {
		return err
	}
	if next == nil {
		return store.Database.TxDelete(tx, addr, AddressHead{})
	}
	return store.Database.TxUpsert(tx, addr, headOf(addr, next))
}

// newestAt scans the author index for the newest surviving event sharing
// like's address.
func newestAt(tx *badger.Txn, addr string, like *events.Event) (*events.Event, error) {
	prefix := []byte(prefixAuthorTime + like.PubKey + ":")

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Reverse = true
	opts.Prefix = prefix
	it := tx.NewIterator(opts)
	defer it.Close()

	var candidates []*events.Event
	for it.Seek(seekEnd(prefix)); it.ValidForPrefix(prefix); it.Next() {
		id := extractEventIDFromKey(it.Item().Key())
		if id == like.ID {
			continue
		}
		ev, err := getEvent(tx, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if a, ok := retention.Address(ev); ok && a == addr {
			candidates = append(candidates, ev)
		}
	}
	return retention.Newest(candidates), nil
}
