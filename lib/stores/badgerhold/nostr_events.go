package badgerhold

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// Key schema
//
//	evt:{eventID}                                     CBOR(storedEvent)
//	eti:{kind}:{hexTime16}:{eventID}                  nil (kind-time)
//	eai:{pubkey}:{hexTime16}:{eventID}                nil (author-time)
//	ets:{hexTime16}:{eventID}                         nil (global time)
//	tag:{tagName}:{tagValue}\x00{hexTime16}:{eventID} nil (tag)
//	bh_AddressHead:{address}                          badgerhold record
//	_schema:version                                   CBOR(int)
//
// hexTime16 is the zero-padded hex of the timestamp with its sign bit
// flipped, so keys sort by time across negative values too.
const (
	prefixEvent      = "evt:"
	prefixKindTime   = "eti:"
	prefixAuthorTime = "eai:"
	prefixEventTime  = "ets:"
	prefixTag        = "tag:"

	schemaVersionKey     = "_schema:version"
	currentSchemaVersion = 2
)

// storedEvent is the value at evt:{id}. The id lives in the key.
type storedEvent struct {
	PubKey    string    `cbor:"p"`
	CreatedAt int64     `cbor:"c"`
	Kind      int       `cbor:"k"`
	Tags      tags.Tags `cbor:"t"`
	Content   string    `cbor:"n"`
	Sig       string    `cbor:"s"`
}

const signBit = uint64(1) << 63

func sortableTime(ts int64) uint64 {
	return uint64(ts) ^ signBit
}

func eventKey(id string) []byte {
	return []byte(prefixEvent + id)
}

func kindTimeKey(kind kinds.Kind, ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%d:%016x:%s", prefixKindTime, kind, sortableTime(ts), id))
}

func authorTimeKey(pub string, ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%016x:%s", prefixAuthorTime, pub, sortableTime(ts), id))
}

func eventTimeKey(ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%016x:%s", prefixEventTime, sortableTime(ts), id))
}

func tagPrefix(name, value string) []byte {
	// \x00 separates the variable-length value from the fixed-length suffix
	return []byte(fmt.Sprintf("%s%s:%s\x00", prefixTag, name, value))
}

func tagIndexKey(name, value string, ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%016x:%s", tagPrefix(name, value), sortableTime(ts), id))
}

// indexKeys lists every index entry of ev. Only single-letter tags with a
// value are indexed, matching what a filter can ask for.
func indexKeys(ev *events.Event) [][]byte {
	ts := int64(ev.CreatedAt)
	keys := [][]byte{
		kindTimeKey(ev.Kind, ts, ev.ID),
		authorTimeKey(ev.PubKey, ts, ev.ID),
		eventTimeKey(ts, ev.ID),
	}
	for _, tag := range ev.Tags {
		if len(tag) < 2 || len(tag[0]) != 1 {
			continue
		}
		keys = append(keys, tagIndexKey(tag[0], tag[1], ts, ev.ID))
	}
	return keys
}

// extractEventIDFromKey returns the 64-char id at the tail of an index key.
func extractEventIDFromKey(key []byte) string {
	if len(key) < 64 {
		return ""
	}
	return string(key[len(key)-64:])
}

// extractTimestampFromKey reads the timestamp of an index key laid out as
// ...:{16hex}:{64id}.
func extractTimestampFromKey(key []byte) int64 {
	if len(key) < 64+1+16 {
		return 0
	}
	hexStr := string(key[len(key)-64-1-16 : len(key)-64-1])
	ts, _ := strconv.ParseUint(hexStr, 16, 64)
	return int64(ts ^ signBit)
}

// seekEnd pads prefix so a reverse iterator starts past all matching keys.
func seekEnd(prefix []byte) []byte {
	out := make([]byte, 0, len(prefix)+82)
	out = append(out, prefix...)
	for i := 0; i < 82; i++ {
		out = append(out, 0xFF)
	}
	return out
}

// seekBefore positions a reverse iterator at the last key not newer than
// until within prefix.
func seekBefore(prefix []byte, until int64) []byte {
	ts := fmt.Sprintf("%016x:", sortableTime(until))
	out := make([]byte, 0, len(prefix)+17+64)
	out = append(out, prefix...)
	out = append(out, ts...)
	for i := 0; i < 64; i++ {
		out = append(out, 0xFF)
	}
	return out
}

func getEvent(tx *badger.Txn, id string) (*events.Event, error) {
	item, err := tx.Get(eventKey(id))
	if err != nil {
		return nil, err
	}
	var se storedEvent
	err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &se)
	})
	if err != nil {
		return nil, err
	}
	return &events.Event{
		ID:        id,
		PubKey:    se.PubKey,
		CreatedAt: events.Timestamp(se.CreatedAt),
		Kind:      kinds.Kind(se.Kind),
		Tags:      se.Tags,
		Content:   se.Content,
		Sig:       se.Sig,
	}, nil
}

func (store *BadgerholdStore) SaveEvent(ctx context.Context, ev *events.Event) error {
	if err := store.ready(ctx); err != nil {
		return err
	}

	val, err := cbor.Marshal(storedEvent{
		PubKey:    ev.PubKey,
		CreatedAt: int64(ev.CreatedAt),
		Kind:      int(ev.Kind),
		Tags:      ev.Tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	// Single transaction: event data, index keys and address head
	return store.Database.Badger().Update(func(tx *badger.Txn) error {
		if _, err := tx.Get(eventKey(ev.ID)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Set(eventKey(ev.ID), val); err != nil {
			return err
		}
		for _, key := range indexKeys(ev) {
			if err := tx.Set(key, nil); err != nil {
				return err
			}
		}
		return store.offerHead(tx, ev)
	})
}

func (store *BadgerholdStore) HasEvent(ctx context.Context, id string) (bool, error) {
	if err := store.ready(ctx); err != nil {
		return false, err
	}

	found := false
	err := store.Database.Badger().View(func(tx *badger.Txn) error {
		_, err := tx.Get(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

func (store *BadgerholdStore) DeleteEvents(ctx context.Context, ids ...string) error {
	if err := store.ready(ctx); err != nil {
		return err
	}

	err := store.Database.Badger().Update(func(tx *badger.Txn) error {
		for _, id := range ids {
			ev, err := getEvent(tx, id)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			if err := tx.Delete(eventKey(id)); err != nil {
				return err
			}
			for _, key := range indexKeys(ev) {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
			if err := store.dropHead(tx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}

func (store *BadgerholdStore) QueryEvents(ctx context.Context, f filter.Filter) ([]*events.Event, error) {
	if err := store.ready(ctx); err != nil {
		return nil, err
	}

	limit := stores.Limit(f)
	if limit == 0 {
		return nil, nil
	}

	logging.Debugf("QueryEvents: kinds=%v authors=%d ids=%d tags=%d limit=%d",
		f.Kinds, len(f.Authors), len(f.IDs), len(f.Tags), limit)

	var results []*events.Event
	err := store.Database.Badger().View(func(tx *badger.Txn) error {
		var e error
		switch name, values := primaryTag(f); {
		case len(f.IDs) > 0:
			results, e = queryByIDs(tx, f)
		case name != "":
			results, e = queryByTag(ctx, tx, f, name, values, limit)
		case len(f.Authors) > 0:
			results, e = queryByAuthors(ctx, tx, f, limit)
		case len(f.Kinds) > 0:
			results, e = queryByKinds(ctx, tx, f, limit)
		default:
			results, e = collectFromPrefixes(ctx, tx, [][]byte{[]byte(prefixEventTime)}, f, limit)
		}
		return e
	})
	if err != nil {
		return nil, err
	}
	return stores.Finish(results, f), nil
}

// primaryTag picks the tag constraint that drives the index scan. Keys
// with no values constrain nothing, so they are never picked.
func primaryTag(f filter.Filter) (string, []string) {
	names := make([]string, 0, len(f.Tags))
	for name, values := range f.Tags {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	slices.Sort(names)
	return names[0], f.Tags[names[0]]
}

func queryByIDs(tx *badger.Txn, f filter.Filter) ([]*events.Event, error) {
	var results []*events.Event
	seen := make(map[string]struct{}, len(f.IDs))
	for _, id := range f.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ev, err := getEvent(tx, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if f.Matches(ev) {
			results = append(results, ev)
		}
	}
	return results, nil
}

func queryByTag(ctx context.Context, tx *badger.Txn, f filter.Filter, name string, values []string, limit int) ([]*events.Event, error) {
	prefixes := make([][]byte, len(values))
	for i, v := range values {
		prefixes[i] = tagPrefix(name, v)
	}
	return collectFromPrefixes(ctx, tx, prefixes, f, limit)
}

func queryByAuthors(ctx context.Context, tx *badger.Txn, f filter.Filter, limit int) ([]*events.Event, error) {
	prefixes := make([][]byte, len(f.Authors))
	for i, a := range f.Authors {
		prefixes[i] = []byte(prefixAuthorTime + a + ":")
	}
	return collectFromPrefixes(ctx, tx, prefixes, f, limit)
}

func queryByKinds(ctx context.Context, tx *badger.Txn, f filter.Filter, limit int) ([]*events.Event, error) {
	prefixes := make([][]byte, len(f.Kinds))
	for i, k := range f.Kinds {
		prefixes[i] = []byte(fmt.Sprintf("%s%d:", prefixKindTime, k))
	}
	return collectFromPrefixes(ctx, tx, prefixes, f, limit)
}

// collectFromPrefixes reverse-iterates each index prefix newest first and
// keeps the events that pass the full filter. A prefix stops contributing
// once it has yielded limit matches and moved past the timestamp of the
// last one; events sharing that timestamp are kept so the final ordering by
// id is decided by stores.Finish.
func collectFromPrefixes(ctx context.Context, tx *badger.Txn, prefixes [][]byte, f filter.Filter, limit int) ([]*events.Event, error) {
	seen := make(map[string]struct{})
	var results []*events.Event

	for _, prefix := range prefixes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // index keys carry no value
		opts.Reverse = true
		opts.Prefix = prefix

		it := tx.NewIterator(opts)

		sk := seekEnd(prefix)
		if f.Until != nil {
			sk = seekBefore(prefix, int64(*f.Until))
		}

		matched := 0
		var cutoff int64
		for it.Seek(sk); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts := extractTimestampFromKey(key)

			if f.Since != nil && ts < int64(*f.Since) {
				break
			}
			if matched >= limit && ts < cutoff {
				break
			}

			eid := extractEventIDFromKey(key)
			if _, dup := seen[eid]; dup {
				continue
			}
			seen[eid] = struct{}{}

			ev, err := getEvent(tx, eid)
			if err != nil {
				continue
			}
			if f.Matches(ev) {
				results = append(results, ev)
				matched++
				cutoff = ts
			}
		}
		it.Close()
	}

	return results, nil
}
