// Package badgerhold persists events in BadgerDB. Events and their indexes
// are written as raw keys; the per-address head records go through the
// badgerhold ORM.
package badgerhold

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/multierr"

	"github.com/HORNET-Storage/hornet-groups/lib/logging"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
)

type BadgerholdStore struct {
	DatabasePath string
	Database     *badgerhold.Store

	closed atomic.Bool
}

var _ stores.Store = (*BadgerholdStore)(nil)
var _ stores.HeadIndex = (*BadgerholdStore)(nil)

func cborEncode(value interface{}) ([]byte, error) {
	return cbor.Marshal(value)
}

func cborDecode(data []byte, value interface{}) error {
	return cbor.Unmarshal(data, value)
}

// InitStore opens or creates the database under basepath.
func InitStore(basepath string) (*BadgerholdStore, error) {
	store := &BadgerholdStore{DatabasePath: basepath}

	options := badgerhold.DefaultOptions
	options.Encoder = cborEncode
	options.Decoder = cborDecode
	options.Options = badger.DefaultOptions(basepath).
		WithLogger(nil).
		WithNumVersionsToKeep(1). // no history needed
		WithCompactL0OnClose(true)

	var err error
	store.Database, err = badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", basepath, err)
	}

	if err := CheckSchemaVersion(store.Database.Badger()); err != nil {
		return nil, multierr.Append(fmt.Errorf("schema version check failed: %w", err), store.Database.Close())
	}

	logging.Debug("Opened badger store", logging.Fields{"path": basepath})
	return store, nil
}

// Close flushes and closes the database. Closing twice is a no-op.
func (store *BadgerholdStore) Close() error {
	if !store.closed.CompareAndSwap(false, true) {
		return nil
	}

	var result error
	result = multierr.Append(result, store.Database.Badger().Sync())
	result = multierr.Append(result, store.Database.Close())
	return result
}

func (store *BadgerholdStore) IsClosed() bool { return store.closed.Load() }

func (store *BadgerholdStore) ready(ctx context.Context) error {
	if store.IsClosed() {
		return stores.ErrClosed
	}
	return ctx.Err()
}

// RunGC reclaims value log space and returns how many files were rewritten.
func (store *BadgerholdStore) RunGC() int {
	if store.IsClosed() {
		return 0
	}

	count := 0
	for store.Database.Badger().RunValueLogGC(0.5) == nil {
		count++
	}
	return count
}

// CheckSchemaVersion stamps a fresh database with the current version and
// refuses to open one written with a different layout.
func CheckSchemaVersion(db *badger.DB) error {
	var version int
	hasVersion := false

	err := db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(schemaVersionKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		hasVersion = true
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &version)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if hasVersion {
		if version != currentSchemaVersion {
			return fmt.Errorf("database schema version %d is not supported (expected %d)", version, currentSchemaVersion)
		}
		return nil
	}

	return db.Update(func(tx *badger.Txn) error {
		val, err := cbor.Marshal(currentSchemaVersion)
		if err != nil {
			return err
		}
		return tx.Set([]byte(schemaVersionKey), val)
	})
}
