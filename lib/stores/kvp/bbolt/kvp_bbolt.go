package bbolt

import (
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp"
)

type Buckets struct {
	db *bbolt.DB
	mu sync.RWMutex
}

type Bucket struct {
	prefix  []byte
	buckets *Buckets
}

type Iterator struct {
	tx      *bbolt.Tx
	cursor  *bbolt.Cursor
	started bool
	k, v    []byte
	err     error
}

var _ kvp.KeyValueStore = (*Buckets)(nil)

func InitBuckets(path string) (*Buckets, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %v", err)
	}

	return &Buckets{
		db: db,
	}, nil
}

func (b *Buckets) Cleanup() error {
	return b.db.Close()
}

func (b *Buckets) GetBucket(name string) kvp.KeyValueStoreBucket {
	return &Bucket{
		prefix:  []byte(name),
		buckets: b,
	}
}

// GetBucketList returns the buckets that have been written to.
func (b *Buckets) GetBucketList() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var list []string
	b.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			list = append(list, string(name))
			return nil
		})
	})

	return list
}

func (b *Bucket) GetPrefix() string {
	return string(b.prefix)
}

func (b *Bucket) Get(key string) ([]byte, error) {
	var value []byte
	err := b.buckets.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.prefix)
		if bucket == nil {
			return fmt.Errorf("%w: %s", kvp.ErrKeyNotFound, key)
		}

		result := bucket.Get([]byte(key))
		if result == nil {
			return fmt.Errorf("%w: %s", kvp.ErrKeyNotFound, key)
		}

		value = make([]byte, len(result))
		copy(value, result)
		return nil
	})

	return value, err
}

func (b *Bucket) Put(key string, value []byte) error {
	b.buckets.mu.Lock()
	defer b.buckets.mu.Unlock()

	return b.buckets.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(b.prefix)
		if err != nil {
			return fmt.Errorf("could not create bucket: %v", err)
		}

		return bucket.Put([]byte(key), value)
	})
}

func (b *Bucket) Delete(keys []string) error {
	return b.buckets.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.prefix)
		if bucket == nil {
			return nil
		}

		for _, key := range keys {
			if err := bucket.Delete([]byte(key)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Scan iterates the bucket in key order inside a read transaction that
// lives until the iterator is closed.
func (b *Bucket) Scan() (kvp.Iterator, error) {
	tx, err := b.buckets.db.Begin(false)
	if err != nil {
		return nil, err
	}

	iter := &Iterator{tx: tx}
	if bucket := tx.Bucket(b.prefix); bucket != nil {
		iter.cursor = bucket.Cursor()
	}

	return iter, nil
}

func (it *Iterator) Next() bool {
	if it.cursor == nil {
		return false
	}

	if !it.started {
		it.started = true
		it.k, it.v = it.cursor.First()
	} else if it.k != nil {
		it.k, it.v = it.cursor.Next()
	}

	return it.k != nil
}

func (it *Iterator) Key() []byte {
	return it.k
}

func (it *Iterator) Value() []byte {
	return it.v
}

func (it *Iterator) Error() error {
	return it.err
}

func (it *Iterator) Close() error {
	return it.tx.Rollback()
}
