// Package kvp abstracts ordered key-value engines behind named buckets and
// layers an event store on top of any of them.
package kvp

import (
	"errors"
	"io"
)

var ErrKeyNotFound = errors.New("key not found")

type KeyValueStore interface {
	GetBucket(name string) KeyValueStoreBucket
	GetBucketList() []string
	Cleanup() error
}

type KeyValueStoreBucket interface {
	GetPrefix() string
	// Get returns ErrKeyNotFound when key is absent.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// Delete ignores keys that are absent.
	Delete(keys []string) error
	Scan() (Iterator, error)
}

type Iterator interface {
	// Next advances the iterator to the next key-value pair
	// Returns false when there are no more items or if an error occurred
	Next() bool

	// Key returns the current key
	Key() []byte

	// Value returns the current value
	Value() []byte

	// Error returns any error encountered during iteration
	Error() error

	// Close releases any resources associated with the iterator
	io.Closer
}
