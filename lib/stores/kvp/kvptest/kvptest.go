// Package kvptest checks kvp.KeyValueStore implementations and runs the
// event store conformance suite over them.
package kvptest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/storetest"
)

// Run exercises open's key-value store directly and through kvp.EventStore.
func Run(t *testing.T, open func(t *testing.T) kvp.KeyValueStore) {
	t.Run("Buckets", func(t *testing.T) { testBuckets(t, open(t)) })
	t.Run("EventStore", func(t *testing.T) {
		storetest.Run(t, func(t *testing.T) stores.Store { return kvp.NewEventStore(open(t)) })
	})
	t.Run("EventsDecode", func(t *testing.T) { testEventsDecode(t, open(t)) })
}

func testBuckets(t *testing.T, kv kvp.KeyValueStore) {
	defer kv.Cleanup()

	b := kv.GetBucket("things")
	assert.Equal(t, "things", b.GetPrefix())

	_, err := b.Get("missing")
	assert.ErrorIs(t, err, kvp.ErrKeyNotFound)

	it, err := b.Scan()
	require.NoError(t, err)
	assert.False(t, it.Next())
	require.NoError(t, it.Close())

	require.NoError(t, b.Put("b", []byte("2")))
	require.NoError(t, b.Put("a", []byte("1")))
	require.NoError(t, b.Put("c", []byte("3")))

	v, err := b.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	got := map[string]string{}
	it, err = b.Scan()
	require.NoError(t, err)
	for it.Next() {
		got[string(it.Key())] = string(it.Value())
	}
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, got)

	require.NoError(t, b.Delete([]string{"a", "nope"}))
	_, err = b.Get("a")
	assert.ErrorIs(t, err, kvp.ErrKeyNotFound)

	assert.Contains(t, kv.GetBucketList(), "things")
}

func testEventsDecode(t *testing.T, kv kvp.KeyValueStore) {
	store := kvp.NewEventStore(kv)
	defer store.Close()
	ctx := context.Background()

	ev := storetest.Event(storetest.Bob, kinds.GroupChatMessage, 7, "hi", []string{"h", "club"})
	require.NoError(t, store.SaveEvent(ctx, ev))

	got, err := store.QueryEvents(ctx, filter.Filter{IDs: []string{ev.ID}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, *ev, *got[0])
}
