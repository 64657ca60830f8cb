package badgerhold

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/retention"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/storetest"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

func open(t *testing.T) *BadgerholdStore {
	t.Helper()
	store, err := InitStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) stores.Store { return open(t) })
}

func TestTimeKeysSortAcrossZero(t *testing.T) {
	id := strings.Repeat("e", 64)
	stamps := []int64{math.MinInt64, -5, -1, 0, 1, 100, math.MaxInt64}
	for i := 1; i < len(stamps); i++ {
		lo, hi := eventTimeKey(stamps[i-1], id), eventTimeKey(stamps[i], id)
		assert.Negative(t, bytes.Compare(lo, hi), "%d < %d", stamps[i-1], stamps[i])
	}
	for _, ts := range stamps {
		assert.Equal(t, ts, extractTimestampFromKey(eventTimeKey(ts, id)))
	}
}

func TestReopenKeepsEvents(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := InitStore(dir)
	require.NoError(t, err)
	ev := storetest.Event(storetest.Alice, kinds.TextNote, 10, "persisted", tags.Tag{"t", "x"})
	require.NoError(t, store.SaveEvent(ctx, ev))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	store, err = InitStore(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.QueryEvents(ctx, filter.Filter{Tags: filter.TagMap{"t": {"x"}}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.Equal(t, ev.Tags, got[0].Tags)
	assert.NoError(t, events.CheckID(got[0]))
}

func TestTiesAtLimitResolvedByID(t *testing.T) {
	store := open(t)
	defer store.Close()
	ctx := context.Background()

	var all []*events.Event
	for _, content := range []string{"a", "b", "c", "d", "e"} {
		ev := storetest.Event(storetest.Alice, kinds.TextNote, 50, content)
		all = append(all, ev)
		require.NoError(t, store.SaveEvent(ctx, ev))
	}

	got, err := store.QueryEvents(ctx, filter.Filter{Kinds: []kinds.Kind{kinds.TextNote}, Limit: 2})
	require.NoError(t, err)
	want := stores.Finish(all, filter.Filter{Limit: 2})
	require.Len(t, got, 2)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, want[1].ID, got[1].ID)
}

func TestAddressHeads(t *testing.T) {
	store := open(t)
	defer store.Close()
	ctx := context.Background()

	old := storetest.Event(storetest.Bob, kinds.LongFormArticle, 100, "v1", tags.Tag{"d", "post"})
	cur := storetest.Event(storetest.Bob, kinds.LongFormArticle, 200, "v2", tags.Tag{"d", "post"})
	addr, _ := retention.Address(cur)

	_, err := store.Latest(ctx, addr)
	assert.ErrorIs(t, err, stores.ErrNotFound)

	require.NoError(t, store.SaveEvent(ctx, cur))
	require.NoError(t, store.SaveEvent(ctx, old))

	head, err := store.Latest(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, cur.ID, head.ID)

	require.NoError(t, store.DeleteEvents(ctx, cur.ID))
	head, err = store.Latest(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, old.ID, head.ID)

	require.NoError(t, store.DeleteEvents(ctx, old.ID))
	_, err = store.Latest(ctx, addr)
	assert.ErrorIs(t, err, stores.ErrNotFound)
}

func TestIngestorUsesHeads(t *testing.T) {
	store := open(t)
	defer store.Close()
	ctx := context.Background()
	in := retention.NewIngestor(store, retention.WithoutVerification())

	first := storetest.Event(storetest.Alice, kinds.ContactList, 1, "")
	second := storetest.Event(storetest.Alice, kinds.ContactList, 2, "")

	res, err := in.Ingest(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, retention.Stored, res.Status)

	res, err = in.Ingest(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, retention.Replaced, res.Status)

	res, err = in.Ingest(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, retention.Superseded, res.Status)

	ok, err := store.HasEvent(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
