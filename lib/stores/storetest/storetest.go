// Package storetest is a conformance suite every stores.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/builder"
	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

var (
	Alice = strings.Repeat("a1", 32)
	Bob   = strings.Repeat("b2", 32)
)

// Event builds an unsigned event with a real id.
func Event(author string, kind kinds.Kind, createdAt events.Timestamp, content string, ts ...tags.Tag) *events.Event {
	return builder.New(kind).Content(content).CreatedAt(createdAt).Tag(ts...).Finalize(author)
}

// Run exercises open's store against the Store contract.
func Run(t *testing.T, open func(t *testing.T) stores.Store) {
	t.Run("SaveHasDelete", func(t *testing.T) { testSaveHasDelete(t, open(t)) })
	t.Run("QueryOrderAndLimit", func(t *testing.T) { testQueryOrder(t, open(t)) })
	t.Run("QueryDimensions", func(t *testing.T) { testQueryDimensions(t, open(t)) })
	t.Run("QueryFilters", func(t *testing.T) { testQueryFilters(t, open(t)) })
	t.Run("NegativeCreatedAt", func(t *testing.T) { testNegativeCreatedAt(t, open(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, open(t)) })
}

func save(t *testing.T, store stores.Store, evs ...*events.Event) {
	t.Helper()
	for _, ev := range evs {
		require.NoError(t, store.SaveEvent(context.Background(), ev))
	}
}

func ids(evs []*events.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.ID
	}
	return out
}

func testSaveHasDelete(t *testing.T, store stores.Store) {
	defer store.Close()
	ctx := context.Background()

	ev := Event(Alice, kinds.TextNote, 100, "hello", tags.Tag{"t", "go"})
	save(t, store, ev, ev)

	ok, err := store.HasEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.QueryEvents(ctx, filter.Filter{IDs: []string{ev.ID}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])
	assert.NoError(t, events.CheckID(got[0]))

	require.NoError(t, store.DeleteEvents(ctx, ev.ID, strings.Repeat("0", 64)))
	ok, err = store.HasEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = store.QueryEvents(ctx, filter.Filter{Tags: filter.TagMap{"t": {"go"}}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testQueryOrder(t *testing.T, store stores.Store) {
	defer store.Close()
	ctx := context.Background()

	a := Event(Alice, kinds.TextNote, 200, "a")
	b := Event(Alice, kinds.TextNote, 200, "b")
	c := Event(Bob, kinds.TextNote, 300, "c")
	d := Event(Bob, kinds.TextNote, 100, "d")
	save(t, store, a, b, c, d)

	first, second := a, b
	if b.ID < a.ID {
		first, second = b, a
	}

	got, err := store.QueryEvents(ctx, filter.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, first.ID, second.ID, d.ID}, ids(got))

	got, err = store.QueryEvents(ctx, filter.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, first.ID}, ids(got))

	got, err = store.QueryEvents(ctx, filter.Filter{LimitZero: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testQueryDimensions(t *testing.T, store stores.Store) {
	defer store.Close()
	ctx := context.Background()

	note := Event(Alice, kinds.TextNote, 100, "note", tags.Tag{"t", "go"})
	chat := Event(Bob, kinds.GroupChatMessage, 150, "chat", tags.Tag{"h", "devs"}, tags.Tag{"p", Alice})
	old := Event(Bob, kinds.GroupChatMessage, 50, "old", tags.Tag{"h", "devs"})
	other := Event(Alice, kinds.GroupChatMessage, 160, "other", tags.Tag{"h", "ops"})
	save(t, store, note, chat, old, other)

	cases := []struct {
		name string
		f    filter.Filter
		want []string
	}{
		{"kinds", filter.Filter{Kinds: []kinds.Kind{kinds.TextNote}}, []string{note.ID}},
		{"authors", filter.Filter{Authors: []string{Bob}}, []string{chat.ID, old.ID}},
		{"group tag", filter.Filter{Tags: filter.TagMap{"h": {"devs"}}}, []string{chat.ID, old.ID}},
		{"two tag keys", filter.Filter{Tags: filter.TagMap{"h": {"devs", "ops"}, "p": {Alice}}}, []string{chat.ID}},
		{"since", filter.Filter{Kinds: []kinds.Kind{kinds.GroupChatMessage}, Since: filter.Timestamp(150)}, []string{other.ID, chat.ID}},
		{"until", filter.Filter{Until: filter.Timestamp(100)}, []string{note.ID, old.ID}},
		{"kind and author", filter.Filter{Kinds: []kinds.Kind{kinds.GroupChatMessage}, Authors: []string{Alice}}, []string{other.ID}},
		{"no match", filter.Filter{Kinds: []kinds.Kind{kinds.Reaction}}, []string{}},
	}
	for _, tc := range cases {
		got, err := store.QueryEvents(ctx, tc.f)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, ids(got), tc.name)
	}
}

func testQueryFilters(t *testing.T, store stores.Store) {
	defer store.Close()
	ctx := context.Background()

	n1 := Event(Alice, kinds.TextNote, 1, "n1")
	n2 := Event(Alice, kinds.TextNote, 2, "n2")
	r1 := Event(Bob, kinds.Reaction, 3, "+")
	save(t, store, n1, n2, r1)

	got, err := stores.QueryFilters(ctx, store, filter.Filters{
		{Kinds: []kinds.Kind{kinds.TextNote}, Limit: 1},
		{Authors: []string{Bob}},
		{IDs: []string{n2.ID}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, n2.ID}, ids(got))
}

func testNegativeCreatedAt(t *testing.T, store stores.Store) {
	defer store.Close()
	ctx := context.Background()

	old := Event(Alice, kinds.TextNote, -5, "before epoch")
	now := Event(Alice, kinds.TextNote, 100, "after epoch")
	save(t, store, old, now)

	since := events.Timestamp(0)
	got, err := store.QueryEvents(ctx, filter.Filter{Kinds: []kinds.Kind{kinds.TextNote}, Since: &since})
	require.NoError(t, err)
	assert.Equal(t, []string{now.ID}, ids(got))

	until := events.Timestamp(-1)
	got, err = store.QueryEvents(ctx, filter.Filter{Authors: []string{Alice}, Until: &until})
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, ids(got))

	got, err = store.QueryEvents(ctx, filter.Filter{Kinds: []kinds.Kind{kinds.TextNote}})
	require.NoError(t, err)
	assert.Equal(t, []string{now.ID, old.ID}, ids(got))
}

func testClosed(t *testing.T, store stores.Store) {
	require.NoError(t, store.Close())
	err := store.SaveEvent(context.Background(), Event(Alice, kinds.TextNote, 1, "late"))
	assert.ErrorIs(t, err, stores.ErrClosed)
}
