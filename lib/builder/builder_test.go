package builder

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/signing"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

var hexID = strings.Repeat("cd", 32)

func TestBuilderIsImmutable(t *testing.T) {
	base := New(kinds.TextNote).Tag(tags.Tag{"t", "base"})
	a := base.Tag(tags.Tag{"t", "a"}).Content("a")
	b := base.Tag(tags.Tag{"t", "b"}).Content("b")

	assert.Equal(t, tags.Tags{{"t", "base"}}, base.Tags())
	assert.Equal(t, tags.Tags{{"t", "base"}, {"t", "a"}}, a.Tags())
	assert.Equal(t, tags.Tags{{"t", "base"}, {"t", "b"}}, b.Tags())

	// caller-owned slices are copied
	raw := tags.Tag{"t", "mine"}
	c := base.Tag(raw)
	raw[1] = "changed"
	assert.Equal(t, "mine", c.Tags()[1][1])

	// returned tags are copies too
	got := c.Tags()
	got[0][1] = "x"
	assert.Equal(t, "base", c.Tags()[0][1])
}

func TestBuilderConcurrentTemplates(t *testing.T) {
	base := New(kinds.TextNote).CreatedAt(100).Tag(tags.Tag{"t", "x"})
	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := base.Tag(tags.Tag{"n", strings.Repeat("a", i)}).Finalize(hexID)
			ids[i] = ev.ID
		}(i)
	}
	wg.Wait()
	assert.Equal(t, tags.Tags{{"t", "x"}}, base.Tags())
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestDedupPolicies(t *testing.T) {
	b := New(kinds.TextNote).Tag(
		tags.Tag{"p", "x"},
		tags.Tag{"p", "x", "wss://r"},
		tags.Tag{"p", "x"},
		tags.Tag{"t", "y"},
	)
	assert.Len(t, b.Tags(), 4)
	assert.Equal(t, tags.Tags{{"p", "x"}, {"p", "x", "wss://r"}, {"t", "y"}}, b.Dedup(DedupExact).Tags())
	assert.Equal(t, tags.Tags{{"p", "x"}, {"t", "y"}}, b.Dedup(DedupFirstValue).Tags())

	for in, want := range map[string]Dedup{"": DedupNone, "exact": DedupExact, "first_value": DedupFirstValue} {
		got, err := ParseDedup(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDedup("sometimes")
	assert.Error(t, err)
}

func TestFinalize(t *testing.T) {
	ev := New(kinds.TextNote).Content("hi").CreatedAt(42).Finalize(hexID)
	assert.Equal(t, events.Timestamp(42), ev.CreatedAt)
	assert.Equal(t, tags.Tags{}, ev.Tags)
	assert.Empty(t, ev.Sig)
	assert.NoError(t, events.CheckID(ev))

	before := events.Now()
	ev = TextNote("now").Finalize(hexID)
	assert.GreaterOrEqual(t, int64(ev.CreatedAt), int64(before))
}

func TestSign(t *testing.T) {
	ctx := context.Background()
	signer, err := signing.GenerateKeySigner()
	require.NoError(t, err)

	ev, err := TextNote("signed").Sign(ctx, signer)
	require.NoError(t, err)
	assert.NoError(t, events.Verify(ev))

	_, err = TextNote("x").Sign(ctx, &signing.KeySigner{})
	assert.ErrorIs(t, err, signing.ErrSigningUnavailable)
}

func TestConstructors(t *testing.T) {
	parent := &events.Event{ID: hexID, PubKey: strings.Repeat("01", 32)}

	r, err := Reply(parent, "re")
	require.NoError(t, err)
	assert.Equal(t, tags.Tags{{"e", hexID, "", "root"}, {"p", parent.PubKey}}, r.Tags())

	child := r.CreatedAt(1).Finalize(parent.PubKey)
	rr, err := Reply(child, "re re")
	require.NoError(t, err)
	assert.Equal(t, tags.Tags{{"e", hexID, "", "root"}, {"e", child.ID, "", "reply"}, {"p", parent.PubKey}}, rr.Tags())

	m, err := Metadata(Profile{Name: "alice", About: "<b>"})
	require.NoError(t, err)
	assert.Equal(t, kinds.ProfileMetadata, m.Finalize(hexID).Kind)
	assert.Contains(t, m.Finalize(hexID).Content, `"name":"alice"`)

	_, err = Deletion("oops")
	assert.ErrorIs(t, err, ErrMissingRequiredTag)
	_, err = Deletion("oops", "short")
	assert.ErrorIs(t, err, tags.ErrMalformedTag)
	d, err := Deletion("oops", hexID, hexID)
	require.NoError(t, err)
	assert.Len(t, d.Tags(), 1)

	react, err := Reaction(parent, "")
	require.NoError(t, err)
	assert.Equal(t, "+", react.Finalize(hexID).Content)

	art, err := Article("my-post", "Title", "body", "go")
	require.NoError(t, err)
	ev := art.Finalize(hexID)
	assert.True(t, ev.Kind.IsAddressable())
	assert.Equal(t, "my-post", ev.Identifier())

	cl := ContactList(tags.PubKeyRef{PubKey: parent.PubKey}, tags.PubKeyRef{PubKey: parent.PubKey})
	assert.Len(t, cl.Tags(), 1)
	assert.True(t, cl.Finalize(hexID).Kind.IsReplaceable())
}
