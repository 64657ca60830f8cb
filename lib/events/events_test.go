package events

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

func newKey(t *testing.T) (*btcec.PrivateKey, string) {
	t.Helper()
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return sk, hex.EncodeToString(schnorr.SerializePubKey(sk.PubKey()))
}

func signed(t *testing.T, sk *btcec.PrivateKey, ev *Event) *Event {
	t.Helper()
	ev.SetID()
	id, _ := hex.DecodeString(ev.ID)
	sig, err := schnorr.Sign(sk, id)
	require.NoError(t, err)
	ev.Sig = hex.EncodeToString(sig.Serialize())
	return ev
}

func sample(pubkey string) *Event {
	return &Event{
		PubKey:    pubkey,
		CreatedAt: 1700000000,
		Kind:      kinds.TextNote,
		Tags:      tags.Tags{{"t", "go"}, {"client", "x", ""}},
		Content:   "hello <world> & \"friends\"\n\ttab \u0001 \u001f é ✓",
	}
}

func TestSerializeMatchesGoNostr(t *testing.T) {
	_, pk := newKey(t)
	contents := []string{
		"",
		"plain",
		"quote \" backslash \\ slash /",
		"ctl \b \f \r \n \t \x00 \x0b \x1a \x7f",
		"<script>&amp;</script>",
		"unicode: 日本語 🎉  ",
	}
	for _, c := range contents {
		ev := sample(pk)
		ev.Content = c
		ne := ToNostr(ev)
		assert.Equal(t, string(ne.Serialize()), string(ev.Serialize()), "content %q", c)
		assert.Equal(t, ne.GetID(), ComputeID(ev), "content %q", c)
	}
}

func TestSerializeEmptyTags(t *testing.T) {
	ev := &Event{PubKey: "ab", CreatedAt: 1, Kind: 1, Content: "x"}
	assert.Equal(t, `[0,"ab",1,1,[],"x"]`, string(ev.Serialize()))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	sk, pk := newKey(t)
	ev := signed(t, sk, sample(pk))
	require.NoError(t, Verify(ev))

	ok, err := ToNostr(ev).CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyGoNostrSigned(t *testing.T) {
	sk, _ := newKey(t)
	ne := &nostr.Event{Kind: 1, CreatedAt: 1700000000, Content: "from go-nostr", Tags: nostr.Tags{{"p", "x"}}}
	require.NoError(t, ne.Sign(hex.EncodeToString(sk.Serialize())))
	assert.NoError(t, Verify(FromNostr(ne)))
}

func TestAnyFieldChangeChangesID(t *testing.T) {
	_, pk := newKey(t)
	_, other := newKey(t)
	base := ComputeID(sample(pk))

	mutations := map[string]func(*Event){
		"pubkey":     func(ev *Event) { ev.PubKey = other },
		"created_at": func(ev *Event) { ev.CreatedAt++ },
		"kind":       func(ev *Event) { ev.Kind = kinds.Reaction },
		"tag value":  func(ev *Event) { ev.Tags[0][1] = "gp" },
		"tag order":  func(ev *Event) { ev.Tags[0], ev.Tags[1] = ev.Tags[1], ev.Tags[0] },
		"tag added":  func(ev *Event) { ev.Tags = append(ev.Tags, tags.Tag{"t"}) },
		"content":    func(ev *Event) { ev.Content += " " },
	}
	for name, mutate := range mutations {
		ev := sample(pk)
		mutate(ev)
		assert.NotEqual(t, base, ComputeID(ev), name)
	}
}

func TestVerifyFailures(t *testing.T) {
	sk, pk := newKey(t)

	ev := signed(t, sk, sample(pk))
	ev.Content = "tampered"
	assert.True(t, errors.Is(Verify(ev), ErrIDMismatch))

	ev = signed(t, sk, sample(pk))
	ev.ID = "zz"
	assert.ErrorIs(t, CheckID(ev), ErrIDMismatch)

	ev = signed(t, sk, sample(pk))
	other, _ := newKey(t)
	ev2 := signed(t, other, sample(pk))
	ev.Sig = ev2.Sig
	assert.ErrorIs(t, Verify(ev), ErrInvalidSignature)

	ev = signed(t, sk, sample(pk))
	ev.Sig = "00"
	assert.ErrorIs(t, Verify(ev), ErrInvalidSignature)

	assert.ErrorIs(t, VerifySignature("nothex", pk, ev.Sig), ErrInvalidSignature)
}

func TestJSONFieldOrderAndRoundTrip(t *testing.T) {
	sk, pk := newKey(t)
	ev := signed(t, sk, sample(pk))

	data, err := ev.MarshalJSON()
	require.NoError(t, err)
	s := string(data)
	order := []string{`"id"`, `"pubkey"`, `"created_at"`, `"kind"`, `"tags"`, `"content"`, `"sig"`}
	last := -1
	for _, k := range order {
		i := strings.Index(s, k)
		require.Greater(t, i, last, "field %s out of order in %s", k, s)
		last = i
	}

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ev, back)
	assert.NoError(t, Verify(back))

	var ne nostr.Event
	require.NoError(t, ne.UnmarshalJSON(data))
	assert.Equal(t, ev.ID, ne.ID)
	assert.Equal(t, ev.Content, ne.Content)
}

func TestJSONNilTags(t *testing.T) {
	data, err := Event{Kind: 1}.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tags":[]`)
}

func TestLessOrdering(t *testing.T) {
	a := &Event{ID: "aa", CreatedAt: 10}
	b := &Event{ID: "bb", CreatedAt: 10}
	c := &Event{ID: "00", CreatedAt: 20}
	assert.True(t, Less(c, a))
	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))
}
