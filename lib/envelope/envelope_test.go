package envelope

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/builder"
	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/signing"
)

func signedNote(t *testing.T) *events.Event {
	t.Helper()
	signer, err := signing.GenerateKeySigner()
	require.NoError(t, err)
	ev, err := builder.TextNote("hello <world> & friends").CreatedAt(1700000000).Sign(context.Background(), signer)
	require.NoError(t, err)
	return ev
}

func TestMarshalShapes(t *testing.T) {
	count := int64(7)
	limit := filter.Filter{Kinds: []kinds.Kind{9}, Tags: filter.TagMap{"h": {"pizza"}}}

	for _, tc := range []struct {
		env  Envelope
		want string
	}{
		{CloseEnvelope("sub1"), `["CLOSE","sub1"]`},
		{ClosedEnvelope{"sub1", "error: shutting down"}, `["CLOSED","sub1","error: shutting down"]`},
		{NoticeEnvelope("hi"), `["NOTICE","hi"]`},
		{EOSEEnvelope("sub1"), `["EOSE","sub1"]`},
		{OKEnvelope{"abc", false, "duplicate: already have it"}, `["OK","abc",false,"duplicate: already have it"]`},
		{AuthEnvelope{Challenge: "xyz"}, `["AUTH","xyz"]`},
		{CountEnvelope{SubscriptionID: "c", Count: &count}, `["COUNT","c",{"count":7}]`},
		{ReqEnvelope{"sub1", filter.Filters{limit}}, `["REQ","sub1",{"#h":["pizza"],"kinds":[9]}]`},
		{ReqEnvelope{SubscriptionID: "sub1"}, `["REQ","sub1"]`},
	} {
		b, err := Marshal(tc.env)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(b), tc.env.Label())
	}
}

func TestParseBothDirections(t *testing.T) {
	ev := signedNote(t)
	count := int64(3)

	for _, env := range []Envelope{
		EventEnvelope{Event: ev},
		EventEnvelope{SubscriptionID: "s", Event: ev},
		ReqEnvelope{"s", filter.Filters{{Authors: []string{ev.PubKey}}, {Kinds: []kinds.Kind{1}}}},
		CountEnvelope{SubscriptionID: "s", Filters: filter.Filters{{Kinds: []kinds.Kind{1}}}},
		CountEnvelope{SubscriptionID: "s", Count: &count},
		CloseEnvelope("s"),
		ClosedEnvelope{"s", "auth-required: log in"},
		NoticeEnvelope("note"),
		EOSEEnvelope("s"),
		OKEnvelope{ev.ID, true, ""},
		AuthEnvelope{Challenge: "c"},
		AuthEnvelope{Event: ev},
	} {
		b, err := Marshal(env)
		require.NoError(t, err)

		got, err := Parse(b)
		require.NoError(t, err, string(b))
		assert.Equal(t, env, got, string(b))
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`["PING","x"]`))
	assert.ErrorIs(t, err, ErrUnknownEnvelope)

	for _, bad := range []string{
		`{}`,
		`[]`,
		`[1,"x"]`,
		`["OK","abc"]`,
		`["OK","abc","yes"]`,
		`["EVENT"]`,
		`["EVENT","s",{"kind":"one"}]`,
		`["REQ",5]`,
		`["REQ","s",{"#hh":["x"]}]`,
		`["EVENT",5,{"kind":1}]`,
		`["OK","abc","yes","reason"]`,
		`["CLOSED","s"]`,
		`not json`,
	} {
		_, err := Parse([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedEnvelope, bad)
	}

	_, err = Parse([]byte(`["COUNT","c",{"#hh":["x"]}]`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)
}

func TestInteropWithGoNostr(t *testing.T) {
	ev := signedNote(t)

	b, err := Marshal(EventEnvelope{SubscriptionID: "s", Event: ev})
	require.NoError(t, err)
	parsed, ok := nostr.ParseMessage(b).(*nostr.EventEnvelope)
	require.True(t, ok)
	require.NotNil(t, parsed.SubscriptionID)
	assert.Equal(t, "s", *parsed.SubscriptionID)
	assert.Equal(t, ev.ID, parsed.Event.ID)
	assert.Equal(t, ev.ID, parsed.Event.GetID())

	b, err = Marshal(ReqEnvelope{"r", filter.Filters{{Kinds: []kinds.Kind{9}, Tags: filter.TagMap{"h": {"pizza"}}}}})
	require.NoError(t, err)
	req, ok := nostr.ParseMessage(b).(*nostr.ReqEnvelope)
	require.True(t, ok)
	assert.Equal(t, "r", req.SubscriptionID)
	require.Len(t, req.Filters, 1)
	assert.Equal(t, []int{9}, req.Filters[0].Kinds)
	assert.Equal(t, []string{"pizza"}, req.Filters[0].Tags["h"])

	ok2 := nostr.OKEnvelope{EventID: ev.ID, OK: false, Reason: "blocked: no"}
	raw, err := ok2.MarshalJSON()
	require.NoError(t, err)
	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, OKEnvelope{ev.ID, false, "blocked: no"}, got)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "duplicate", Prefix("duplicate: already have it"))
	assert.Equal(t, "", Prefix("stored"))
	assert.Equal(t, "", Prefix("a reason: with a colon"))
	assert.NotEmpty(t, NewSubscriptionID())
	assert.NotEqual(t, NewSubscriptionID(), NewSubscriptionID())
}
