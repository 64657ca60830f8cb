package tags

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hexID  = strings.Repeat("ab", 32)
	hexKey = strings.Repeat("01", 32)
)

func TestParseRoundTrip(t *testing.T) {
	cases := []Tag{
		{"e", hexID},
		{"e", hexID, ""},
		{"e", hexID, "wss://relay.example.com"},
		{"e", hexID, "", "reply"},
		{"e", hexID, "wss://relay.example.com", "root", hexKey},
		{"e", hexID, "", "", ""},
		{"p", hexKey},
		{"p", hexKey, "", "alice"},
		{"a", "30023:" + hexKey + ":my:article"},
		{"a", "30023:" + hexKey + ":", "wss://r.example.com"},
		{"d", ""},
		{"d", "slug"},
		{"h", "mygroup"},
		{"h", "_", "wss://relay.example.com"},
		{"previous", "abcdef01", "12345678"},
		{"code", "xyz"},
		{"role", "moderator"},
		{"role", "moderator", "can delete"},
		{"relay", "ws://localhost:7777"},
		{"r", "https://example.com", "read"},
		{"t", "nostr"},
		{"expiration", "1700000000"},
		{"name", ""},
		{"about", "hello"},
		{"client", "x", "y"},
		{"e", "not-hex"},
		{"expiration", "007"},
		{"x"},
	}
	for _, tag := range cases {
		got := Parse(tag).Tag()
		assert.Equal(t, tag, got, "round trip of %v", tag)
	}
}

func TestParseShapes(t *testing.T) {
	assert.Equal(t, ShapeEventRef, Parse(Tag{"e", hexID}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"e", hexID, "https://no"}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"e", hexID, "", "bogus"}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"e", strings.ToUpper(hexID)}).Shape())
	assert.Equal(t, ShapePubKeyRef, Parse(Tag{"p", hexKey}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"a", "x:" + hexKey + ":d"}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"a", "70000:" + hexKey + ":d"}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"h", "bad group"}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"previous", "abc"}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{"expiration", "-1"}).Shape())
	assert.Equal(t, ShapeField, Parse(Tag{"title", "t"}).Shape())
	assert.Equal(t, ShapeRaw, Parse(Tag{}).Shape())

	c, ok := Parse(Tag{"a", "30023:" + hexKey + ":a:b"}).(Coordinate)
	require.True(t, ok)
	assert.Equal(t, 30023, c.Kind)
	assert.Equal(t, "a:b", c.Identifier)
}

func TestRecognize(t *testing.T) {
	_, ok := Recognize(Tag{"client", "x"})
	assert.False(t, ok)
	s, ok := Recognize(Tag{"t", "go"})
	require.True(t, ok)
	assert.Equal(t, Hashtag{Value: "go"}, s)
}

func TestLetterIndexing(t *testing.T) {
	ts := Tags{
		{"e", hexID},
		{"E", "upper"},
		{"t", "a"},
		{"t", "b", "extra"},
		{"tt", "nope"},
		{"x"},
		{"1", "digit"},
	}
	idx := ts.Index()
	assert.Equal(t, []string{hexID}, idx['e'])
	assert.Equal(t, []string{"upper"}, idx['E'])
	assert.Equal(t, []string{"a", "b"}, idx['t'])
	assert.NotContains(t, idx, byte('x'))
	assert.NotContains(t, idx, byte('1'))
	assert.Len(t, idx, 3)

	assert.False(t, Tag{"tt", "v"}.Indexed())
	assert.False(t, Tag{"t"}.Indexed())
	assert.True(t, Tag{"Z", "v"}.Indexed())
}

func TestTagsLookup(t *testing.T) {
	ts := Tags{{"d", "first"}, {"p", hexKey}, {"d", "second"}}
	assert.Equal(t, "first", ts.Identifier())
	assert.Equal(t, []string{"first", "second"}, ts.Values("d"))
	assert.True(t, ts.ContainsValue("p", hexKey))
	assert.Len(t, ts.FindAll("d"), 2)
	assert.Equal(t, "", Tags{}.Identifier())

	cl := ts.Clone()
	cl[0][1] = "changed"
	assert.Equal(t, "first", ts[0][1])
}

func TestConstructors(t *testing.T) {
	ref, err := NewEventRef(hexID, "", MarkerReply, "")
	require.NoError(t, err)
	assert.Equal(t, Tag{"e", hexID, "", "reply"}, ref.Tag())

	_, err = NewEventRef("zz", "", "", "")
	assert.True(t, errors.Is(err, ErrMalformedTag))

	_, err = NewPubKeyRef(hexKey, "http://not-a-relay", "")
	assert.ErrorIs(t, err, ErrMalformedTag)

	c, err := NewCoordinate(30023, hexKey, "post", "")
	require.NoError(t, err)
	assert.Equal(t, Tag{"a", "30023:" + hexKey + ":post"}, c.Tag())

	_, err = NewCoordinate(-1, hexKey, "post", "")
	assert.ErrorIs(t, err, ErrMalformedTag)

	prev, err := NewPrevious(hexID, "12345678")
	require.NoError(t, err)
	assert.Equal(t, Tag{"previous", "abababab", "12345678"}, prev.Tag())
	assert.True(t, prev.Matches(hexID))
	assert.False(t, prev.Matches(hexKey))

	_, err = NewPrevious()
	assert.ErrorIs(t, err, ErrMalformedTag)

	_, err = NewGroupRef("has'quote", "")
	assert.ErrorIs(t, err, ErrMalformedTag)

	_, err = NewField("color", "red")
	assert.ErrorIs(t, err, ErrMalformedTag)

	_, err = NewExpiration(-5)
	assert.ErrorIs(t, err, ErrMalformedTag)

	_, err = NewReference("https://x", "both")
	assert.ErrorIs(t, err, ErrMalformedTag)

	r, err := NewRelay("wss://relay.example.com")
	require.NoError(t, err)
	assert.Equal(t, Tag{"relay", "wss://relay.example.com"}, r.Tag())
}

func TestFormatAll(t *testing.T) {
	ts := Tags{{"p", hexKey}, {"client", "x"}, {"t", "go"}}
	assert.Equal(t, ts, FormatAll(ParseAll(ts)))
}
