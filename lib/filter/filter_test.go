package filter

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

func ev(id string, created events.Timestamp, kind kinds.Kind, ts ...tags.Tag) *events.Event {
	return &events.Event{
		ID:        id,
		PubKey:    "pk-" + id[:1],
		CreatedAt: created,
		Kind:      kind,
		Tags:      tags.Tags(ts),
	}
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	f := Filter{}
	for _, e := range []*events.Event{
		ev("a1", 0, 1),
		ev("b2", 1700000000, 9, tags.Tag{"h", "devs"}),
		ev("c3", 5, 30023, tags.Tag{"d", ""}),
	} {
		assert.True(t, f.Matches(e), e.ID)
	}
	assert.True(t, f.Empty())
}

func TestKindsDimension(t *testing.T) {
	f := Filter{Kinds: []kinds.Kind{1}}
	assert.False(t, f.Matches(ev("a1", 1, 9)))
	assert.True(t, f.Matches(ev("a1", 1, 1)))
}

func TestTimeBoundsInclusive(t *testing.T) {
	f := Filter{Since: Timestamp(10), Until: Timestamp(20)}
	assert.True(t, f.Matches(ev("a", 10, 1)))
	assert.True(t, f.Matches(ev("a", 20, 1)))
	assert.False(t, f.Matches(ev("a", 9, 1)))
	assert.False(t, f.Matches(ev("a", 21, 1)))
}

func TestTagConstraints(t *testing.T) {
	e := ev("a", 1, 9, tags.Tag{"h", "devs"}, tags.Tag{"p", "x"}, tags.Tag{"p", "y"}, tags.Tag{"t"})

	assert.True(t, Filter{Tags: TagMap{"h": {"devs"}}}.Matches(e))
	assert.True(t, Filter{Tags: TagMap{"p": {"nope", "y"}}}.Matches(e), "existential within a key")
	assert.False(t, Filter{Tags: TagMap{"h": {"devs"}, "p": {"z"}}}.Matches(e), "conjunctive across keys")
	assert.False(t, Filter{Tags: TagMap{"t": {""}}}.Matches(e), "a bare key has no first value")
	assert.True(t, Filter{Tags: TagMap{"e": nil}}.Matches(e), "nil values do not constrain")

	// only the first value field is tested
	e2 := ev("b", 1, 1, tags.Tag{"e", "one", "two"})
	assert.False(t, Filter{Tags: TagMap{"e": {"two"}}}.Matches(e2))
}

func TestMatcherIgnoresLimit(t *testing.T) {
	f := Filter{LimitZero: true}
	assert.True(t, f.Matches(ev("a", 1, 1)))
}

func TestSelectOrderAndLimit(t *testing.T) {
	evs := []*events.Event{
		ev("c", 10, 1),
		ev("a", 20, 1),
		ev("b", 20, 1),
		ev("d", 30, 9),
		ev("e", 5, 1),
	}

	got := ids(Collect(Select(evs, Filter{Kinds: []kinds.Kind{1}})))
	assert.Equal(t, []string{"a", "b", "c", "e"}, got)

	got = ids(Collect(Select(evs, Filter{Limit: 2})))
	assert.Equal(t, []string{"d", "a"}, got)

	assert.Empty(t, Collect(Select(evs, Filter{LimitZero: true})))

	// early stop
	n := 0
	for range Select(evs, Filter{}) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, "c", evs[0].ID, "input untouched")
}

func TestFiltersSelectLimitsIndependently(t *testing.T) {
	evs := []*events.Event{
		ev("a", 1, 1),
		ev("b", 2, 1),
		ev("c", 3, 7),
		ev("d", 4, 7),
	}
	fs := Filters{
		{Kinds: []kinds.Kind{1}, Limit: 1},
		{Kinds: []kinds.Kind{7}, Limit: 1},
		{IDs: []string{"b"}},
	}
	assert.Equal(t, []string{"d", "b"}, ids(Collect(fs.Select(evs))))
	assert.True(t, fs.MatchesAny(evs[0]))
	assert.False(t, Filters{{Kinds: []kinds.Kind{3}}}.MatchesAny(evs[0]))
}

func TestJSONRoundTrip(t *testing.T) {
	in := `{"authors":["aa"],"kinds":[1,9],"#h":["devs"],"#e":[],"since":10,"until":20,"limit":0}`
	f, err := Decode([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"aa"}, f.Authors)
	assert.Equal(t, []kinds.Kind{1, 9}, f.Kinds)
	assert.Equal(t, []string{"devs"}, f.Tags["h"])
	assert.Equal(t, events.Timestamp(10), *f.Since)
	assert.True(t, f.LimitZero)

	out, err := f.MarshalJSON()
	require.NoError(t, err)
	back, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, f, back)

	_, err = Decode([]byte(`{"#ab":["x"]}`))
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = Decode([]byte(`{"kinds":"one"}`))
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = Decode([]byte(`["not","an","object"]`))
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestValidateTagKeys(t *testing.T) {
	assert.NoError(t, Filter{Tags: TagMap{"h": {"devs"}, "E": {"x"}}}.Validate())
	assert.ErrorIs(t, Filter{Tags: TagMap{"hh": {"devs"}}}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{Tags: TagMap{"1": {"devs"}}}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{Limit: -1}.Validate(), ErrInvalidFilter)
}

func TestMultiLetterTagKeyNeverMatches(t *testing.T) {
	e := ev("a1", 1, 1, tags.Tag{"hh", "devs"}, tags.Tag{"h", "devs"})

	assert.False(t, Filter{Tags: TagMap{"hh": {"devs"}}}.Matches(e))
	assert.False(t, Filter{Tags: TagMap{"hh": {"devs"}, "h": {"devs"}}}.Matches(e))
	assert.True(t, Filter{Tags: TagMap{"h": {"devs"}}}.Matches(e))
	assert.True(t, Filter{Tags: TagMap{"hh": nil}}.Matches(e))
}

// Matches agrees with go-nostr's matcher on random inputs.
func TestMatchesAgreesWithGoNostr(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pick := func(opts []string) string { return opts[r.Intn(len(opts))] }
	idPool := []string{"a1", "b2", "c3", "d4"}
	pkPool := []string{"p1", "p2", "p3"}
	values := []string{"x", "y", "z"}

	for i := 0; i < 500; i++ {
		e := &events.Event{
			ID:        pick(idPool),
			PubKey:    pick(pkPool),
			CreatedAt: events.Timestamp(r.Intn(20)),
			Kind:      kinds.Kind(r.Intn(3)),
		}
		for j := r.Intn(4); j > 0; j-- {
			e.Tags = append(e.Tags, tags.Tag{pick([]string{"e", "p", "t"}), pick(values)})
		}

		var f Filter
		if r.Intn(2) == 0 {
			f.IDs = []string{pick(idPool), pick(idPool)}
		}
		if r.Intn(2) == 0 {
			f.Authors = []string{pick(pkPool)}
		}
		if r.Intn(2) == 0 {
			f.Kinds = []kinds.Kind{kinds.Kind(r.Intn(3))}
		}
		if r.Intn(3) == 0 {
			f.Since = Timestamp(events.Timestamp(r.Intn(20)))
		}
		if r.Intn(3) == 0 {
			f.Until = Timestamp(events.Timestamp(r.Intn(20)))
		}
		if r.Intn(2) == 0 {
			f = f.WithTag(pick([]string{"e", "p", "t"}), pick(values), pick(values))
		}

		nf := ToNostr(f)
		assert.Equal(t, nf.Matches(events.ToNostr(e)), f.Matches(e), fmt.Sprintf("filter %s event %s", f, e))
		assert.Equal(t, f, FromNostr(nf))
	}
}

func ids(evs []*events.Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.ID
	}
	return out
}
