// Package filter implements the relay query predicate and the ordered,
// limited selection of events that satisfy it.
package filter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

var ErrInvalidFilter = errors.New("invalid filter")

func errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}

// TagMap maps a single-letter tag key ("e", not "#e") to the accepted first
// values for that key. A nil value list imposes no constraint.
type TagMap map[string][]string

// Filter is a conjunction over every non-empty dimension. Limit bounds a
// result sequence and is never consulted by Matches; LimitZero records an
// explicit "limit":0.
type Filter struct {
	IDs       []string
	Authors   []string
	Kinds     []kinds.Kind
	Tags      TagMap
	Since     *events.Timestamp
	Until     *events.Timestamp
	Limit     int
	LimitZero bool
}

type Filters []Filter

// Matches reports whether ev satisfies every dimension of f. An empty
// filter matches every event.
func (f Filter) Matches(ev *events.Event) bool {
	if ev == nil {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !slices.Contains(f.Authors, ev.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, ev.Kind) {
		return false
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	for key, values := range f.Tags {
		if len(values) == 0 {
			continue
		}
		// only single-letter tags are indexed, so any other key is unsatisfiable
		if !singleLetter(key) || !containsAny(ev.Tags, key, values) {
			return false
		}
	}
	return true
}

func singleLetter(key string) bool {
	_, ok := tags.Tag{key}.Letter()
	return ok
}

func containsAny(ts tags.Tags, key string, values []string) bool {
	for _, t := range ts {
		if len(t) >= 2 && t[0] == key && slices.Contains(values, t[1]) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether ev satisfies at least one filter.
func (fs Filters) MatchesAny(ev *events.Event) bool {
	for i := range fs {
		if fs[i].Matches(ev) {
			return true
		}
	}
	return false
}

// MaxResults is the number of events a result sequence may hold, or -1
// when unbounded.
func (f Filter) MaxResults() int {
	switch {
	case f.LimitZero:
		return 0
	case f.Limit > 0:
		return f.Limit
	default:
		return -1
	}
}

// Empty reports whether the filter constrains nothing.
func (f Filter) Empty() bool {
	return len(f.IDs) == 0 && len(f.Authors) == 0 && len(f.Kinds) == 0 &&
		len(f.Tags) == 0 && f.Since == nil && f.Until == nil
}

// WithTag returns a copy of f with the values added to the key constraint.
func (f Filter) WithTag(key string, values ...string) Filter {
	out := f.Clone()
	if out.Tags == nil {
		out.Tags = TagMap{}
	}
	out.Tags[key] = append(out.Tags[key], values...)
	return out
}

func (f Filter) Clone() Filter {
	out := f
	out.IDs = slices.Clone(f.IDs)
	out.Authors = slices.Clone(f.Authors)
	out.Kinds = slices.Clone(f.Kinds)
	if f.Since != nil {
		s := *f.Since
		out.Since = &s
	}
	if f.Until != nil {
		u := *f.Until
		out.Until = &u
	}
	if f.Tags != nil {
		out.Tags = make(TagMap, len(f.Tags))
		for k, v := range f.Tags {
			out.Tags[k] = slices.Clone(v)
		}
	}
	return out
}

// Validate checks that every tag key is a single ASCII letter.
func (f Filter) Validate() error {
	for key := range f.Tags {
		if !singleLetter(key) {
			return errorf("tag key %q is not a single letter", key)
		}
	}
	if f.Limit < 0 {
		return errorf("negative limit %d", f.Limit)
	}
	return nil
}

func Timestamp(t events.Timestamp) *events.Timestamp { return &t }
