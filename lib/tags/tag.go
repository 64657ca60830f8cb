// Package tags implements the three-layer tag model: raw token lists,
// single-letter indexed tags and typed standardized shapes.
package tags

import (
	"errors"
	"fmt"
)

var ErrMalformedTag = errors.New("malformed tag")

// Tag is an ordered list of fields; field 0 is the key.
type Tag []string

// Tags keeps the order in which tags were attached.
type Tags []Tag

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedTag, fmt.Sprintf(format, args...))
}

// Key returns field 0, or "" for an empty tag.
func (t Tag) Key() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns field 1, the field that filter constraints test.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Field returns field i or "" when absent.
func (t Tag) Field(i int) string {
	if i < 0 || i >= len(t) {
		return ""
	}
	return t[i]
}

// Letter returns the single-letter index key. Only keys of exactly one
// ASCII letter are indexed.
func (t Tag) Letter() (byte, bool) {
	if len(t) == 0 || len(t[0]) != 1 {
		return 0, false
	}
	c := t[0][0]
	if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return c, true
	}
	return 0, false
}

// Indexed reports whether the tag participates in filter indexing.
func (t Tag) Indexed() bool {
	_, ok := t.Letter()
	return ok && len(t) >= 2
}

func (t Tag) Clone() Tag {
	if t == nil {
		return nil
	}
	out := make(Tag, len(t))
	copy(out, t)
	return out
}

func (t Tag) Equal(o Tag) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the tag starts with the given fields.
func (t Tag) HasPrefix(prefix Tag) bool {
	if len(prefix) > len(t) {
		return false
	}
	for i := range prefix {
		if t[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Clone deep-copies the tag list.
func (ts Tags) Clone() Tags {
	if ts == nil {
		return nil
	}
	out := make(Tags, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// Find returns the first tag with the given key.
func (ts Tags) Find(key string) (Tag, bool) {
	for _, t := range ts {
		if t.Key() == key {
			return t, true
		}
	}
	return nil, false
}

// FindAll returns every tag with the given key, in order.
func (ts Tags) FindAll(key string) Tags {
	var out Tags
	for _, t := range ts {
		if t.Key() == key {
			out = append(out, t)
		}
	}
	return out
}

// Value returns the first value of the first tag with the given key.
func (ts Tags) Value(key string) string {
	t, _ := ts.Find(key)
	return t.Value()
}

// Values returns the first value of every tag with the given key.
func (ts Tags) Values(key string) []string {
	var out []string
	for _, t := range ts {
		if t.Key() == key && len(t) >= 2 {
			out = append(out, t[1])
		}
	}
	return out
}

// ContainsValue reports whether some tag keyed by key has value v.
func (ts Tags) ContainsValue(key, v string) bool {
	for _, t := range ts {
		if len(t) >= 2 && t[0] == key && t[1] == v {
			return true
		}
	}
	return false
}

// Index groups the first values of single-letter tags by letter.
func (ts Tags) Index() map[byte][]string {
	out := make(map[byte][]string)
	for _, t := range ts {
		if l, ok := t.Letter(); ok && len(t) >= 2 {
			out[l] = append(out[l], t[1])
		}
	}
	return out
}

// Identifier returns the addressable identifier: the value of the first
// "d" tag, or "" when absent.
func (ts Tags) Identifier() string {
	return ts.Value("d")
}
