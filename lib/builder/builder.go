// Package builder assembles unsigned events from an immutable
// configuration value.
//
// Every method returns a new Builder; a partially configured Builder can be
// shared across goroutines and reused as a template.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/signing"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// ErrMissingRequiredTag is returned by constructors invoked without a
// mandatory reference.
var ErrMissingRequiredTag = errors.New("missing required tag")

func missing(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMissingRequiredTag, fmt.Sprintf(format, args...))
}

// Dedup selects how duplicate tags are collapsed at finalize time. The
// first occurrence is always the one kept.
type Dedup uint8

const (
	// DedupNone keeps every tag.
	DedupNone Dedup = iota
	// DedupExact drops tags identical in every field to an earlier one.
	DedupExact
	// DedupFirstValue drops tags sharing key and first value with an
	// earlier one.
	DedupFirstValue
)

func (d Dedup) String() string {
	switch d {
	case DedupExact:
		return "exact"
	case DedupFirstValue:
		return "first_value"
	default:
		return "none"
	}
}

// ParseDedup reads the names used in configuration.
func ParseDedup(s string) (Dedup, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return DedupNone, nil
	case "exact":
		return DedupExact, nil
	case "first_value", "first-value":
		return DedupFirstValue, nil
	default:
		return DedupNone, fmt.Errorf("unknown dedup policy %q", s)
	}
}

type Builder struct {
	kind      kinds.Kind
	tags      tags.Tags
	content   string
	createdAt *events.Timestamp
	dedup     Dedup
}

func New(kind kinds.Kind) Builder {
	return Builder{kind: kind}
}

func (b Builder) Kind(k kinds.Kind) Builder {
	b.kind = k
	return b
}

func (b Builder) Content(content string) Builder {
	b.content = content
	return b
}

// CreatedAt overrides the timestamp; without it Finalize uses the clock.
func (b Builder) CreatedAt(ts events.Timestamp) Builder {
	b.createdAt = &ts
	return b
}

func (b Builder) Dedup(policy Dedup) Builder {
	b.dedup = policy
	return b
}

// Tag appends raw tags. The fields are copied, so callers may reuse their
// slices.
func (b Builder) Tag(ts ...tags.Tag) Builder {
	next := make(tags.Tags, len(b.tags), len(b.tags)+len(ts))
	copy(next, b.tags)
	for _, t := range ts {
		next = append(next, t.Clone())
	}
	b.tags = next
	return b
}

// Standard appends standardized tags in their formatted form.
func (b Builder) Standard(ss ...tags.Standard) Builder {
	ts := make([]tags.Tag, len(ss))
	for i, s := range ss {
		ts[i] = s.Tag()
	}
	return b.Tag(ts...)
}

// Without drops every tag with the given key.
func (b Builder) Without(key string) Builder {
	next := make(tags.Tags, 0, len(b.tags))
	for _, t := range b.tags {
		if t.Key() != key {
			next = append(next, t)
		}
	}
	b.tags = next
	return b
}

// Tags returns a copy of the configured tags after deduplication.
func (b Builder) Tags() tags.Tags {
	return dedupe(b.tags, b.dedup).Clone()
}

func dedupe(ts tags.Tags, policy Dedup) tags.Tags {
	if policy == DedupNone || len(ts) < 2 {
		return ts
	}
	out := make(tags.Tags, 0, len(ts))
	seen := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		var key string
		switch policy {
		case DedupExact:
			key = strings.Join(t, "\x00")
		case DedupFirstValue:
			key = t.Key() + "\x00" + t.Value()
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Finalize fixes created_at and computes the id. The result is unsigned.
func (b Builder) Finalize(pubkey string) *events.Event {
	createdAt := events.Now()
	if b.createdAt != nil {
		createdAt = *b.createdAt
	}
	ev := &events.Event{
		PubKey:    pubkey,
		CreatedAt: createdAt,
		Kind:      b.kind,
		Tags:      b.Tags(),
		Content:   b.content,
	}
	if ev.Tags == nil {
		ev.Tags = tags.Tags{}
	}
	ev.SetID()
	return ev
}

// Sign finalizes for the signer's key and hands the event to it.
func (b Builder) Sign(ctx context.Context, signer signing.Signer) (*events.Event, error) {
	pubkey, err := signer.PublicKey(ctx)
	if err != nil {
		return nil, err
	}
	ev := b.Finalize(pubkey)
	if err := signing.Sign(ctx, signer, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
