package filter

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
)

// ToNostr converts to the go-nostr filter type.
func ToNostr(f Filter) nostr.Filter {
	out := nostr.Filter{
		IDs:       f.IDs,
		Authors:   f.Authors,
		Limit:     f.Limit,
		LimitZero: f.LimitZero,
	}
	if f.Kinds != nil {
		out.Kinds = make([]int, len(f.Kinds))
		for i, k := range f.Kinds {
			out.Kinds[i] = int(k)
		}
	}
	if f.Tags != nil {
		out.Tags = make(nostr.TagMap, len(f.Tags))
		for k, v := range f.Tags {
			out.Tags[k] = v
		}
	}
	if f.Since != nil {
		ts := nostr.Timestamp(*f.Since)
		out.Since = &ts
	}
	if f.Until != nil {
		ts := nostr.Timestamp(*f.Until)
		out.Until = &ts
	}
	return out
}

// FromNostr is the inverse of ToNostr.
func FromNostr(nf nostr.Filter) Filter {
	out := Filter{
		IDs:       nf.IDs,
		Authors:   nf.Authors,
		Limit:     nf.Limit,
		LimitZero: nf.LimitZero,
	}
	if nf.Kinds != nil {
		out.Kinds = make([]kinds.Kind, len(nf.Kinds))
		for i, k := range nf.Kinds {
			out.Kinds[i] = kinds.Kind(k)
		}
	}
	if nf.Tags != nil {
		out.Tags = make(TagMap, len(nf.Tags))
		for k, v := range nf.Tags {
			out.Tags[k] = v
		}
	}
	if nf.Since != nil {
		ts := events.Timestamp(*nf.Since)
		out.Since = &ts
	}
	if nf.Until != nil {
		ts := events.Timestamp(*nf.Until)
		out.Until = &ts
	}
	return out
}
