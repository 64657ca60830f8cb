package events

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// ToNostr converts to the go-nostr representation used by relay clients.
func ToNostr(ev *Event) *nostr.Event {
	var ts nostr.Tags
	if ev.Tags != nil {
		ts = make(nostr.Tags, len(ev.Tags))
		for i, t := range ev.Tags {
			ts[i] = nostr.Tag(t.Clone())
		}
	}
	return &nostr.Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: nostr.Timestamp(ev.CreatedAt),
		Kind:      int(ev.Kind),
		Tags:      ts,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}

// FromNostr is the inverse of ToNostr.
func FromNostr(ev *nostr.Event) *Event {
	var ts tags.Tags
	if ev.Tags != nil {
		ts = make(tags.Tags, len(ev.Tags))
		for i, t := range ev.Tags {
			ts[i] = tags.Tag(t).Clone()
		}
	}
	return &Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: Timestamp(ev.CreatedAt),
		Kind:      kinds.Kind(ev.Kind),
		Tags:      ts,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}
