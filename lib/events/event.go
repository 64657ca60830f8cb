// Package events holds the signed event record, its canonical encoding and
// the identity and signature checks built on it.
package events

import (
	"time"

	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// Timestamp is seconds since the unix epoch, as supplied by the author.
type Timestamp int64

func Now() Timestamp { return Timestamp(time.Now().Unix()) }

func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0) }

// Event is immutable once identified: changing any of PubKey, CreatedAt,
// Kind, Tags or Content invalidates ID.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt Timestamp  `json:"created_at"`
	Kind      kinds.Kind `json:"kind"`
	Tags      tags.Tags  `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Class is shorthand for ev.Kind.Class().
func (ev *Event) Class() kinds.StorageClass {
	return ev.Kind.Class()
}

// Identifier is the value of the first "d" tag, "" when absent.
func (ev *Event) Identifier() string {
	return ev.Tags.Identifier()
}

// Clone returns a deep copy.
func (ev *Event) Clone() *Event {
	cp := *ev
	cp.Tags = ev.Tags.Clone()
	return &cp
}

// Less orders newest first, ties broken by ascending id. This is the order
// of every result sequence.
func Less(a, b *Event) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID < b.ID
}
