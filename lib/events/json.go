package events

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// Wire JSON leaves '<', '>' and '&' unescaped so encoded content reads the
// same as the canonical form.
var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

type wireEvent struct {
	ID        string    `json:"id"`
	PubKey    string    `json:"pubkey"`
	CreatedAt Timestamp `json:"created_at"`
	Kind      int       `json:"kind"`
	Tags      tags.Tags `json:"tags"`
	Content   string    `json:"content"`
	Sig       string    `json:"sig"`
}

// MarshalJSON writes the fields in the fixed order id, pubkey, created_at,
// kind, tags, content, sig. Absent tags are written as [].
func (ev Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: ev.CreatedAt,
		Kind:      int(ev.Kind),
		Tags:      ev.Tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
	if w.Tags == nil {
		w.Tags = tags.Tags{}
	}
	return json.Marshal(w)
}

func (ev *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*ev = Event{
		ID:        w.ID,
		PubKey:    w.PubKey,
		CreatedAt: w.CreatedAt,
		Kind:      kinds.Kind(w.Kind),
		Tags:      w.Tags,
		Content:   w.Content,
		Sig:       w.Sig,
	}
	return nil
}

// Decode parses one wire event. It does not check the id or signature.
func Decode(data []byte) (*Event, error) {
	ev := new(Event)
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// String renders the wire JSON, for logs.
func (ev Event) String() string {
	b, err := ev.MarshalJSON()
	if err != nil {
		return "<invalid event>"
	}
	return string(b)
}
