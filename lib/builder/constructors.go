package builder

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// Profile is the JSON content of a kind 0 event.
type Profile struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Website     string `json:"website,omitempty"`
	NIP05       string `json:"nip05,omitempty"`
	LUD16       string `json:"lud16,omitempty"`
}

func TextNote(content string) Builder {
	return New(kinds.TextNote).Content(content)
}

// Reply is a text note answering parent, with root and reply markers.
func Reply(parent *events.Event, content string) (Builder, error) {
	b := TextNote(content)
	root := parent.ID
	for _, t := range parent.Tags {
		if ref, ok := tags.Parse(t).(tags.EventRef); ok && ref.Marker == tags.MarkerRoot {
			root = ref.ID
			break
		}
	}
	rootRef, err := tags.NewEventRef(root, "", tags.MarkerRoot, "")
	if err != nil {
		return Builder{}, err
	}
	b = b.Standard(rootRef)
	if root != parent.ID {
		replyRef, err := tags.NewEventRef(parent.ID, "", tags.MarkerReply, "")
		if err != nil {
			return Builder{}, err
		}
		b = b.Standard(replyRef)
	}
	author, err := tags.NewPubKeyRef(parent.PubKey, "", "")
	if err != nil {
		return Builder{}, err
	}
	return b.Standard(author), nil
}

func Metadata(p Profile) (Builder, error) {
	content, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(p)
	if err != nil {
		return Builder{}, err
	}
	return New(kinds.ProfileMetadata).Content(content), nil
}

// ContactList replaces the follow list.
func ContactList(contacts ...tags.PubKeyRef) Builder {
	b := New(kinds.ContactList).Dedup(DedupFirstValue)
	for _, c := range contacts {
		b = b.Standard(c)
	}
	return b
}

// Deletion asks relays to drop the referenced events.
func Deletion(reason string, ids ...string) (Builder, error) {
	if len(ids) == 0 {
		return Builder{}, missing("deletion needs at least one event id")
	}
	b := New(kinds.Deletion).Content(reason).Dedup(DedupFirstValue)
	for _, id := range ids {
		ref, err := tags.NewEventRef(id, "", "", "")
		if err != nil {
			return Builder{}, err
		}
		b = b.Standard(ref)
	}
	return b, nil
}

func Reaction(target *events.Event, content string) (Builder, error) {
	ref, err := tags.NewEventRef(target.ID, "", "", "")
	if err != nil {
		return Builder{}, err
	}
	author, err := tags.NewPubKeyRef(target.PubKey, "", "")
	if err != nil {
		return Builder{}, err
	}
	if content == "" {
		content = "+"
	}
	return New(kinds.Reaction).Content(content).Standard(ref, author), nil
}

// Repost embeds the reposted event as content.
func Repost(target *events.Event, relay string) (Builder, error) {
	ref, err := tags.NewEventRef(target.ID, relay, "", "")
	if err != nil {
		return Builder{}, err
	}
	author, err := tags.NewPubKeyRef(target.PubKey, "", "")
	if err != nil {
		return Builder{}, err
	}
	body, err := target.MarshalJSON()
	if err != nil {
		return Builder{}, err
	}
	return New(kinds.Repost).Content(string(body)).Standard(ref, author), nil
}

func RelayList(relays ...tags.Reference) Builder {
	b := New(kinds.RelayListMetadata).Dedup(DedupFirstValue)
	for _, r := range relays {
		b = b.Standard(r)
	}
	return b
}

// Article is an addressable long-form post keyed by identifier.
func Article(identifier, title, content string, hashtags ...string) (Builder, error) {
	b := New(kinds.LongFormArticle).Content(content).Standard(tags.NewIdentifier(identifier))
	if title != "" {
		f, err := tags.NewField("title", title)
		if err != nil {
			return Builder{}, err
		}
		b = b.Standard(f)
	}
	for _, h := range hashtags {
		t, err := tags.NewHashtag(h)
		if err != nil {
			return Builder{}, err
		}
		b = b.Standard(t)
	}
	return b, nil
}
