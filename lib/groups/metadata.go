package groups

import (
	"fmt"
	"strings"

	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

type Privacy uint8

const (
	Public Privacy = iota
	Private
)

func (p Privacy) String() string {
	if p == Private {
		return "private"
	}
	return "public"
}

func ParsePrivacy(s string) (Privacy, error) {
	switch strings.ToLower(s) {
	case "public":
		return Public, nil
	case "private":
		return Private, nil
	}
	return Public, fmt.Errorf("%w: expected public or private, got %q", ErrInvalidPrivacy, s)
}

type AccessModel uint8

const (
	Open AccessModel = iota
	Closed
)

func (a AccessModel) String() string {
	if a == Closed {
		return "closed"
	}
	return "open"
}

func ParseAccessModel(s string) (AccessModel, error) {
	switch strings.ToLower(s) {
	case "open":
		return Open, nil
	case "closed":
		return Closed, nil
	}
	return Open, fmt.Errorf("%w: expected open or closed, got %q", ErrInvalidAccessModel, s)
}

// Metadata is the full descriptive state of a group.
type Metadata struct {
	Name    string      `json:"name,omitempty"`
	About   string      `json:"about,omitempty"`
	Picture string      `json:"picture,omitempty"`
	Privacy Privacy     `json:"privacy"`
	Access  AccessModel `json:"access"`
}

// Patch is a partial metadata update; nil fields are left alone.
type Patch struct {
	Name    *string
	About   *string
	Picture *string
	Privacy *Privacy
	Access  *AccessModel
}

func (m Metadata) Apply(p Patch) Metadata {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.About != nil {
		m.About = *p.About
	}
	if p.Picture != nil {
		m.Picture = *p.Picture
	}
	if p.Privacy != nil {
		m.Privacy = *p.Privacy
	}
	if p.Access != nil {
		m.Access = *p.Access
	}
	return m
}

// Patch sets every field, so applying it reproduces m exactly.
func (m Metadata) Patch() Patch {
	return Patch{Name: &m.Name, About: &m.About, Picture: &m.Picture, Privacy: &m.Privacy, Access: &m.Access}
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.About == nil && p.Picture == nil && p.Privacy == nil && p.Access == nil
}

// Tags encodes the set fields. A set text field is written even when empty,
// which clears it on apply.
func (p Patch) Tags() tags.Tags {
	var out tags.Tags
	if p.Name != nil {
		out = append(out, tags.Tag{"name", *p.Name})
	}
	if p.About != nil {
		out = append(out, tags.Tag{"about", *p.About})
	}
	if p.Picture != nil {
		out = append(out, tags.Tag{"picture", *p.Picture})
	}
	if p.Privacy != nil {
		out = append(out, tags.Tag{"privacy", p.Privacy.String()})
	}
	if p.Access != nil {
		out = append(out, tags.Tag{"closed", p.Access.String()})
	}
	return out
}

// Tags encodes m as a full description. Empty text fields are omitted.
func (m Metadata) Tags() tags.Tags {
	var p Patch
	if m.Name != "" {
		p.Name = &m.Name
	}
	if m.About != "" {
		p.About = &m.About
	}
	if m.Picture != "" {
		p.Picture = &m.Picture
	}
	p.Privacy, p.Access = &m.Privacy, &m.Access
	return p.Tags()
}

// ParsePatch reads metadata tags. Besides the valued forms it accepts the
// bare flags ["public"], ["private"], ["open"] and ["closed"], and the
// aliases "description" and "image".
func ParsePatch(ts tags.Tags) (Patch, error) {
	var p Patch
	for _, t := range ts {
		switch {
		case len(t) == 1:
			switch t[0] {
			case "public", "private":
				v, _ := ParsePrivacy(t[0])
				p.Privacy = &v
			case "open", "closed":
				v, _ := ParseAccessModel(t[0])
				p.Access = &v
			}
		case len(t) >= 2:
			v := t[1]
			switch t[0] {
			case "name":
				p.Name = &v
			case "about", "description":
				p.About = &v
			case "picture", "image":
				p.Picture = &v
			case "privacy":
				priv, err := ParsePrivacy(v)
				if err != nil {
					return Patch{}, err
				}
				p.Privacy = &priv
			case "closed":
				access, err := ParseAccessModel(v)
				if err != nil {
					return Patch{}, err
				}
				p.Access = &access
			}
		}
	}
	return p, nil
}
