package groups

import (
	"maps"
	"slices"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
)

// Lifecycle is the existence state of a group.
type Lifecycle uint8

const (
	Nonexistent Lifecycle = iota
	Active
	Deleted
)

func (l Lifecycle) String() string {
	switch l {
	case Active:
		return "active"
	case Deleted:
		return "deleted"
	default:
		return "nonexistent"
	}
}

// Membership is the advisory standing of one pubkey in a group.
type Membership uint8

const (
	NonMember Membership = iota
	Pending
	Member
)

func (m Membership) String() string {
	switch m {
	case Pending:
		return "pending"
	case Member:
		return "member"
	default:
		return "non-member"
	}
}

// Component names one part of a group's state that a snapshot seeds.
type Component uint8

const (
	MetadataComponent Component = iota
	AdminsComponent
	MembersComponent
	RolesComponent
)

// State is the folded view of one group.
type State struct {
	Group     GroupID
	Lifecycle Lifecycle
	Metadata  Metadata
	// Admins maps pubkey to its role names.
	Admins  map[string][]string
	Members map[string]struct{}
	Pending map[string]struct{}
	Roles   []Role
	// Retracted holds ids removed by delete-event actions.
	Retracted map[string]struct{}
	Invites   map[string]struct{}
	// Seeded records the created_at of the snapshot behind each component.
	Seeded map[Component]events.Timestamp
	// UpdatedAt is the created_at of the newest event that changed state.
	UpdatedAt events.Timestamp
}

func NewState(g GroupID) *State {
	return &State{
		Group:     g,
		Admins:    make(map[string][]string),
		Members:   make(map[string]struct{}),
		Pending:   make(map[string]struct{}),
		Retracted: make(map[string]struct{}),
		Invites:   make(map[string]struct{}),
		Seeded:    make(map[Component]events.Timestamp),
	}
}

func (s *State) Membership(pubkey string) Membership {
	if _, ok := s.Members[pubkey]; ok {
		return Member
	}
	if _, ok := s.Pending[pubkey]; ok {
		return Pending
	}
	return NonMember
}

func (s *State) IsAdmin(pubkey string) bool {
	_, ok := s.Admins[pubkey]
	return ok
}

func (s *State) IsRetracted(id string) bool {
	_, ok := s.Retracted[id]
	return ok
}

// MemberList returns member pubkeys in sorted order.
func (s *State) MemberList() []string {
	return slices.Sorted(maps.Keys(s.Members))
}

// AdminList returns admins sorted by pubkey.
func (s *State) AdminList() []Admin {
	out := make([]Admin, 0, len(s.Admins))
	for _, pk := range slices.Sorted(maps.Keys(s.Admins)) {
		out = append(out, Admin{PubKey: pk, Roles: slices.Clone(s.Admins[pk])})
	}
	return out
}

func (s *State) Clone() *State {
	c := *s
	c.Admins = make(map[string][]string, len(s.Admins))
	for pk, roles := range s.Admins {
		c.Admins[pk] = slices.Clone(roles)
	}
	c.Members = maps.Clone(s.Members)
	c.Pending = maps.Clone(s.Pending)
	c.Retracted = maps.Clone(s.Retracted)
	c.Invites = maps.Clone(s.Invites)
	c.Seeded = maps.Clone(s.Seeded)
	c.Roles = slices.Clone(s.Roles)
	return &c
}

// after reports whether an event at ts postdates the snapshot of c.
func (s *State) after(c Component, ts events.Timestamp) bool {
	seeded, ok := s.Seeded[c]
	return !ok || ts > seeded
}

func (s *State) touch(ts events.Timestamp) {
	if ts > s.UpdatedAt {
		s.UpdatedAt = ts
	}
}
