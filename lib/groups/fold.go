package groups

import (
	"errors"
	"fmt"
	"slices"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
	"github.com/HORNET-Storage/hornet-groups/lib/retention"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// ErrUnauthorized is what the stock authorizers return.
var ErrUnauthorized = errors.New("signer is not allowed to moderate this group")

// Authorizer decides whether a moderation or snapshot event is honoured.
// state is the fold result so far; it must not be modified.
type Authorizer interface {
	Authorize(state *State, ev *events.Event) error
}

type AuthorizerFunc func(state *State, ev *events.Event) error

func (f AuthorizerFunc) Authorize(state *State, ev *events.Event) error { return f(state, ev) }

// AllowAll honours every event. It is the default: authority belongs to the
// relay that accepted the events.
var AllowAll Authorizer = AuthorizerFunc(func(*State, *events.Event) error { return nil })

// RequireAdmin honours snapshots signed by one of relayKeys, and moderation
// events signed by a relay key or a current admin. A create-group event is
// honoured from anyone while the group does not exist yet, and its signer
// becomes the first admin.
func RequireAdmin(relayKeys ...string) Authorizer {
	return AuthorizerFunc(func(state *State, ev *events.Event) error {
		if slices.Contains(relayKeys, ev.PubKey) {
			return nil
		}
		switch {
		case kinds.IsGroupMetadata(ev.Kind):
		case ev.Kind == kinds.GroupCreate && state.Lifecycle == Nonexistent:
			return nil
		case state.IsAdmin(ev.PubKey):
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, ev.PubKey)
	})
}

// Skip records an event the fold did not apply.
type Skip struct {
	ID     string     `json:"id"`
	Kind   kinds.Kind `json:"kind"`
	Reason string     `json:"reason"`
}

type folder struct {
	auth   Authorizer
	verify bool
	claim  bool
}

type Option func(*folder)

func WithAuthorizer(a Authorizer) Option {
	return func(f *folder) { f.auth = a }
}

// WithVerification drops events whose id or signature does not check out.
func WithVerification() Option {
	return func(f *folder) { f.verify = true }
}

// WithCreatorAsAdmin makes the signer of an applied create-group event an
// admin with role "admin", as relays conventionally do.
func WithCreatorAsAdmin() Option {
	return func(f *folder) { f.claim = true }
}

// Fold derives the state of g from evs, which may arrive in any order and
// may include events of other groups. The newest snapshot of each component
// seeds the state; moderation and user events dated after the snapshot of
// the component they touch are then applied in ascending created_at order,
// ties by ascending id.
func Fold(g GroupID, evs []*events.Event, opts ...Option) (*State, []Skip) {
	f := folder{auth: AllowAll}
	for _, opt := range opts {
		opt(&f)
	}

	state := NewState(g)
	var skips []Skip
	skip := func(ev *events.Event, format string, args ...interface{}) {
		skips = append(skips, Skip{ID: ev.ID, Kind: ev.Kind, Reason: fmt.Sprintf(format, args...)})
	}

	snapshots := make(map[kinds.Kind]*events.Event)
	var deltas []*events.Event
	for _, ev := range evs {
		if !kinds.IsGroupEvent(ev.Kind) {
			continue
		}
		if local, ok := Local(ev); !ok || local != g.Local {
			continue
		}
		if f.verify {
			if err := events.Verify(ev); err != nil {
				skip(ev, "%v", err)
				continue
			}
		}
		if kinds.IsGroupMetadata(ev.Kind) {
			if err := f.auth.Authorize(state, ev); err != nil {
				skip(ev, "%v", err)
				continue
			}
			if cur, ok := snapshots[ev.Kind]; !ok || retention.Newer(ev, cur) {
				snapshots[ev.Kind] = ev
			}
			continue
		}
		deltas = append(deltas, ev)
	}

	for _, kind := range snapshotKinds {
		if ev, ok := snapshots[kind]; ok {
			if err := state.seed(ev); err != nil {
				skip(ev, "%v", err)
			}
		}
	}

	slices.SortFunc(deltas, func(a, b *events.Event) int {
		if a.CreatedAt != b.CreatedAt {
			if a.CreatedAt < b.CreatedAt {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	for _, ev := range deltas {
		if ev.Kind == kinds.GroupChatMessage {
			continue
		}
		if state.Lifecycle == Deleted {
			skip(ev, "group deleted")
			continue
		}
		if kinds.IsGroupModeration(ev.Kind) {
			if err := f.auth.Authorize(state, ev); err != nil {
				skip(ev, "%v", err)
				continue
			}
		}
		if err := f.apply(state, ev); err != nil {
			skip(ev, "%v", err)
		}
	}

	if len(skips) > 0 {
		logging.Debug("Skipped group events during fold", logging.Fields{"group": g.String(), "skipped": len(skips)})
	}
	return state, skips
}

// seed replaces one component with the content of a snapshot.
func (s *State) seed(ev *events.Event) error {
	switch ev.Kind {
	case kinds.GroupMetadata:
		p, err := ParsePatch(ev.Tags)
		if err != nil {
			return err
		}
		s.Metadata = Metadata{}.Apply(p)
		s.Seeded[MetadataComponent] = ev.CreatedAt
	case kinds.GroupAdmins:
		clear(s.Admins)
		for _, a := range ParseAdmins(ev.Tags) {
			s.Admins[a.PubKey] = a.Roles
		}
		s.Seeded[AdminsComponent] = ev.CreatedAt
	case kinds.GroupMembers:
		clear(s.Members)
		for _, m := range ParseMembers(ev.Tags) {
			s.Members[m] = struct{}{}
		}
		s.Seeded[MembersComponent] = ev.CreatedAt
	case kinds.GroupRoles:
		s.Roles = ParseRoles(ev.Tags)
		s.Seeded[RolesComponent] = ev.CreatedAt
	}
	if s.Lifecycle == Nonexistent {
		s.Lifecycle = Active
	}
	s.touch(ev.CreatedAt)
	return nil
}

// target reads the member pubkey and roles of a put-user or remove-user.
func target(ev *events.Event) (string, []string, error) {
	t, ok := ev.Tags.Find("p")
	if !ok {
		return "", nil, fmt.Errorf("%w: p", ErrMissingRequiredTag)
	}
	if !tags.IsID(t.Value()) {
		return "", nil, fmt.Errorf("%w: public key %q", tags.ErrMalformedTag, t.Value())
	}
	var roles []string
	if len(t) > 2 {
		roles = t[2:]
	}
	return t.Value(), roles, nil
}

func (f folder) apply(s *State, ev *events.Event) error {
	ts := ev.CreatedAt
	switch ev.Kind {
	case kinds.GroupCreate:
		if s.Lifecycle == Active {
			return errors.New("group already exists")
		}
		s.Lifecycle = Active
		if p, err := ParsePatch(ev.Tags); err == nil && s.after(MetadataComponent, ts) {
			s.Metadata = s.Metadata.Apply(p)
		}
		if f.claim && s.after(AdminsComponent, ts) {
			s.Admins[ev.PubKey] = []string{"admin"}
		}

	case kinds.GroupDelete:
		s.Lifecycle = Deleted

	case kinds.GroupPutUser:
		pk, roles, err := target(ev)
		if err != nil {
			return err
		}
		applied := false
		if s.after(MembersComponent, ts) {
			s.Members[pk] = struct{}{}
			delete(s.Pending, pk)
			applied = true
		}
		if s.after(AdminsComponent, ts) {
			if admin := AdminRoles(roles); len(admin) > 0 {
				s.Admins[pk] = admin
			} else {
				delete(s.Admins, pk)
			}
			applied = true
		}
		if !applied {
			return errStale
		}

	case kinds.GroupRemoveUser:
		pk, _, err := target(ev)
		if err != nil {
			return err
		}
		applied := false
		if s.after(MembersComponent, ts) {
			delete(s.Members, pk)
			delete(s.Pending, pk)
			applied = true
		}
		if s.after(AdminsComponent, ts) {
			delete(s.Admins, pk)
			applied = true
		}
		if !applied {
			return errStale
		}

	case kinds.GroupEditMetadata:
		p, err := ParsePatch(ev.Tags)
		if err != nil {
			return err
		}
		if !s.after(MetadataComponent, ts) {
			return errStale
		}
		s.Metadata = s.Metadata.Apply(p)

	case kinds.GroupDeleteEvent:
		refs := ev.Tags.Values("e")
		if len(refs) == 0 {
			return fmt.Errorf("%w: e", ErrMissingRequiredTag)
		}
		for _, id := range refs {
			s.Retracted[id] = struct{}{}
		}

	case kinds.GroupCreateInvite:
		code := ev.Tags.Value("code")
		if code == "" {
			return fmt.Errorf("%w: code", ErrMissingRequiredTag)
		}
		s.Invites[code] = struct{}{}

	case kinds.GroupJoinRequest:
		if !s.after(MembersComponent, ts) {
			return errStale
		}
		if _, ok := s.Members[ev.PubKey]; !ok {
			s.Pending[ev.PubKey] = struct{}{}
		}

	case kinds.GroupLeaveRequest:
		applied := false
		if s.after(MembersComponent, ts) {
			delete(s.Members, ev.PubKey)
			delete(s.Pending, ev.PubKey)
			applied = true
		}
		if s.after(AdminsComponent, ts) {
			delete(s.Admins, ev.PubKey)
			applied = true
		}
		if !applied {
			return errStale
		}
	}

	s.touch(ts)
	return nil
}

var errStale = errors.New("older than the snapshot it would change")

// Selector returns the filters that fetch every event of g.
func Selector(g GroupID) filter.Filters {
	return filter.Filters{
		{Kinds: slices.Clone(timelineKinds), Tags: filter.TagMap{"h": {g.Local}}},
		{Kinds: slices.Clone(snapshotKinds), Tags: filter.TagMap{"d": {g.Local}}},
	}
}

var (
	timelineKinds = []kinds.Kind{
		kinds.GroupChatMessage,
		kinds.GroupPutUser,
		kinds.GroupRemoveUser,
		kinds.GroupEditMetadata,
		kinds.GroupDeleteEvent,
		kinds.GroupCreate,
		kinds.GroupDelete,
		kinds.GroupCreateInvite,
		kinds.GroupJoinRequest,
		kinds.GroupLeaveRequest,
	}
	snapshotKinds = []kinds.Kind{kinds.GroupMetadata, kinds.GroupAdmins, kinds.GroupMembers, kinds.GroupRoles}
)
