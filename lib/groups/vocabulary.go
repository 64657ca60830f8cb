package groups

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HORNET-Storage/hornet-groups/lib/builder"
	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

func init() {
	for _, info := range []kinds.Info{
		kinds.Named(kinds.GroupChatMessage, "group-chat-message", "message posted to a relay-based group"),
		kinds.Named(kinds.GroupPutUser, "group-put-user", "add or update a group member and their roles"),
		kinds.Named(kinds.GroupRemoveUser, "group-remove-user", "remove a member from a group"),
		kinds.Named(kinds.GroupEditMetadata, "group-edit-metadata", "change group metadata fields"),
		kinds.Named(kinds.GroupDeleteEvent, "group-delete-event", "retract an event within a group"),
		kinds.Named(kinds.GroupCreate, "group-create", "create a group"),
		kinds.Named(kinds.GroupDelete, "group-delete", "delete a group"),
		kinds.Named(kinds.GroupCreateInvite, "group-create-invite", "issue an invite code"),
		kinds.Named(kinds.GroupJoinRequest, "group-join-request", "ask to join a group"),
		kinds.Named(kinds.GroupLeaveRequest, "group-leave-request", "leave a group"),
		kinds.Named(kinds.GroupMetadata, "group-metadata", "current group metadata, addressed by group token"),
		kinds.Named(kinds.GroupAdmins, "group-admins", "current admin roster, addressed by group token"),
		kinds.Named(kinds.GroupMembers, "group-members", "current member roster, addressed by group token"),
		kinds.Named(kinds.GroupRoles, "group-roles", "roles supported by a group, addressed by group token"),
	} {
		if err := kinds.Register(info); err != nil {
			panic(err)
		}
	}
}

// Local returns the group token an event refers to: the "d" tag of a
// snapshot kind, the "h" tag of anything else.
func Local(ev *events.Event) (string, bool) {
	key := "h"
	if kinds.IsGroupMetadata(ev.Kind) {
		key = "d"
	}
	t, ok := ev.Tags.Find(key)
	if !ok || !tags.ValidGroupToken(t.Value()) {
		return "", false
	}
	return t.Value(), true
}

func base(g GroupID, kind kinds.Kind) (builder.Builder, error) {
	if g.IsZero() {
		return builder.Builder{}, fmt.Errorf("%w: group reference", ErrMissingRequiredTag)
	}
	if !tags.ValidGroupToken(g.Local) {
		return builder.Builder{}, fmt.Errorf("%w: local token %q", ErrInvalidGroupID, g.Local)
	}
	b := builder.New(kind)
	if kinds.IsGroupMetadata(kind) {
		return b.Standard(tags.NewIdentifier(g.Local)), nil
	}
	return b.Standard(g.Ref()), nil
}

func pubkeyTag(pubkey string, roles ...string) (tags.Tag, error) {
	if pubkey == "" {
		return nil, fmt.Errorf("%w: member public key", ErrMissingRequiredTag)
	}
	if !tags.IsID(pubkey) {
		return nil, fmt.Errorf("%w: public key %q", tags.ErrMalformedTag, pubkey)
	}
	t := tags.Tag{"p", pubkey}
	for _, r := range roles {
		if r == "" {
			return nil, fmt.Errorf("%w: empty role name", tags.ErrMalformedTag)
		}
		t = append(t, r)
	}
	return t, nil
}

// Message is a chat message in g.
func Message(g GroupID, content string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupChatMessage)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Content(content), nil
}

// JoinRequest asks to join g. reason and code are optional.
func JoinRequest(g GroupID, reason, code string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupJoinRequest)
	if err != nil {
		return builder.Builder{}, err
	}
	if code != "" {
		c, err := tags.NewInviteCode(code)
		if err != nil {
			return builder.Builder{}, err
		}
		b = b.Standard(c)
	}
	return b.Content(reason), nil
}

func LeaveRequest(g GroupID, reason string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupLeaveRequest)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Content(reason), nil
}

// PutUser adds pubkey to g, or replaces the roles it holds.
func PutUser(g GroupID, pubkey string, roles ...string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupPutUser)
	if err != nil {
		return builder.Builder{}, err
	}
	t, err := pubkeyTag(pubkey, roles...)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Tag(t), nil
}

func RemoveUser(g GroupID, pubkey string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupRemoveUser)
	if err != nil {
		return builder.Builder{}, err
	}
	t, err := pubkeyTag(pubkey)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Tag(t), nil
}

// EditMetadata changes the fields set in p.
func EditMetadata(g GroupID, p Patch) (builder.Builder, error) {
	b, err := base(g, kinds.GroupEditMetadata)
	if err != nil {
		return builder.Builder{}, err
	}
	if p.Empty() {
		return builder.Builder{}, fmt.Errorf("%w: at least one metadata field", ErrMissingRequiredTag)
	}
	return b.Tag(p.Tags()...), nil
}

// DeleteEvent retracts the event id within g.
func DeleteEvent(g GroupID, id string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupDeleteEvent)
	if err != nil {
		return builder.Builder{}, err
	}
	if id == "" {
		return builder.Builder{}, fmt.Errorf("%w: event reference", ErrMissingRequiredTag)
	}
	ref, err := tags.NewEventRef(id, "", "", "")
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Standard(ref), nil
}

// CreateGroup creates g with initial metadata.
func CreateGroup(g GroupID, m Metadata) (builder.Builder, error) {
	b, err := base(g, kinds.GroupCreate)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Tag(m.Tags()...), nil
}

func DeleteGroup(g GroupID) (builder.Builder, error) {
	return base(g, kinds.GroupDelete)
}

// CreateInvite issues code, or a fresh random code when code is empty.
func CreateInvite(g GroupID, code string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupCreateInvite)
	if err != nil {
		return builder.Builder{}, err
	}
	if code == "" {
		code = NewInviteCode()
	}
	c, err := tags.NewInviteCode(code)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Standard(c), nil
}

// NewInviteCode returns a random code.
func NewInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// MetadataSnapshot is the relay-signed current metadata of g.
func MetadataSnapshot(g GroupID, m Metadata) (builder.Builder, error) {
	b, err := base(g, kinds.GroupMetadata)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Tag(m.Tags()...), nil
}

func AdminsSnapshot(g GroupID, admins []Admin) (builder.Builder, error) {
	b, err := base(g, kinds.GroupAdmins)
	if err != nil {
		return builder.Builder{}, err
	}
	for _, a := range admins {
		if _, err := pubkeyTag(a.PubKey, a.Roles...); err != nil {
			return builder.Builder{}, err
		}
	}
	return b.Tag(AdminTags(admins)...), nil
}

func MembersSnapshot(g GroupID, members []string) (builder.Builder, error) {
	b, err := base(g, kinds.GroupMembers)
	if err != nil {
		return builder.Builder{}, err
	}
	for _, m := range members {
		if _, err := pubkeyTag(m); err != nil {
			return builder.Builder{}, err
		}
	}
	return b.Tag(MemberTags(members)...), nil
}

func RolesSnapshot(g GroupID, roles []Role) (builder.Builder, error) {
	b, err := base(g, kinds.GroupRoles)
	if err != nil {
		return builder.Builder{}, err
	}
	for _, r := range roles {
		if _, err := tags.NewRole(r.Name, r.Description); err != nil {
			return builder.Builder{}, err
		}
	}
	return b.Tag(RoleTags(roles)...), nil
}

// WithPrevious adds a "previous" tag referencing recently seen events of the
// same group timeline.
func WithPrevious(b builder.Builder, ids ...string) (builder.Builder, error) {
	p, err := tags.NewPrevious(ids...)
	if err != nil {
		return builder.Builder{}, err
	}
	return b.Without("previous").Standard(p), nil
}
