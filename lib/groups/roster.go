package groups

import (
	"slices"

	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

// MemberRole is the role name that grants membership and nothing more.
const MemberRole = "member"

// Role is a named permission set defined by a group.
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Admin is a roster entry carrying one or more role names.
type Admin struct {
	PubKey string   `json:"pubkey"`
	Roles  []string `json:"roles"`
}

// AdminRoles drops the plain member role; what is left makes the holder an
// admin.
func AdminRoles(roles []string) []string {
	var out []string
	for _, r := range roles {
		if r != "" && r != MemberRole && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// AdminTags encodes ["p", pubkey, role...] per admin.
func AdminTags(admins []Admin) tags.Tags {
	out := make(tags.Tags, 0, len(admins))
	for _, a := range admins {
		t := tags.Tag{"p", a.PubKey}
		out = append(out, append(t, a.Roles...))
	}
	return out
}

// ParseAdmins reads an admins snapshot. Roles may follow the pubkey inside
// the "p" tag or come as ["role", name] tags after it.
func ParseAdmins(ts tags.Tags) []Admin {
	var out []Admin
	for _, t := range ts {
		switch {
		case t.Key() == "p" && tags.IsID(t.Value()):
			a := Admin{PubKey: t.Value()}
			if len(t) > 2 {
				a.Roles = append(a.Roles, t[2:]...)
			}
			out = append(out, a)
		case t.Key() == "role" && len(t) >= 2 && len(out) > 0:
			last := &out[len(out)-1]
			last.Roles = append(last.Roles, t[1])
		}
	}
	return out
}

// MemberTags encodes ["p", pubkey] per member.
func MemberTags(members []string) tags.Tags {
	out := make(tags.Tags, 0, len(members))
	for _, m := range members {
		out = append(out, tags.Tag{"p", m})
	}
	return out
}

func ParseMembers(ts tags.Tags) []string {
	var out []string
	for _, t := range ts {
		if t.Key() == "p" && tags.IsID(t.Value()) && !slices.Contains(out, t.Value()) {
			out = append(out, t.Value())
		}
	}
	return out
}

// RoleTags encodes ["role", name, description?].
func RoleTags(roles []Role) tags.Tags {
	out := make(tags.Tags, 0, len(roles))
	for _, r := range roles {
		role, err := tags.NewRole(r.Name, r.Description)
		if err != nil {
			continue
		}
		out = append(out, role.Tag())
	}
	return out
}

func ParseRoles(ts tags.Tags) []Role {
	var out []Role
	for _, t := range ts {
		if t.Key() == "role" && t.Value() != "" {
			out = append(out, Role{Name: t.Value(), Description: t.Field(2)})
		}
	}
	return out
}
