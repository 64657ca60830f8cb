package kinds

const (
	ProfileMetadata     Kind = 0
	TextNote            Kind = 1
	RecommendRelay      Kind = 2
	ContactList         Kind = 3
	EncryptedDirect     Kind = 4
	Deletion            Kind = 5
	Repost              Kind = 6
	Reaction            Kind = 7
	MuteList            Kind = 10000
	PinList             Kind = 10001
	RelayListMetadata   Kind = 10002
	ClientAuth          Kind = 22242
	CategorizedPeople   Kind = 30000
	LongFormArticle     Kind = 30023
	ApplicationSpecific Kind = 30078
)

// Relay-based group vocabulary.
const (
	GroupChatMessage  Kind = 9
	GroupPutUser      Kind = 9000
	GroupRemoveUser   Kind = 9001
	GroupEditMetadata Kind = 9002
	GroupDeleteEvent  Kind = 9005
	GroupCreate       Kind = 9007
	GroupDelete       Kind = 9008
	GroupCreateInvite Kind = 9009
	GroupJoinRequest  Kind = 9021
	GroupLeaveRequest Kind = 9022
	GroupMetadata     Kind = 39000
	GroupAdmins       Kind = 39001
	GroupMembers      Kind = 39002
	GroupRoles        Kind = 39003
)

var builtin = []Info{
	{Kind: ProfileMetadata, Name: "profile-metadata", Description: "user profile, JSON content", Class: Replaceable},
	Named(TextNote, "text-note", "short text note"),
	Named(RecommendRelay, "recommend-relay", "relay recommendation (deprecated)"),
	{Kind: ContactList, Name: "contact-list", Description: "follow list", Class: Replaceable},
	Named(EncryptedDirect, "encrypted-direct-message", "NIP-04 encrypted message"),
	Named(Deletion, "deletion", "request to delete referenced events"),
	Named(Repost, "repost", "repost of a text note"),
	Named(Reaction, "reaction", "reaction to an event"),
	Named(MuteList, "mute-list", "muted pubkeys, words and threads"),
	Named(PinList, "pin-list", "pinned events"),
	Named(RelayListMetadata, "relay-list-metadata", "read/write relay preferences"),
	Named(ClientAuth, "client-authentication", "AUTH response event"),
	Named(CategorizedPeople, "categorized-people-list", "named follow sets"),
	Named(LongFormArticle, "long-form-article", "long-form content, addressed by d tag"),
	Named(ApplicationSpecific, "application-specific-data", "arbitrary app data, addressed by d tag"),
}

var (
	groupModerationKinds = map[Kind]struct{}{
		GroupPutUser:      {},
		GroupRemoveUser:   {},
		GroupEditMetadata: {},
		GroupDeleteEvent:  {},
		GroupCreate:       {},
		GroupDelete:       {},
		GroupCreateInvite: {},
	}
	groupMetadataKinds = map[Kind]struct{}{
		GroupMetadata: {},
		GroupAdmins:   {},
		GroupMembers:  {},
		GroupRoles:    {},
	}
	groupUserKinds = map[Kind]struct{}{
		GroupJoinRequest:  {},
		GroupLeaveRequest: {},
	}
)

// IsGroupModeration reports membership in the non-contiguous set of
// group moderation kinds (9000-9009 minus the reserved 9003, 9004, 9006).
func IsGroupModeration(k Kind) bool {
	_, ok := groupModerationKinds[k]
	return ok
}

// IsGroupMetadata reports membership in the addressable group snapshot kinds.
func IsGroupMetadata(k Kind) bool {
	_, ok := groupMetadataKinds[k]
	return ok
}

// IsGroupUser reports whether k is a user-issued join or leave request.
func IsGroupUser(k Kind) bool {
	_, ok := groupUserKinds[k]
	return ok
}

// IsGroupEvent covers every kind of the group vocabulary.
func IsGroupEvent(k Kind) bool {
	return k == GroupChatMessage || IsGroupModeration(k) || IsGroupMetadata(k) || IsGroupUser(k)
}

func (k Kind) IsGroupModeration() bool { return IsGroupModeration(k) }
func (k Kind) IsGroupMetadata() bool   { return IsGroupMetadata(k) }
