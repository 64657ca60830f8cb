package tags

// The constructors below validate field count and character set and fail
// with ErrMalformedTag instead of producing a tag Parse would not
// recognize.

func NewEventRef(id, relay, marker, author string) (EventRef, error) {
	ref := EventRef{ID: id, Relay: relay, Marker: marker, Author: author}
	if _, ok := parseEventRef(ref.Tag()); !ok {
		return EventRef{}, malformed("event reference %q", id)
	}
	return ref, nil
}

func NewPubKeyRef(pubkey, relay, petname string) (PubKeyRef, error) {
	ref := PubKeyRef{PubKey: pubkey, Relay: relay, Petname: petname}
	if _, ok := parsePubKeyRef(ref.Tag()); !ok {
		return PubKeyRef{}, malformed("pubkey reference %q", pubkey)
	}
	return ref, nil
}

func NewCoordinate(kind int, pubkey, identifier, relay string) (Coordinate, error) {
	c := Coordinate{Kind: kind, PubKey: pubkey, Identifier: identifier, Relay: relay}
	if _, ok := parseCoordinate(c.Tag()); !ok {
		return Coordinate{}, malformed("coordinate %d:%s:%s", kind, pubkey, identifier)
	}
	return c, nil
}

func NewIdentifier(v string) Identifier {
	return Identifier{Value: v}
}

func NewGroupRef(group, relay string) (GroupRef, error) {
	g := GroupRef{Group: group, Relay: relay}
	if _, ok := parseGroupRef(g.Tag()); !ok {
		return GroupRef{}, malformed("group reference %q", group)
	}
	return g, nil
}

// NewPrevious shortens full event ids (or already-short prefixes) to
// PreviousPrefixLen characters.
func NewPrevious(ids ...string) (Previous, error) {
	if len(ids) == 0 {
		return Previous{}, malformed("previous tag needs at least one reference")
	}
	refs := make([]string, 0, len(ids))
	for _, id := range ids {
		if len(id) < PreviousPrefixLen || !isLowerHex(id[:PreviousPrefixLen], PreviousPrefixLen) {
			return Previous{}, malformed("previous reference %q", id)
		}
		refs = append(refs, id[:PreviousPrefixLen])
	}
	return Previous{Refs: refs}, nil
}

func NewInviteCode(code string) (InviteCode, error) {
	if code == "" {
		return InviteCode{}, malformed("empty invite code")
	}
	return InviteCode{Code: code}, nil
}

func NewRole(name, description string) (Role, error) {
	if name == "" {
		return Role{}, malformed("empty role name")
	}
	return Role{Name: name, Description: description}, nil
}

func NewRelay(u string) (Relay, error) {
	if !IsRelayURL(u) {
		return Relay{}, malformed("relay url %q", u)
	}
	return Relay{URL: u}, nil
}

func NewReference(v, marker string) (Reference, error) {
	r := Reference{Value: v, Marker: marker}
	if _, ok := parseReference(r.Tag()); !ok {
		return Reference{}, malformed("reference %q", v)
	}
	return r, nil
}

func NewHashtag(v string) (Hashtag, error) {
	if v == "" {
		return Hashtag{}, malformed("empty hashtag")
	}
	return Hashtag{Value: v}, nil
}

func NewExpiration(at int64) (Expiration, error) {
	if at < 0 {
		return Expiration{}, malformed("negative expiration %d", at)
	}
	return Expiration{At: at}, nil
}

func NewField(key, value string) (Field, error) {
	if _, ok := FieldKeys[key]; !ok {
		return Field{}, malformed("unknown field %q", key)
	}
	return Field{Key: key, Value: value}, nil
}
