package tags

import "strings"

type parser func(t Tag) (Standard, bool)

// parsers are tried in priority order; the first structural match wins.
var parsers = []parser{
	parseEventRef,
	parsePubKeyRef,
	parseCoordinate,
	parseIdentifier,
	parseGroupRef,
	parsePrevious,
	parseInviteCode,
	parseRole,
	parseRelay,
	parseReference,
	parseHashtag,
	parseExpiration,
	parseField,
}

// Recognize returns the standardized view of t, if any.
func Recognize(t Tag) (Standard, bool) {
	if len(t) == 0 {
		return nil, false
	}
	for _, p := range parsers {
		if s, ok := p(t); ok {
			return s, true
		}
	}
	return nil, false
}

// Parse never fails: tags matching no shape come back as Raw.
func Parse(t Tag) Standard {
	if s, ok := Recognize(t); ok {
		return s
	}
	return Raw{Fields: t.Clone()}
}

// ParseAll parses every tag, preserving order.
func ParseAll(ts Tags) []Standard {
	out := make([]Standard, len(ts))
	for i, t := range ts {
		out[i] = Parse(t)
	}
	return out
}

// FormatAll is the inverse of ParseAll.
func FormatAll(ss []Standard) Tags {
	out := make(Tags, len(ss))
	for i, s := range ss {
		out[i] = s.Tag()
	}
	return out
}

func optionalRelay(s string) bool {
	return s == "" || IsRelayURL(s)
}

func parseEventRef(t Tag) (Standard, bool) {
	if t[0] != "e" || len(t) < 2 || len(t) > 5 {
		return nil, false
	}
	ref := EventRef{ID: t[1], Relay: t.Field(2), Marker: t.Field(3), Author: t.Field(4), arity: len(t)}
	if !IsID(ref.ID) || !optionalRelay(ref.Relay) {
		return nil, false
	}
	switch ref.Marker {
	case "", MarkerRoot, MarkerReply, MarkerMention:
	default:
		return nil, false
	}
	if ref.Author != "" && !IsID(ref.Author) {
		return nil, false
	}
	return ref, true
}

func parsePubKeyRef(t Tag) (Standard, bool) {
	if t[0] != "p" || len(t) < 2 || len(t) > 4 {
		return nil, false
	}
	ref := PubKeyRef{PubKey: t[1], Relay: t.Field(2), Petname: t.Field(3), arity: len(t)}
	if !IsID(ref.PubKey) || !optionalRelay(ref.Relay) {
		return nil, false
	}
	return ref, true
}

// ParseAddress splits "<kind>:<pubkey>:<identifier>". The identifier may
// itself contain colons.
func ParseAddress(s string) (Coordinate, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Coordinate{}, false
	}
	k, ok := canonicalInt(parts[0])
	if !ok || k < 0 || k > 65535 {
		return Coordinate{}, false
	}
	if !IsID(parts[1]) {
		return Coordinate{}, false
	}
	return Coordinate{Kind: int(k), PubKey: parts[1], Identifier: parts[2]}, true
}

func parseCoordinate(t Tag) (Standard, bool) {
	if t[0] != "a" || len(t) < 2 || len(t) > 3 {
		return nil, false
	}
	c, ok := ParseAddress(t[1])
	if !ok {
		return nil, false
	}
	c.Relay = t.Field(2)
	c.arity = len(t)
	if !optionalRelay(c.Relay) {
		return nil, false
	}
	return c, true
}

func parseIdentifier(t Tag) (Standard, bool) {
	if t[0] != "d" || len(t) != 2 {
		return nil, false
	}
	return Identifier{Value: t[1]}, true
}

func parseGroupRef(t Tag) (Standard, bool) {
	if t[0] != "h" || len(t) < 2 || len(t) > 3 {
		return nil, false
	}
	g := GroupRef{Group: t[1], Relay: t.Field(2), arity: len(t)}
	if !ValidGroupToken(g.Group) || !optionalRelay(g.Relay) {
		return nil, false
	}
	return g, true
}

func parsePrevious(t Tag) (Standard, bool) {
	if t[0] != "previous" || len(t) < 2 {
		return nil, false
	}
	refs := make([]string, 0, len(t)-1)
	for _, r := range t[1:] {
		if !isLowerHex(r, PreviousPrefixLen) {
			return nil, false
		}
		refs = append(refs, r)
	}
	return Previous{Refs: refs}, true
}

func parseInviteCode(t Tag) (Standard, bool) {
	if t[0] != "code" || len(t) != 2 || t[1] == "" {
		return nil, false
	}
	return InviteCode{Code: t[1]}, true
}

func parseRole(t Tag) (Standard, bool) {
	if t[0] != "role" || len(t) < 2 || len(t) > 3 || t[1] == "" {
		return nil, false
	}
	return Role{Name: t[1], Description: t.Field(2), arity: len(t)}, true
}

func parseRelay(t Tag) (Standard, bool) {
	if t[0] != "relay" || len(t) != 2 || !IsRelayURL(t[1]) {
		return nil, false
	}
	return Relay{URL: t[1]}, true
}

func parseReference(t Tag) (Standard, bool) {
	if t[0] != "r" || len(t) < 2 || len(t) > 3 || t[1] == "" {
		return nil, false
	}
	r := Reference{Value: t[1], Marker: t.Field(2), arity: len(t)}
	switch r.Marker {
	case "", "read", "write":
	default:
		return nil, false
	}
	return r, true
}

func parseHashtag(t Tag) (Standard, bool) {
	if t[0] != "t" || len(t) != 2 || t[1] == "" {
		return nil, false
	}
	return Hashtag{Value: t[1]}, true
}

func parseExpiration(t Tag) (Standard, bool) {
	if t[0] != "expiration" || len(t) != 2 {
		return nil, false
	}
	at, ok := canonicalInt(t[1])
	if !ok || at < 0 {
		return nil, false
	}
	return Expiration{At: at}, true
}

func parseField(t Tag) (Standard, bool) {
	if len(t) != 2 {
		return nil, false
	}
	if _, ok := FieldKeys[t[0]]; !ok {
		return nil, false
	}
	return Field{Key: t[0], Value: t[1]}, true
}
