package tags

import (
	"net/url"
	"strconv"
	"strings"
)

// Shape names a standardized tag layout.
type Shape int

const (
	ShapeRaw Shape = iota
	ShapeEventRef
	ShapePubKeyRef
	ShapeCoordinate
	ShapeIdentifier
	ShapeGroupRef
	ShapePrevious
	ShapeInviteCode
	ShapeRole
	ShapeRelay
	ShapeReference
	ShapeHashtag
	ShapeExpiration
	ShapeField
)

var shapeNames = map[Shape]string{
	ShapeRaw:        "raw",
	ShapeEventRef:   "event-ref",
	ShapePubKeyRef:  "pubkey-ref",
	ShapeCoordinate: "coordinate",
	ShapeIdentifier: "identifier",
	ShapeGroupRef:   "group-ref",
	ShapePrevious:   "previous",
	ShapeInviteCode: "invite-code",
	ShapeRole:       "role",
	ShapeRelay:      "relay",
	ShapeReference:  "reference",
	ShapeHashtag:    "hashtag",
	ShapeExpiration: "expiration",
	ShapeField:      "field",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "unknown"
}

// Standard is a typed view of a tag. Tag() is the exact inverse of Parse
// for every value Parse returns.
type Standard interface {
	Shape() Shape
	Tag() Tag
}

// Event reference markers.
const (
	MarkerRoot    = "root"
	MarkerReply   = "reply"
	MarkerMention = "mention"
)

// PreviousPrefixLen is the length of an id prefix inside a "previous" tag.
const PreviousPrefixLen = 8

// FieldKeys is the closed set of named metadata field keys.
var FieldKeys = map[string]struct{}{
	"name":    {},
	"about":   {},
	"picture": {},
	"title":   {},
	"summary": {},
	"alt":     {},
	"image":   {},
	"subject": {},
}

func isLowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// IsID reports whether s is a 32-byte lowercase hex string, the form of
// event ids and public keys.
func IsID(s string) bool {
	return isLowerHex(s, 64)
}

// IsRelayURL reports whether s is a ws:// or wss:// URL with a host.
func IsRelayURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return false
	}
	return u.Host != ""
}

// ValidGroupToken reports whether s is a non-empty run of [A-Za-z0-9_-].
func ValidGroupToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func canonicalInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != s {
		return 0, false
	}
	return n, true
}

// fields emits key + values, padded to arity with the stored values and
// trimmed of trailing empties beyond the minimum needed.
func fields(key string, arity int, values ...string) Tag {
	need := 0
	for i, v := range values {
		if v != "" {
			need = i + 1
		}
	}
	if arity-1 > need {
		need = arity - 1
	}
	if need > len(values) {
		need = len(values)
	}
	out := make(Tag, 0, need+1)
	out = append(out, key)
	return append(out, values[:need]...)
}

// Raw is a tag that matched no standardized shape.
type Raw struct {
	Fields Tag
}

func (r Raw) Shape() Shape { return ShapeRaw }
func (r Raw) Tag() Tag     { return r.Fields.Clone() }

// EventRef is ["e", id, relay?, marker?, author?].
type EventRef struct {
	ID     string
	Relay  string
	Marker string
	Author string
	arity  int
}

func (e EventRef) Shape() Shape { return ShapeEventRef }
func (e EventRef) Tag() Tag {
	return fields("e", e.arity, e.ID, e.Relay, e.Marker, e.Author)
}

// PubKeyRef is ["p", pubkey, relay?, petname?].
type PubKeyRef struct {
	PubKey  string
	Relay   string
	Petname string
	arity   int
}

func (p PubKeyRef) Shape() Shape { return ShapePubKeyRef }
func (p PubKeyRef) Tag() Tag {
	return fields("p", p.arity, p.PubKey, p.Relay, p.Petname)
}

// Coordinate is ["a", "<kind>:<pubkey>:<identifier>", relay?].
type Coordinate struct {
	Kind       int
	PubKey     string
	Identifier string
	Relay      string
	arity      int
}

func (c Coordinate) Shape() Shape { return ShapeCoordinate }

// Address is the "<kind>:<pubkey>:<identifier>" value.
func (c Coordinate) Address() string {
	return strconv.Itoa(c.Kind) + ":" + c.PubKey + ":" + c.Identifier
}

func (c Coordinate) Tag() Tag {
	return fields("a", c.arity, c.Address(), c.Relay)
}

// Identifier is ["d", value].
type Identifier struct {
	Value string
}

func (d Identifier) Shape() Shape { return ShapeIdentifier }
func (d Identifier) Tag() Tag     { return Tag{"d", d.Value} }

// GroupRef is ["h", local-token, relay?].
type GroupRef struct {
	Group string
	Relay string
	arity int
}

func (g GroupRef) Shape() Shape { return ShapeGroupRef }
func (g GroupRef) Tag() Tag {
	return fields("h", g.arity, g.Group, g.Relay)
}

// Previous is ["previous", prefix...] where each prefix is the first
// PreviousPrefixLen hex characters of a recently seen event id.
type Previous struct {
	Refs []string
}

func (p Previous) Shape() Shape { return ShapePrevious }
func (p Previous) Tag() Tag {
	out := make(Tag, 0, len(p.Refs)+1)
	out = append(out, "previous")
	return append(out, p.Refs...)
}

// Matches reports whether id starts with one of the listed prefixes.
func (p Previous) Matches(id string) bool {
	for _, r := range p.Refs {
		if strings.HasPrefix(id, r) {
			return true
		}
	}
	return false
}

// InviteCode is ["code", value].
type InviteCode struct {
	Code string
}

func (c InviteCode) Shape() Shape { return ShapeInviteCode }
func (c InviteCode) Tag() Tag     { return Tag{"code", c.Code} }

// Role is ["role", name, description?].
type Role struct {
	Name        string
	Description string
	arity       int
}

func (r Role) Shape() Shape { return ShapeRole }
func (r Role) Tag() Tag {
	return fields("role", r.arity, r.Name, r.Description)
}

// Relay is ["relay", url].
type Relay struct {
	URL string
}

func (r Relay) Shape() Shape { return ShapeRelay }
func (r Relay) Tag() Tag     { return Tag{"relay", r.URL} }

// Reference is ["r", value, marker?] with marker "read" or "write".
type Reference struct {
	Value  string
	Marker string
	arity  int
}

func (r Reference) Shape() Shape { return ShapeReference }
func (r Reference) Tag() Tag {
	return fields("r", r.arity, r.Value, r.Marker)
}

// Hashtag is ["t", value].
type Hashtag struct {
	Value string
}

func (h Hashtag) Shape() Shape { return ShapeHashtag }
func (h Hashtag) Tag() Tag     { return Tag{"t", h.Value} }

// Expiration is ["expiration", unix-seconds].
type Expiration struct {
	At int64
}

func (e Expiration) Shape() Shape { return ShapeExpiration }
func (e Expiration) Tag() Tag {
	return Tag{"expiration", strconv.FormatInt(e.At, 10)}
}

// Field is a named metadata field such as ["name", value].
type Field struct {
	Key   string
	Value string
}

func (f Field) Shape() Shape { return ShapeField }
func (f Field) Tag() Tag     { return Tag{f.Key, f.Value} }
