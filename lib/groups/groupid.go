// Package groups implements relay-based groups: identifiers, the event
// vocabulary, and the fold that derives a group's state from its events.
package groups

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/HORNET-Storage/hornet-groups/lib/builder"
	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

var (
	ErrInvalidGroupID     = errors.New("invalid group id")
	ErrInvalidPrivacy     = errors.New("invalid privacy value")
	ErrInvalidAccessModel = errors.New("invalid access model value")

	// ErrMissingRequiredTag is shared with the builder so callers can test
	// either package's constructors against one sentinel.
	ErrMissingRequiredTag = builder.ErrMissingRequiredTag
)

// TopLevel is the reserved token of a relay's ungrouped discussion space.
const TopLevel = "_"

// Delimiter separates the relay locator from the local token.
const Delimiter = "'"

// GroupID names a group on one relay.
type GroupID struct {
	Relay string
	Local string
}

// New validates both parts. A trailing slash on the relay is dropped.
func New(relay, local string) (GroupID, error) {
	relay = strings.TrimSuffix(relay, "/")
	if !ValidRelayLocator(relay) {
		return GroupID{}, fmt.Errorf("%w: relay locator %q", ErrInvalidGroupID, relay)
	}
	if !tags.ValidGroupToken(local) {
		return GroupID{}, fmt.Errorf("%w: local token %q", ErrInvalidGroupID, local)
	}
	return GroupID{Relay: relay, Local: local}, nil
}

// Parse reads "<relay>'<token>".
func Parse(s string) (GroupID, error) {
	relay, local, ok := strings.Cut(s, Delimiter)
	if !ok {
		return GroupID{}, fmt.Errorf("%w: missing %s delimiter in %q", ErrInvalidGroupID, Delimiter, s)
	}
	if strings.Contains(local, Delimiter) {
		return GroupID{}, fmt.Errorf("%w: more than one delimiter in %q", ErrInvalidGroupID, s)
	}
	return New(relay, local)
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) GroupID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

func (g GroupID) String() string {
	return g.Relay + Delimiter + g.Local
}

func (g GroupID) IsZero() bool { return g.Local == "" }

func (g GroupID) IsTopLevel() bool { return g.Local == TopLevel }

// Ref is the "h" tag carried by every non-addressable group event.
func (g GroupID) Ref() tags.GroupRef {
	ref, _ := tags.NewGroupRef(g.Local, "")
	return ref
}

// ValidRelayLocator accepts a ws:// or wss:// URL, or a bare host with an
// optional port.
func ValidRelayLocator(s string) bool {
	if strings.Contains(s, "://") {
		if !tags.IsRelayURL(s) {
			return false
		}
		u, _ := url.Parse(s)
		return validHostPort(u.Host)
	}
	return validHostPort(s)
}

func validHostPort(s string) bool {
	host, port, hasPort := strings.Cut(s, ":")
	if hasPort {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 || strconv.Itoa(n) != port {
			return false
		}
	}
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			default:
				return false
			}
		}
	}
	return true
}
