// Package envelope frames events and filters into the JSON arrays exchanged
// between clients and relays. Framing is delegated to go-nostr's envelope
// types; transport is left to the caller.
package envelope

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
)

var (
	ErrUnknownEnvelope   = errors.New("unknown envelope")
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

const (
	LabelEvent  = "EVENT"
	LabelReq    = "REQ"
	LabelCount  = "COUNT"
	LabelClose  = "CLOSE"
	LabelClosed = "CLOSED"
	LabelNotice = "NOTICE"
	LabelEOSE   = "EOSE"
	LabelOK     = "OK"
	LabelAuth   = "AUTH"
)

// Envelope is one framed message.
type Envelope interface {
	Label() string
	MarshalJSON() ([]byte, error)
}

// NewSubscriptionID returns a fresh random subscription id.
func NewSubscriptionID() string {
	return uuid.NewString()
}

// EventEnvelope carries an event. A client publishes with an empty
// SubscriptionID, a relay answers a subscription with it set.
type EventEnvelope struct {
	SubscriptionID string
	Event          *events.Event
}

// ReqEnvelope opens a subscription.
type ReqEnvelope struct {
	SubscriptionID string
	Filters        filter.Filters
}

// CountEnvelope asks for a count when Count is nil and reports one otherwise.
type CountEnvelope struct {
	SubscriptionID string
	Filters        filter.Filters
	Count          *int64
}

type CloseEnvelope string

type ClosedEnvelope struct {
	SubscriptionID string
	Reason         string
}

type NoticeEnvelope string

// EOSEEnvelope marks the end of stored events for a subscription.
type EOSEEnvelope string

// OKEnvelope acknowledges a published event.
type OKEnvelope struct {
	EventID string
	OK      bool
	Reason  string
}

// AuthEnvelope is a challenge from a relay, or a signed auth event from a
// client when Event is set.
type AuthEnvelope struct {
	Challenge string
	Event     *events.Event
}

func (EventEnvelope) Label() string  { return LabelEvent }
func (ReqEnvelope) Label() string    { return LabelReq }
func (CountEnvelope) Label() string  { return LabelCount }
func (CloseEnvelope) Label() string  { return LabelClose }
func (ClosedEnvelope) Label() string { return LabelClosed }
func (NoticeEnvelope) Label() string { return LabelNotice }
func (EOSEEnvelope) Label() string   { return LabelEOSE }
func (OKEnvelope) Label() string     { return LabelOK }
func (AuthEnvelope) Label() string   { return LabelAuth }

func toNostrFilters(fs filter.Filters) nostr.Filters {
	if fs == nil {
		return nil
	}
	out := make(nostr.Filters, len(fs))
	for i, f := range fs {
		out[i] = filter.ToNostr(f)
	}
	return out
}

func (e EventEnvelope) MarshalJSON() ([]byte, error) {
	if e.Event == nil {
		return nil, fmt.Errorf("%w: EVENT without an event", ErrMalformedEnvelope)
	}
	env := nostr.EventEnvelope{Event: *events.ToNostr(e.Event)}
	if e.SubscriptionID != "" {
		id := e.SubscriptionID
		env.SubscriptionID = &id
	}
	return env.MarshalJSON()
}

func (e ReqEnvelope) MarshalJSON() ([]byte, error) {
	return nostr.ReqEnvelope{SubscriptionID: e.SubscriptionID, Filters: toNostrFilters(e.Filters)}.MarshalJSON()
}

func (e CountEnvelope) MarshalJSON() ([]byte, error) {
	return nostr.CountEnvelope{
		SubscriptionID: e.SubscriptionID,
		Filters:        toNostrFilters(e.Filters),
		Count:          e.Count,
	}.MarshalJSON()
}

func (e CloseEnvelope) MarshalJSON() ([]byte, error) {
	return nostr.CloseEnvelope(e).MarshalJSON()
}

func (e ClosedEnvelope) MarshalJSON() ([]byte, error) {
	return nostr.ClosedEnvelope{SubscriptionID: e.SubscriptionID, Reason: e.Reason}.MarshalJSON()
}

func (e NoticeEnvelope) MarshalJSON() ([]byte, error) {
	return nostr.NoticeEnvelope(e).MarshalJSON()
}

func (e EOSEEnvelope) MarshalJSON() ([]byte, error) {
	return nostr.EOSEEnvelope(e).MarshalJSON()
}

func (e OKEnvelope) MarshalJSON() ([]byte, error) {
	return nostr.OKEnvelope{EventID: e.EventID, OK: e.OK, Reason: e.Reason}.MarshalJSON()
}

func (e AuthEnvelope) MarshalJSON() ([]byte, error) {
	if e.Event != nil {
		return nostr.AuthEnvelope{Event: *events.ToNostr(e.Event)}.MarshalJSON()
	}
	challenge := e.Challenge
	return nostr.AuthEnvelope{Challenge: &challenge}.MarshalJSON()
}

// Marshal frames env as its wire JSON.
func Marshal(env Envelope) ([]byte, error) {
	return env.MarshalJSON()
}

// Prefix returns the machine-readable prefix of an OK or CLOSED reason, such
// as "duplicate" or "invalid", or "" when the reason has none.
func Prefix(reason string) string {
	prefix, _, found := strings.Cut(reason, ":")
	if !found || strings.ContainsAny(prefix, " \t") {
		return ""
	}
	return prefix
}
