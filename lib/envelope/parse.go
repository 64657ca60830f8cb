package envelope

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/tidwall/gjson"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
)

func malformed(label, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedEnvelope, label, fmt.Sprintf(format, args...))
}

func newNostrEnvelope(label string) nostr.Envelope {
	switch label {
	case LabelEvent:
		return &nostr.EventEnvelope{}
	case LabelReq:
		return &nostr.ReqEnvelope{}
	case LabelCount:
		return &nostr.CountEnvelope{}
	case LabelClose:
		return new(nostr.CloseEnvelope)
	case LabelClosed:
		return &nostr.ClosedEnvelope{}
	case LabelNotice:
		return new(nostr.NoticeEnvelope)
	case LabelEOSE:
		return new(nostr.EOSEEnvelope)
	case LabelOK:
		return &nostr.OKEnvelope{}
	case LabelAuth:
		return &nostr.AuthEnvelope{}
	}
	return nil
}

// checkShape enforces the element types go-nostr reads without checking.
func checkShape(label string, arr []gjson.Result) error {
	isString := func(i int) bool { return i < len(arr) && arr[i].Type == gjson.String }

	switch label {
	case LabelEvent:
		if len(arr) == 3 && !isString(1) {
			return malformed(label, "subscription id is not a string")
		}
	case LabelReq, LabelCount, LabelClose, LabelNotice, LabelEOSE:
		if !isString(1) {
			return malformed(label, "expected a string, got %s", arr[1].Raw)
		}
	case LabelClosed:
		if !isString(1) || !isString(2) {
			return malformed(label, "expected subscription id and reason strings")
		}
	case LabelOK:
		if !isString(1) || !arr[2].IsBool() || !isString(3) {
			return malformed(label, "expected event id, boolean and reason")
		}
	case LabelAuth:
		if !isString(1) && !arr[1].IsObject() {
			return malformed(label, "expected a challenge or an event")
		}
	}
	return nil
}

func fromNostrFilters(label string, nfs nostr.Filters) (filter.Filters, error) {
	fs := make(filter.Filters, 0, len(nfs))
	for _, nf := range nfs {
		f := filter.FromNostr(nf)
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedEnvelope, label, err)
		}
		fs = append(fs, f)
	}
	return fs, nil
}

func fromNostr(env nostr.Envelope) (Envelope, error) {
	switch e := env.(type) {
	case *nostr.EventEnvelope:
		out := EventEnvelope{Event: events.FromNostr(&e.Event)}
		if e.SubscriptionID != nil {
			out.SubscriptionID = *e.SubscriptionID
		}
		return out, nil
	case *nostr.ReqEnvelope:
		fs, err := fromNostrFilters(LabelReq, e.Filters)
		if err != nil {
			return nil, err
		}
		return ReqEnvelope{SubscriptionID: e.SubscriptionID, Filters: fs}, nil
	case *nostr.CountEnvelope:
		if e.Count != nil {
			return CountEnvelope{SubscriptionID: e.SubscriptionID, Count: e.Count}, nil
		}
		fs, err := fromNostrFilters(LabelCount, e.Filters)
		if err != nil {
			return nil, err
		}
		return CountEnvelope{SubscriptionID: e.SubscriptionID, Filters: fs}, nil
	case *nostr.CloseEnvelope:
		return CloseEnvelope(*e), nil
	case *nostr.ClosedEnvelope:
		return ClosedEnvelope{SubscriptionID: e.SubscriptionID, Reason: e.Reason}, nil
	case *nostr.NoticeEnvelope:
		return NoticeEnvelope(*e), nil
	case *nostr.EOSEEnvelope:
		return EOSEEnvelope(*e), nil
	case *nostr.OKEnvelope:
		return OKEnvelope{EventID: e.EventID, OK: e.OK, Reason: e.Reason}, nil
	case *nostr.AuthEnvelope:
		if e.Challenge != nil {
			return AuthEnvelope{Challenge: *e.Challenge}, nil
		}
		return AuthEnvelope{Event: events.FromNostr(&e.Event)}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEnvelope, env.Label())
}

// Parse decodes one framed message in either direction. An unrecognised
// label yields ErrUnknownEnvelope and a bad shape ErrMalformedEnvelope.
// Filters additionally carry filter.ErrInvalidFilter when they are the cause.
func Parse(data []byte) (Envelope, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedEnvelope)
	}
	r := gjson.ParseBytes(data)
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: not an array", ErrMalformedEnvelope)
	}
	arr := r.Array()
	if len(arr) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformedEnvelope)
	}
	if arr[0].Type != gjson.String {
		return nil, fmt.Errorf("%w: label is not a string", ErrMalformedEnvelope)
	}

	label := arr[0].Str
	env := newNostrEnvelope(label)
	if env == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvelope, label)
	}
	if len(arr) < 2 {
		return nil, malformed(label, "missing elements")
	}
	if err := env.UnmarshalJSON(data); err != nil {
		return nil, malformed(label, "%v", err)
	}
	if err := checkShape(label, arr); err != nil {
		return nil, err
	}
	return fromNostr(env)
}
