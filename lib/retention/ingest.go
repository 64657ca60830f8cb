package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
)

// Status is the outcome of offering one event to an Ingestor.
type Status uint8

const (
	Stored Status = iota
	Replaced
	Duplicate
	Superseded
	Ephemeral
	Rejected
)

var statusNames = map[Status]string{
	Stored:     "stored",
	Replaced:   "replaced",
	Duplicate:  "duplicate",
	Superseded: "superseded",
	Ephemeral:  "ephemeral",
	Rejected:   "rejected",
}

func (s Status) String() string { return statusNames[s] }

// Result mirrors what a relay reports in an OK message.
type Result struct {
	Status Status
	// Removed lists the ids of older events deleted by a replacement.
	Removed []string
	Message string
}

// Accepted reports whether the event was taken (stored, or already there).
func (r Result) Accepted() bool {
	switch r.Status {
	case Stored, Replaced, Duplicate, Ephemeral:
		return true
	default:
		return false
	}
}

// Ingestor runs events through verification and retention before they reach
// a store. Saves to one address are serialized by a per-address lock so
// newer-wins is decided exactly once per pair of candidates.
type Ingestor struct {
	store  stores.Store
	verify bool
	locks  *xsync.MapOf[string, *addressLock]
	view   *View
}

// addressLock is dropped from the map when its last holder releases it.
type addressLock struct {
	mu   sync.Mutex
	refs int
}

func (in *Ingestor) acquire(addr string) *addressLock {
	lock, _ := in.locks.Compute(addr, func(old *addressLock, loaded bool) (*addressLock, bool) {
		if !loaded {
			old = &addressLock{}
		}
		old.refs++
		return old, false
	})
	lock.mu.Lock()
	return lock
}

func (in *Ingestor) release(addr string, lock *addressLock) {
	lock.mu.Unlock()
	in.locks.Compute(addr, func(old *addressLock, loaded bool) (*addressLock, bool) {
		old.refs--
		return old, old.refs == 0
	})
}

type Option func(*Ingestor)

// WithoutVerification skips id and signature checks, for trusted replays.
func WithoutVerification() Option {
	return func(in *Ingestor) { in.verify = false }
}

// WithView keeps v updated with every accepted keyed event.
func WithView(v *View) Option {
	return func(in *Ingestor) { in.view = v }
}

func NewIngestor(store stores.Store, opts ...Option) *Ingestor {
	in := &Ingestor{
		store:  store,
		verify: true,
		locks:  xsync.NewMapOf[string, *addressLock](),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest verifies, classifies and stores ev. Validation failures come back
// as a Rejected result with a nil error; the error is reserved for store
// failures.
func (in *Ingestor) Ingest(ctx context.Context, ev *events.Event) (Result, error) {
	if in.verify {
		if err := events.Verify(ev); err != nil {
			logging.Debug("Rejected event", logging.Fields{"id": ev.ID, "error": err})
			return Result{Status: Rejected, Message: "invalid: " + err.Error()}, nil
		}
	}

	if !ev.Kind.Class().Persisted() {
		return Result{Status: Ephemeral, Message: "ephemeral event acknowledged"}, nil
	}

	addr, keyed := Address(ev)
	if !keyed {
		return in.save(ctx, ev, Stored)
	}

	lock := in.acquire(addr)
	defer in.release(addr, lock)

	existing, err := in.candidates(ctx, addr, ev)
	if err != nil {
		return Result{}, fmt.Errorf("query %s: %w", addr, err)
	}

	var older []string
	for _, old := range existing {
		if !SameAddress(old, ev) {
			continue
		}
		if old.ID == ev.ID {
			return Result{Status: Duplicate, Message: "duplicate: already have this event"}, nil
		}
		if !Newer(ev, old) {
			return Result{Status: Superseded, Message: "duplicate: replaced by newer event"}, nil
		}
		older = append(older, old.ID)
	}

	res, err := in.save(ctx, ev, Stored)
	if err != nil || res.Status != Stored {
		return res, err
	}

	if len(older) > 0 {
		if err := in.store.DeleteEvents(ctx, older...); err != nil {
			return Result{}, fmt.Errorf("delete superseded events for %s: %w", addr, err)
		}
		res.Status = Replaced
		res.Removed = older
		logging.Debug("Replaced event", logging.Fields{"address": addr, "id": ev.ID, "removed": len(older)})
	}

	if in.view != nil {
		in.view.Apply(ev)
	}
	return res, nil
}

// candidates returns the stored events competing with ev. Stores that keep
// per-address heads answer directly; others are queried.
func (in *Ingestor) candidates(ctx context.Context, addr string, ev *events.Event) ([]*events.Event, error) {
	if idx, ok := in.store.(stores.HeadIndex); ok {
		head, err := idx.Latest(ctx, addr)
		if errors.Is(err, stores.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*events.Event{head}, nil
	}
	return in.store.QueryEvents(ctx, AddressFilter(ev))
}

func (in *Ingestor) save(ctx context.Context, ev *events.Event, status Status) (Result, error) {
	has, err := in.store.HasEvent(ctx, ev.ID)
	if err != nil {
		return Result{}, err
	}
	if has {
		return Result{Status: Duplicate, Message: "duplicate: already have this event"}, nil
	}
	if err := in.store.SaveEvent(ctx, ev); err != nil {
		return Result{}, fmt.Errorf("save %s: %w", ev.ID, err)
	}
	return Result{Status: status}, nil
}
