package groups

import (
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/kinds"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
)

// Tracker keeps a live event log per group of one relay and refolds a
// group's state after each change. Apply calls for the same group are
// serialized; different groups proceed in parallel.
type Tracker struct {
	relay  string
	opts   []Option
	groups *xsync.MapOf[string, *groupLog]
}

type groupLog struct {
	mu     sync.Mutex
	id     GroupID
	events map[string]*events.Event
	state  *State
}

func NewTracker(relay string, opts ...Option) *Tracker {
	return &Tracker{
		relay:  relay,
		opts:   opts,
		groups: xsync.NewMapOf[string, *groupLog](),
	}
}

// Apply adds ev to the log of the group it references. It reports false
// for events that are not group events, name no valid group, or were
// already seen.
func (t *Tracker) Apply(ev *events.Event) bool {
	if !kinds.IsGroupEvent(ev.Kind) {
		return false
	}
	local, ok := Local(ev)
	if !ok {
		return false
	}

	entry, _ := t.groups.LoadOrCompute(local, func() *groupLog {
		return &groupLog{
			id:     GroupID{Relay: t.relay, Local: local},
			events: make(map[string]*events.Event),
		}
	})

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if _, dup := entry.events[ev.ID]; dup {
		return false
	}
	entry.events[ev.ID] = ev.Clone()

	all := make([]*events.Event, 0, len(entry.events))
	for _, e := range entry.events {
		all = append(all, e)
	}
	state, skips := Fold(entry.id, all, t.opts...)
	entry.state = state

	for _, s := range skips {
		if s.ID == ev.ID {
			logging.Debug("Group event recorded but not applied", logging.Fields{"group": local, "id": ev.ID, "reason": s.Reason})
		}
	}
	return true
}

// State returns a copy of the current state of the group with token local.
func (t *Tracker) State(local string) (*State, bool) {
	entry, ok := t.groups.Load(local)
	if !ok {
		return nil, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.state == nil {
		return nil, false
	}
	return entry.state.Clone(), true
}

// Events returns the group's events matching f, newest first, leaving out
// retracted events.
func (t *Tracker) Events(local string, f filter.Filter) []*events.Event {
	entry, ok := t.groups.Load(local)
	if !ok {
		return nil
	}
	entry.mu.Lock()
	visible := make([]*events.Event, 0, len(entry.events))
	for id, ev := range entry.events {
		if entry.state != nil && entry.state.IsRetracted(id) {
			continue
		}
		visible = append(visible, ev.Clone())
	}
	entry.mu.Unlock()

	return filter.Collect(filter.Select(visible, f))
}

// Groups lists the tokens of every tracked group.
func (t *Tracker) Groups() []string {
	var out []string
	t.groups.Range(func(local string, _ *groupLog) bool {
		out = append(out, local)
		return true
	})
	slices.Sort(out)
	return out
}
