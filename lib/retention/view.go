package retention

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
)

// View is a concurrent materialized view holding the current winner for each
// address. Updates to one address are serialized, so concurrent candidates
// resolve to the same winner regardless of arrival order.
type View struct {
	heads *xsync.MapOf[string, *events.Event]
}

func NewView() *View {
	return &View{heads: xsync.NewMapOf[string, *events.Event]()}
}

// Apply offers ev to the view. It returns the event that was displaced, if
// any, and whether ev is now the head of its address. Events without an
// address are ignored.
func (v *View) Apply(ev *events.Event) (replaced *events.Event, applied bool) {
	addr, ok := Address(ev)
	if !ok {
		return nil, false
	}

	v.heads.Compute(addr, func(current *events.Event, loaded bool) (*events.Event, bool) {
		if loaded && !Newer(ev, current) {
			return current, false
		}
		if loaded {
			replaced = current
		}
		applied = true
		return ev, false
	})
	return replaced, applied
}

// Get returns the head for an address.
func (v *View) Get(addr string) (*events.Event, bool) {
	return v.heads.Load(addr)
}

// Remove drops the head of addr if it is the event with the given id.
func (v *View) Remove(addr, id string) bool {
	removed := false
	v.heads.Compute(addr, func(current *events.Event, loaded bool) (*events.Event, bool) {
		if loaded && current.ID == id {
			removed = true
			return nil, true
		}
		return current, !loaded
	})
	return removed
}

func (v *View) Len() int { return v.heads.Size() }

// Range calls fn for every head until fn returns false.
func (v *View) Range(fn func(addr string, ev *events.Event) bool) {
	v.heads.Range(fn)
}
