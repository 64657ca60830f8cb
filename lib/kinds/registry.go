package kinds

import (
	"fmt"
	"sort"
	"sync"
)

// Info is one row of the kind table.
type Info struct {
	Kind        Kind
	Name        string
	Description string
	Class       StorageClass
}

// Exception reports whether the row overrides the class of its range.
func (i Info) Exception() bool {
	return i.Class != RangeClass(i.Kind)
}

// Named builds a row whose class follows the range table.
func Named(k Kind, name, description string) Info {
	return Info{Kind: k, Name: name, Description: description, Class: RangeClass(k)}
}

// Registry is a data-driven kind table. Extensions add rows at process
// start; range boundaries never change.
type Registry struct {
	mu    sync.RWMutex
	table map[Kind]Info
}

func NewRegistry(rows ...Info) *Registry {
	r := &Registry{table: make(map[Kind]Info, len(rows))}
	for _, row := range rows {
		if err := r.Register(row); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a row. Registering the same row twice is a no-op;
// registering a conflicting row for an existing kind fails.
func (r *Registry) Register(info Info) error {
	if err := Validate(info.Kind); err != nil {
		return err
	}
	if info.Name == "" {
		return fmt.Errorf("kind %d: name is required", int(info.Kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.table[info.Kind]; ok {
		if existing.Name != info.Name || existing.Class != info.Class {
			return fmt.Errorf("kind %d already registered as %q (%s)", int(info.Kind), existing.Name, existing.Class)
		}
		return nil
	}
	r.table[info.Kind] = info
	return nil
}

func (r *Registry) Lookup(k Kind) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.table[k]
	return info, ok
}

func (r *Registry) Name(k Kind) string {
	info, _ := r.Lookup(k)
	return info.Name
}

// Classify is total: registered rows win, then ranges, then regular.
func (r *Registry) Classify(k Kind) StorageClass {
	if info, ok := r.Lookup(k); ok {
		return info.Class
	}
	return RangeClass(k)
}

// Exceptions lists registered rows whose class differs from their range.
func (r *Registry) Exceptions() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Info
	for _, info := range r.table {
		if info.Exception() {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// All returns every registered row ordered by kind.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.table))
	for _, info := range r.table {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Default is the process-wide table.
var Default = NewRegistry(builtin...)

// Register adds a row to the default table.
func Register(info Info) error {
	return Default.Register(info)
}

func Lookup(k Kind) (Info, bool) {
	return Default.Lookup(k)
}
