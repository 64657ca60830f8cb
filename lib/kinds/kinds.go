// Package kinds classifies event kinds into storage classes.
//
// The classification is a fixed set of half-open ranges plus a table of
// registered kinds. Registered kinds may carry a class that differs from
// their range (kinds 0 and 3 are replaceable although they sit in the
// regular range). Anything unknown is regular.
package kinds

import (
	"errors"
	"fmt"
)

// Kind is the numeric event kind. The documented domain is [0, 65535];
// values outside it classify as regular.
type Kind int

// StorageClass is the retention rule derived from a kind.
type StorageClass uint8

const (
	Regular StorageClass = iota
	Replaceable
	Ephemeral
	Addressable
)

const (
	MinKind Kind = 0
	MaxKind Kind = 65535
)

var ErrUnsupportedKind = errors.New("unsupported kind")

func (c StorageClass) String() string {
	switch c {
	case Regular:
		return "regular"
	case Replaceable:
		return "replaceable"
	case Ephemeral:
		return "ephemeral"
	case Addressable:
		return "addressable"
	default:
		return "unknown"
	}
}

// Persisted reports whether events of this class are ever stored.
func (c StorageClass) Persisted() bool {
	return c != Ephemeral
}

// Keyed reports whether at most one event per address is retained.
func (c StorageClass) Keyed() bool {
	return c == Replaceable || c == Addressable
}

// Range is a half-open interval [From, To) mapped to a class.
type Range struct {
	From  Kind
	To    Kind
	Class StorageClass
}

func (r Range) Contains(k Kind) bool {
	return k >= r.From && k < r.To
}

// Ranges are the fixed range boundaries. Kinds not covered are regular.
var Ranges = []Range{
	{From: 10000, To: 20000, Class: Replaceable},
	{From: 20000, To: 30000, Class: Ephemeral},
	{From: 30000, To: 40000, Class: Addressable},
}

// Validate reports whether k lies inside the documented kind domain.
func Validate(k Kind) error {
	if k < MinKind || k > MaxKind {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrUnsupportedKind, int(k), int(MinKind), int(MaxKind))
	}
	return nil
}

// RangeClass returns the class implied by the range table alone.
func RangeClass(k Kind) StorageClass {
	if Validate(k) != nil {
		return Regular
	}
	for _, r := range Ranges {
		if r.Contains(k) {
			return r.Class
		}
	}
	return Regular
}

// Classify returns the storage class of k using the default registry.
func Classify(k Kind) StorageClass {
	return Default.Classify(k)
}

func (k Kind) Class() StorageClass { return Classify(k) }

func (k Kind) IsRegular() bool     { return Classify(k) == Regular }
func (k Kind) IsReplaceable() bool { return Classify(k) == Replaceable }
func (k Kind) IsEphemeral() bool   { return Classify(k) == Ephemeral }
func (k Kind) IsAddressable() bool { return Classify(k) == Addressable }

func (k Kind) String() string {
	if name := Default.Name(k); name != "" {
		return fmt.Sprintf("%d(%s)", int(k), name)
	}
	return fmt.Sprintf("%d", int(k))
}
