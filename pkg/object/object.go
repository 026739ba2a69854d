// Package object is the object store: a keyed table of BACnet object
// records with typed value slots, indexed by (object-type, instance).
package object

import (
	"fmt"
	"sort"

	"github.com/kcooper33/bacnet4linux-go/internal/apdu"
	"github.com/kcooper33/bacnet4linux-go/pkg/priority"
)

// Type is the BACnet object-type enumeration. Only the types the core
// recognizes are named; the wire encoding (object-identifier's top 10 bits)
// supports the full range, but unrecognized types are rejected at bootstrap.
type Type uint16

const (
	TypeAnalogInput  Type = 0
	TypeAnalogOutput Type = 1
	TypeBinaryInput  Type = 3
	TypeBinaryOutput Type = 4
	TypeDevice       Type = 8
)

func (t Type) String() string {
	switch t {
	case TypeAnalogInput:
		return "analog-input"
	case TypeAnalogOutput:
		return "analog-output"
	case TypeBinaryInput:
		return "binary-input"
	case TypeBinaryOutput:
		return "binary-output"
	case TypeDevice:
		return "device"
	default:
		return fmt.Sprintf("type(%d)", uint16(t))
	}
}

// Commandable reports whether objects of this type derive Present-Value from
// a priority array rather than holding it directly.
func (t Type) Commandable() bool {
	return t == TypeAnalogOutput || t == TypeBinaryOutput
}

// Binary reports whether this type's Present-Value is Enumerated(0|1) rather
// than Real.
func (t Type) Binary() bool {
	return t == TypeBinaryInput || t == TypeBinaryOutput
}

// ID identifies an object record uniquely within the store.
type ID struct {
	Type     Type
	Instance uint32
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Type, id.Instance)
}

// Record is one object in the store. PresentValue always holds the object's
// current effective value; for commandable objects it is kept in sync with
// Priorities.Resolve() by the priority engine after every mutation, whether
// or not the object is OutOfService — see DESIGN.md for the reasoning.
type Record struct {
	ID           ID
	Name         string
	PresentValue apdu.Value
	ActiveText   string
	InactiveText string
	Units        uint32
	OutOfService bool

	// Priorities is non-nil iff ID.Type.Commandable().
	Priorities *priority.Array
}

// Store is the keyed object table. A single mutex would be enough to make it
// concurrency-safe for a link layer multiplexed onto a background worker;
// the core's own call path is single-threaded, so Store does not take one
// itself — callers that introduce concurrency own that decision.
type Store struct {
	order []ID
	index map[ID]*Record
}

func NewStore() *Store {
	return &Store{index: make(map[ID]*Record)}
}

// Insert adds a new record. A duplicate key is a fault at init, not at
// runtime: it returns an error rather than silently overwriting.
func (s *Store) Insert(r *Record) error {
	if _, exists := s.index[r.ID]; exists {
		return fmt.Errorf("object %s already registered", r.ID)
	}
	s.index[r.ID] = r
	s.order = append(s.order, r.ID)
	return nil
}

func (s *Store) Find(id ID) (*Record, bool) {
	r, ok := s.index[id]
	return r, ok
}

func (s *Store) Count() int {
	return len(s.order)
}

// Iterate returns every object id in stable insertion order, used to encode
// the Device's object-list property.
func (s *Store) Iterate() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

// SortByType orders iteration by (type, instance) rather than insertion
// order. Insertion order is already stable across calls within one process;
// SortByType exists for bootstrap callers that want a deterministic,
// human-readable object-list regardless of the order the bootstrap file
// happened to list objects in.
func (s *Store) SortByType() {
	sort.Slice(s.order, func(i, j int) bool {
		a, b := s.order[i], s.order[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Instance < b.Instance
	})
}
