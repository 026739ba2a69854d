// Package priority implements the commandable-output priority engine: the
// 16-slot priority array, its resolver, and relinquish-default fallback.
package priority

import (
	"github.com/pkg/errors"

	"github.com/kcooper33/bacnet4linux-go/internal/apdu"
)

const (
	MinPriority = 1
	MaxPriority = 16
	// DefaultPriority is used when a WriteProperty omits the optional `[4]`
	// priority context tag.
	DefaultPriority = 16
)

var ErrPriorityOutOfRange = errors.New("priority out of range 1..16")

// Array is the 16-slot command buffer of one commandable object. A nil slot
// means Null (relinquished); a slot holding a Value means that priority has
// an active command.
type Array struct {
	slots             [MaxPriority]*apdu.Value
	relinquishDefault apdu.Value
}

// NewArray constructs an array with every slot relinquished and the given
// relinquish-default.
func NewArray(relinquishDefault apdu.Value) *Array {
	return &Array{relinquishDefault: relinquishDefault}
}

// Write sets slot priority to v, or clears it ("relinquish") when v is Null.
// priority is 1-indexed per BACnet convention (slot 1 is highest).
func (a *Array) Write(priority int, v apdu.Value) error {
	if priority < MinPriority || priority > MaxPriority {
		return ErrPriorityOutOfRange
	}
	idx := priority - 1
	if v.IsNull() {
		a.slots[idx] = nil
		return nil
	}
	stored := v
	a.slots[idx] = &stored
	return nil
}

// SetRelinquishDefault replaces the fallback value used when every slot is
// Null. It does not touch any slot.
func (a *Array) SetRelinquishDefault(v apdu.Value) {
	a.relinquishDefault = v
}

func (a *Array) RelinquishDefault() apdu.Value {
	return a.relinquishDefault
}

// Resolve scans slots from priority 1 upward and returns the first non-Null
// value, or the relinquish-default if every slot is Null. Pure: calling it
// twice without an intervening Write returns the same result.
func (a *Array) Resolve() apdu.Value {
	for _, slot := range a.slots {
		if slot != nil {
			return *slot
		}
	}
	return a.relinquishDefault
}

// Slot returns the value at the given 1-indexed priority and whether it is
// occupied (false means the slot is Null).
func (a *Array) Slot(priority int) (apdu.Value, bool) {
	if priority < MinPriority || priority > MaxPriority {
		return apdu.Value{}, false
	}
	slot := a.slots[priority-1]
	if slot == nil {
		return apdu.Value{}, false
	}
	return *slot, true
}

// Elements returns all 16 slots as tagged values (Null for unoccupied slots),
// for encoding the full Priority-Array property (array_index absent or ALL).
func (a *Array) Elements() [MaxPriority]apdu.Value {
	var out [MaxPriority]apdu.Value
	for i, slot := range a.slots {
		if slot == nil {
			out[i] = apdu.Null()
		} else {
			out[i] = *slot
		}
	}
	return out
}
