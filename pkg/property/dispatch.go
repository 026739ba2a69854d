// Package property is the property dispatcher: a two-dimensional dispatch
// by (object-type, property-identifier) that reads or writes a property,
// delegating commandable properties to the priority engine.
package property

import (
	"time"

	"github.com/kcooper33/bacnet4linux-go/internal/apdu"
	"github.com/kcooper33/bacnet4linux-go/pkg/object"
	"github.com/kcooper33/bacnet4linux-go/pkg/priority"
)

// ArrayIndexAll is the sentinel meaning "no array index / the whole array",
// as opposed to a concrete index (including 0, the array's length slot).
const ArrayIndexAll = ^uint32(0)

// Context carries everything a dispatch needs beyond the single object being
// addressed: the store (for object-list and cross-object lookups) and the
// Device's static configuration.
type Context struct {
	Store  *object.Store
	Device DeviceInfo
}

// EffectorWrite is returned by Write when a mutation must be pushed to the
// hardware effector. On a successful write it is nil only when the object is
// out_of_service, meaning no effector call is needed.
type EffectorWrite struct {
	Instance uint32
	Binary   bool
	Value    apdu.Value
}

// Read resolves (id, propID, arrayIndex) to a value or a typed *Error.
// arrayIndex is ArrayIndexAll when the request omitted the optional `[2]`
// context tag.
func Read(ctx *Context, id object.ID, propID ID, arrayIndex uint32) (apdu.Value, error) {
	if id.Type == object.TypeDevice {
		return readDevice(ctx, id, propID, arrayIndex)
	}
	rec, ok := ctx.Store.Find(id)
	if !ok {
		return apdu.Value{}, ErrUnknownObject
	}
	return readObject(ctx, rec, propID, arrayIndex)
}

// Write applies a value to a writable property. priority is nil when the
// request omitted the optional `[4]` context tag (defaults to priority 16).
// Only Present-Value and Relinquish-Default are ever writable, and only on
// commandable objects.
func Write(ctx *Context, id object.ID, propID ID, arrayIndex uint32, value apdu.Value, priorityArg *uint8) (*EffectorWrite, error) {
	if id.Type == object.TypeDevice {
		return nil, ErrWriteAccessDenied
	}
	rec, ok := ctx.Store.Find(id)
	if !ok {
		return nil, ErrUnknownObject
	}
	if arrayIndex != ArrayIndexAll {
		return nil, ErrPropertyIsNotAList
	}
	if !rec.ID.Type.Commandable() {
		return nil, ErrWriteAccessDenied
	}
	switch propID {
	case PresentValue:
		return writePresentValue(rec, value, priorityArg)
	case RelinquishDefault:
		return writeRelinquishDefault(rec, value)
	default:
		return nil, ErrWriteAccessDenied
	}
}

func writePresentValue(rec *object.Record, value apdu.Value, priorityArg *uint8) (*EffectorWrite, error) {
	p := priority.DefaultPriority
	if priorityArg != nil {
		p = int(*priorityArg)
	}
	if p < priority.MinPriority || p > priority.MaxPriority {
		return nil, ErrValueOutOfRange
	}
	if !value.IsNull() && !valueMatchesType(rec.ID.Type, value) {
		return nil, ErrInvalidDataType
	}
	if err := rec.Priorities.Write(p, value); err != nil {
		return nil, ErrValueOutOfRange
	}
	return coupleEffector(rec), nil
}

func writeRelinquishDefault(rec *object.Record, value apdu.Value) (*EffectorWrite, error) {
	if !valueMatchesType(rec.ID.Type, value) {
		return nil, ErrInvalidDataType
	}
	rec.Priorities.SetRelinquishDefault(value)
	return coupleEffector(rec), nil
}

// coupleEffector implements the three-step effector coupling: recompute,
// store, and (unless out_of_service) invoke.
func coupleEffector(rec *object.Record) *EffectorWrite {
	effective := rec.Priorities.Resolve()
	rec.PresentValue = effective
	if rec.OutOfService {
		return nil
	}
	return &EffectorWrite{
		Instance: rec.ID.Instance,
		Binary:   rec.ID.Type.Binary(),
		Value:    effective,
	}
}

func valueMatchesType(t object.Type, v apdu.Value) bool {
	if t.Binary() {
		return v.Kind == apdu.KindEnumerated && (v.Enumerated == 0 || v.Enumerated == 1)
	}
	return v.Kind == apdu.KindReal
}

func readObject(ctx *Context, rec *object.Record, propID ID, arrayIndex uint32) (apdu.Value, error) {
	switch propID {
	case ObjectIdentifier:
		return apdu.ObjectIdentifier(apdu.ObjectID{Type: uint16(rec.ID.Type), Instance: rec.ID.Instance}), nil
	case ObjectName:
		return apdu.CharacterString(rec.Name), nil
	case ObjectType:
		return apdu.Enumerated(uint32(rec.ID.Type)), nil
	case PresentValue:
		return rec.PresentValue, nil
	case StatusFlags:
		return statusFlags(rec.OutOfService), nil
	case OutOfService:
		return apdu.Boolean(rec.OutOfService), nil
	case Units:
		return apdu.Enumerated(rec.Units), nil
	case ActiveText:
		if !rec.ID.Type.Binary() {
			return apdu.Value{}, ErrUnknownProperty
		}
		return apdu.CharacterString(rec.ActiveText), nil
	case InactiveText:
		if !rec.ID.Type.Binary() {
			return apdu.Value{}, ErrUnknownProperty
		}
		return apdu.CharacterString(rec.InactiveText), nil
	case PriorityArray:
		if !rec.ID.Type.Commandable() {
			return apdu.Value{}, ErrUnknownProperty
		}
		return readPriorityArray(rec.Priorities, arrayIndex)
	case RelinquishDefault:
		if !rec.ID.Type.Commandable() {
			return apdu.Value{}, ErrUnknownProperty
		}
		return rec.Priorities.RelinquishDefault(), nil
	default:
		return apdu.Value{}, ErrUnknownProperty
	}
}

// readPriorityArray implements the priority array's read semantics:
// ALL/absent returns a synthetic marker the caller encodes as 16 bracketed
// elements (see pkg/service), index 0 returns the fixed size, 1..16 returns
// that slot.
func readPriorityArray(arr *priority.Array, arrayIndex uint32) (apdu.Value, error) {
	switch {
	case arrayIndex == ArrayIndexAll:
		// The service handler encodes the full 16-element constructed value
		// directly from arr.Elements(); signal that here with the
		// errPriorityArrayAll sentinel error and let the caller special-case
		// PriorityArray+ALL. Returning a sentinel error keeps this function's
		// signature uniform with every other property.
		return apdu.Value{}, errPriorityArrayAll
	case arrayIndex == 0:
		return apdu.Unsigned(priority.MaxPriority), nil
	case arrayIndex >= 1 && arrayIndex <= priority.MaxPriority:
		v, occupied := arr.Slot(int(arrayIndex))
		if !occupied {
			return apdu.Null(), nil
		}
		return v, nil
	default:
		return apdu.Value{}, ErrInvalidArrayIndex
	}
}

// errPriorityArrayAll is not part of the typed Error taxonomy: it's an
// internal signal telling the service handler "this isn't a scalar value,
// encode the constructed array yourself." See ReadPriorityArrayElements.
var errPriorityArrayAll = &sentinelErr{"priority-array requires constructed encoding"}

type sentinelErr struct{ msg string }

func (e *sentinelErr) Error() string { return e.msg }

// IsPriorityArrayAll reports whether err is the signal returned by Read for
// PriorityArray with no/ALL array index, telling the caller to use
// ReadPriorityArrayElements instead of treating this as a failure.
func IsPriorityArrayAll(err error) bool {
	return err == errPriorityArrayAll
}

// ReadPriorityArrayElements returns the 16 tagged elements of id's priority
// array, for the constructed encoding of a full Priority-Array read.
func ReadPriorityArrayElements(ctx *Context, id object.ID) ([priority.MaxPriority]apdu.Value, error) {
	rec, ok := ctx.Store.Find(id)
	if !ok {
		return [priority.MaxPriority]apdu.Value{}, ErrUnknownObject
	}
	if rec.Priorities == nil {
		return [priority.MaxPriority]apdu.Value{}, ErrUnknownProperty
	}
	return rec.Priorities.Elements(), nil
}

func statusFlags(outOfService bool) apdu.Value {
	var b byte
	if outOfService {
		b |= 0x10 // bit 3 (out-of-service), numbered from the MSB of the octet
	}
	return apdu.BitString(apdu.BitStringValue{UnusedBits: 4, Bytes: []byte{b}})
}

func readDevice(ctx *Context, id object.ID, propID ID, arrayIndex uint32) (apdu.Value, error) {
	d := ctx.Device
	if id.Instance != d.Instance {
		return apdu.Value{}, ErrUnknownObject
	}
	switch propID {
	case ObjectIdentifier:
		return apdu.ObjectIdentifier(apdu.ObjectID{Type: uint16(object.TypeDevice), Instance: d.Instance}), nil
	case ObjectName:
		return apdu.CharacterString(deviceObjectName), nil
	case ObjectType:
		return apdu.Enumerated(uint32(object.TypeDevice)), nil
	case Description:
		return apdu.CharacterString(d.Description), nil
	case SystemStatus:
		return apdu.Enumerated(systemStatusOperational), nil
	case VendorName:
		return apdu.CharacterString(deviceVendorName), nil
	case VendorIdentifier:
		return apdu.Unsigned(d.VendorIdentifier), nil
	case ModelName:
		return apdu.CharacterString(deviceModelName), nil
	case FirmwareRevision:
		return apdu.CharacterString("1.0"), nil
	case ApplicationSoftwareVersion:
		return apdu.CharacterString("1.0"), nil
	case LocalTime:
		now := time.Now()
		return apdu.Time(apdu.TimeValue{
			Hour: uint8(now.Hour()), Minute: uint8(now.Minute()),
			Second: uint8(now.Second()), Hundredths: uint8(now.Nanosecond() / 10000000),
		}), nil
	case LocalDate:
		now := time.Now()
		return apdu.Date(apdu.DateValue{
			Year: now.Year(), Month: uint8(now.Month()), Day: uint8(now.Day()),
			Weekday: uint8(now.Weekday()),
		}), nil
	case ProtocolVersion:
		return apdu.Unsigned(protocolVersion), nil
	case ProtocolConformanceClass:
		return apdu.Unsigned(protocolConformanceClass), nil
	case ProtocolServicesSupported:
		return protocolServicesSupported(d), nil
	case ProtocolObjectTypesSupported:
		return protocolObjectTypesSupported(), nil
	case ObjectList:
		return readObjectList(ctx, arrayIndex)
	case MaxApduLengthAccepted:
		return apdu.Unsigned(d.MaxAPDULengthAccepted), nil
	case SegmentationSupported:
		return apdu.Enumerated(segmentationSupportedNone), nil
	case ApduTimeout:
		return apdu.Unsigned(d.ApduTimeoutMs), nil
	case NumberOfApduRetries:
		return apdu.Unsigned(d.NumberOfApduRetries), nil
	default:
		return apdu.Value{}, ErrUnknownProperty
	}
}

func readObjectList(ctx *Context, arrayIndex uint32) (apdu.Value, error) {
	ids := ctx.Store.Iterate()
	switch {
	case arrayIndex == ArrayIndexAll:
		return apdu.Value{}, errPriorityArrayAll // same "encode as constructed value" signal
	case arrayIndex == 0:
		return apdu.Unsigned(uint32(len(ids))), nil
	case int(arrayIndex) <= len(ids):
		id := ids[arrayIndex-1]
		return apdu.ObjectIdentifier(apdu.ObjectID{Type: uint16(id.Type), Instance: id.Instance}), nil
	default:
		return apdu.Value{}, ErrInvalidArrayIndex
	}
}

// ReadObjectListElements returns every object-identifier in the store, for
// the constructed encoding of a full object-list read.
func ReadObjectListElements(ctx *Context) []apdu.Value {
	ids := ctx.Store.Iterate()
	out := make([]apdu.Value, len(ids))
	for i, id := range ids {
		out[i] = apdu.ObjectIdentifier(apdu.ObjectID{Type: uint16(id.Type), Instance: id.Instance})
	}
	return out
}
