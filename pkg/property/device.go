package property

import "github.com/kcooper33/bacnet4linux-go/internal/apdu"

// servicesSupportedBit indices follow BACnetServicesSupported (ASHRAE 135
// clause 21), a 40-bit enumeration; only the services this core's Device
// object ever advertises are named.
const (
	bitConfirmedCOVNotification = 1
	bitReadProperty             = 12
	bitWriteProperty            = 15
	bitIAm                      = 26
	bitTimeSynchronization      = 32
	bitWhoIs                    = 34
)

// DeviceInfo holds the Device object's fixed, read-only property values.
// Unlike other object types, the Device object's properties come from
// process configuration rather than the object store.
type DeviceInfo struct {
	Instance                   uint32
	Description                string
	VendorIdentifier           uint32
	MaxAPDULengthAccepted      uint32
	ApduTimeoutMs              uint32
	NumberOfApduRetries        uint32
	TimeSynchronizationEnabled bool
	ConfirmedCOVEnabled        bool
}

const (
	deviceObjectName = "BACnet4Linux"
	deviceModelName  = "BACnet4Linux"
	deviceVendorName = "GNU"

	systemStatusOperational      = 0
	segmentationSupportedNone    = 3
	protocolVersion              = 1
	protocolConformanceClass     = 1
)

// protocolServicesSupported builds the fixed services bit-string this core
// advertises: who-is, i-am, read-property, write-property always set, plus
// time-synchronization and confirmed-cov-notification when configured.
func protocolServicesSupported(d DeviceInfo) apdu.Value {
	bytes := make([]byte, 5) // 40 bits
	setBit := func(bit int) {
		bytes[bit/8] |= 0x80 >> uint(bit%8)
	}
	setBit(bitWhoIs)
	setBit(bitIAm)
	setBit(bitReadProperty)
	setBit(bitWriteProperty)
	if d.TimeSynchronizationEnabled {
		setBit(bitTimeSynchronization)
	}
	if d.ConfirmedCOVEnabled {
		setBit(bitConfirmedCOVNotification)
	}
	return apdu.BitString(apdu.BitStringValue{UnusedBits: 0, Bytes: bytes})
}

// protocolObjectTypesSupported sets the bits for the object types this core
// recognizes: Analog-Input(0), Analog-Output(1), Binary-Input(3),
// Binary-Output(4), Device(8).
func protocolObjectTypesSupported() apdu.Value {
	bytes := make([]byte, 8) // covers object types 0-63
	setBit := func(bit int) {
		bytes[bit/8] |= 0x80 >> uint(bit%8)
	}
	setBit(0)
	setBit(1)
	setBit(3)
	setBit(4)
	setBit(8)
	return apdu.BitString(apdu.BitStringValue{UnusedBits: 0, Bytes: bytes})
}
