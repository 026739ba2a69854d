package property

// ID is a BACnet property identifier (ASHRAE 135 clause 21, the
// Property_Identifier enumeration). Values below are grounded on the
// retrieval pack's maxzerker-bacnet/constants.go where present; the
// remainder (not carried in that file's subset) use the standard
// enumeration's assigned codes.
type ID uint32

const (
	ActiveText                    ID = 4
	ApplicationSoftwareVersion    ID = 12
	Description                   ID = 28
	FirmwareRevision              ID = 44
	InactiveText                  ID = 46
	ModelName                     ID = 70
	LocalDate                     ID = 56
	LocalTime                     ID = 57
	ObjectIdentifier              ID = 75
	ObjectList                    ID = 76
	ObjectName                    ID = 77
	ObjectType                    ID = 79
	OutOfService                  ID = 81
	PresentValue                  ID = 85
	PriorityArray                 ID = 87
	ProtocolConformanceClass      ID = 95
	ProtocolObjectTypesSupported  ID = 96
	ProtocolServicesSupported     ID = 97
	ProtocolVersion               ID = 98
	RelinquishDefault             ID = 104
	SegmentationSupported         ID = 107
	StatusFlags                   ID = 111
	SystemStatus                  ID = 112
	Units                         ID = 117
	VendorIdentifier              ID = 120
	VendorName                    ID = 121
	ApduTimeout                   ID = 11
	NumberOfApduRetries           ID = 73
	MaxApduLengthAccepted         ID = 62
)
