package property

// Class and Code are the two halves of a BACnet Error APDU's parameters
// (ASHRAE 135 clause 18, Error_Class and Error_Code). The dispatcher never
// returns a bare string error for a typed failure; it returns an *Error so
// the service handler can frame a BACnet-Error PDU directly from Class/Code.
type Class uint8

const (
	ClassObject   Class = 1
	ClassProperty Class = 2
	ClassServices Class = 5
)

func (c Class) String() string {
	switch c {
	case ClassObject:
		return "object"
	case ClassProperty:
		return "property"
	case ClassServices:
		return "services"
	default:
		return "unknown"
	}
}

type Code uint8

const (
	CodeUnknownObject            Code = 31
	CodeUnknownProperty          Code = 32
	CodeInvalidArrayIndex        Code = 42
	CodeInvalidDataType          Code = 9
	CodeValueOutOfRange          Code = 37
	CodeWriteAccessDenied        Code = 40
	CodeMissingRequiredParameter Code = 16
	CodePropertyIsNotAList       Code = 22
)

func (c Code) String() string {
	switch c {
	case CodeUnknownObject:
		return "unknown-object"
	case CodeUnknownProperty:
		return "unknown-property"
	case CodeInvalidArrayIndex:
		return "invalid-array-index"
	case CodeInvalidDataType:
		return "invalid-data-type"
	case CodeValueOutOfRange:
		return "value-out-of-range"
	case CodeWriteAccessDenied:
		return "write-access-denied"
	case CodeMissingRequiredParameter:
		return "missing-required-parameter"
	case CodePropertyIsNotAList:
		return "property-is-not-a-list"
	default:
		return "unknown"
	}
}

// Error is the closed error type the dispatcher returns for every typed
// failure, carrying the (error-class, error-code) pair the wire protocol
// needs. It is never constructed from a bare string; each sentinel below
// names the (Class, Code) pair a caller needs.
type Error struct {
	Class Class
	Code  Code
}

func (e *Error) Error() string {
	return e.Class.String() + ": " + e.Code.String()
}

var (
	ErrUnknownObject          = &Error{ClassObject, CodeUnknownObject}
	ErrUnknownProperty        = &Error{ClassProperty, CodeUnknownProperty}
	ErrInvalidArrayIndex      = &Error{ClassProperty, CodeInvalidArrayIndex}
	ErrInvalidDataType        = &Error{ClassProperty, CodeInvalidDataType}
	ErrValueOutOfRange        = &Error{ClassProperty, CodeValueOutOfRange}
	ErrWriteAccessDenied      = &Error{ClassProperty, CodeWriteAccessDenied}
	ErrMissingParameter       = &Error{ClassServices, CodeMissingRequiredParameter}
	ErrPropertyIsNotAList     = &Error{ClassServices, CodePropertyIsNotAList}
)
