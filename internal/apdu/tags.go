// Package apdu implements the BACnet tagged-value codec (ASHRAE 135 clause 20):
// application tags, context-specific tags, and the opening/closing tags used to
// bracket constructed data.
package apdu

import (
	"bytes"

	"github.com/kcooper33/bacnet4linux-go/pkg/bacnet"
)

// TagClass is the class bit (bit 3) of a tag's control byte.
type TagClass int8

const (
	TagApplicationClass     TagClass = 0
	TagContextSpecificClass TagClass = 1
)

// TagNumberType is the application tag number, overloaded as the data type for
// application-class tags. For context-specific tags the tag number instead
// denotes position within the enclosing constructed value.
type TagNumberType uint8

const (
	TagNumberDataNull            TagNumberType = iota // 0
	TagNumberDataBool                                 // 1
	TagNumberDataUnsignedInt                          // 2
	TagNumberDataSignedInt                             // 3
	TagNumberDataReal                                  // 4
	TagNumberDataDouble                                // 5
	TagNumberDataOctetString                           // 6
	TagNumberDataCharacterString                       // 7
	TagNumberDataBitString                             // 8
	TagNumberDataEnumerated                            // 9
	TagNumberDataDate                                  // 10
	TagNumberDataTime                                  // 11
	TagNumberDataObjectID                              // 12
)

// lvt values 5, 6, 7 are reserved meanings for the low three bits of the
// control byte: 5 means "length follows", 6/7 mark opening/closing tags.
const (
	lvtExtendedLength = 5
	lvtOpeningTag     = 6
	lvtClosingTag     = 7
)

// encodeTagNumber ORs the tag number into control and returns any trailing
// bytes needed (the tag number itself, when it does not fit in the 4-bit
// field). Tag numbers 0-14 fit directly; 15 and above set the nibble to 0xF
// and are carried in one extra byte.
func encodeTagNumber(control *byte, tagNumber uint8) []byte {
	if tagNumber <= 14 {
		*control |= tagNumber << 4
		return nil
	}
	*control |= 0xF0
	return []byte{tagNumber}
}

// decodeTagNumber reads the tag number out of control, consuming one more
// byte from buf when the nibble indicates overflow (0xF).
func decodeTagNumber(control byte, buf *bytes.Buffer) (uint8, error) {
	nibble := control >> 4
	if nibble != 0x0F {
		return nibble, nil
	}
	b, err := buf.ReadByte()
	if err != nil {
		return 0, bacnet.ErrInsufficientData
	}
	return b, nil
}

// encodeClass ORs the class bit into control.
func encodeClass(control *byte, class TagClass) {
	*control |= byte(class) << 3
}

// decodeClass reads the class bit out of control.
func decodeClass(control byte) TagClass {
	if control&0x08 != 0 {
		return TagContextSpecificClass
	}
	return TagApplicationClass
}

// encodeLength ORs the length/value/type field into control and returns any
// trailing length bytes for lengths that don't fit in 3 bits.
func encodeLength(control *byte, length uint) ([]byte, error) {
	if length <= 4 {
		*control |= byte(length)
		return nil, nil
	}
	*control |= lvtExtendedLength
	switch {
	case length <= 253:
		return []byte{byte(length)}, nil
	case length <= 65535:
		trailing := []byte{254}
		return append(trailing, EncodeUint(length, 2)...), nil
	case length <= 0xFFFFFFFF:
		trailing := []byte{255}
		return append(trailing, EncodeUint(length, 4)...), nil
	default:
		return nil, bacnet.ErrValueTooLarge
	}
}

// decodeLength reads the length/value/type field, consuming the extended
// length bytes from buf when control's low 3 bits equal 5.
func decodeLength(control byte, buf *bytes.Buffer) (uint, error) {
	lvt := control & 0x07
	if lvt < lvtExtendedLength {
		return uint(lvt), nil
	}
	marker, err := buf.ReadByte()
	if err != nil {
		return 0, bacnet.ErrInsufficientData
	}
	switch {
	case marker < 254:
		return uint(marker), nil
	case marker == 254:
		raw := make([]byte, 2)
		n, err := buf.Read(raw)
		if err != nil || n != 2 {
			return 0, bacnet.ErrInsufficientData
		}
		return DecodeUint(raw), nil
	default:
		raw := make([]byte, 4)
		n, err := buf.Read(raw)
		if err != nil || n != 4 {
			return 0, bacnet.ErrInsufficientData
		}
		return DecodeUint(raw), nil
	}
}

// isOpeningLVT/isClosingLVT classify the low 3 bits of a context-specific
// control byte as a constructed-data bracket rather than a length.
func isOpeningLVT(lvt byte) bool { return lvt == lvtOpeningTag }
func isClosingLVT(lvt byte) bool { return lvt == lvtClosingTag }

// GetUnsignedIntByteSize returns the minimum number of bytes needed to hold
// val, per BACnet's "smallest number of octets" rule for Unsigned/Enumerated.
func GetUnsignedIntByteSize(val uint) uint {
	switch {
	case val <= 0xFF:
		return 1
	case val <= 0xFFFF:
		return 2
	case val <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// EncodeUint big-endian encodes val into numBytes bytes. encoding/binary
// doesn't fit here: BACnet wants the smallest number of octets that holds the
// value (1, 2, 3 or 4), not a fixed-width encoding.
func EncodeUint(val uint, numBytes uint) []byte {
	buf := make([]byte, numBytes)
	for i := uint(0); i < numBytes; i++ {
		shift := (numBytes - 1 - i) * 8
		buf[i] = byte(val >> shift)
	}
	return buf
}

// DecodeUint reverses EncodeUint.
func DecodeUint(raw []byte) uint {
	var val uint
	n := len(raw)
	for i := 0; i < n; i++ {
		shift := uint(n-1-i) * 8
		val |= uint(raw[i]) << shift
	}
	return val
}
