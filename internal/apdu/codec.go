package apdu

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/kcooper33/bacnet4linux-go/pkg/bacnet"
)

// TagHeader is the decoded form of a tag's control byte (plus any overflow
// tag-number byte), without its length/value payload. Callers that need to
// peek at a tag before committing to a type-specific decode (the service
// handler checking for an optional `[2]`/`[4]` context tag, or looking for the
// `[3]` opening/closing bracket) use PeekTag.
type TagHeader struct {
	Class     TagClass
	TagNumber uint8
	LVT       byte
	HeaderLen int
}

func (h TagHeader) IsOpening() bool { return h.Class == TagContextSpecificClass && isOpeningLVT(h.LVT) }
func (h TagHeader) IsClosing() bool { return h.Class == TagContextSpecificClass && isClosingLVT(h.LVT) }

// PeekTag decodes the next tag's control byte (and overflow tag-number byte,
// if present) without consuming its length/value payload. An empty slice, or
// a missing overflow tag-number byte, yields bacnet.ErrTruncated rather than
// the io.EOF bytes.Buffer would report; callers use HeaderLen to know how
// much to skip.
func PeekTag(data []byte) (TagHeader, error) {
	if len(data) == 0 {
		return TagHeader{}, bacnet.ErrTruncated
	}
	buf := bytes.NewBuffer(data)
	control, _ := buf.ReadByte()
	tagNumber, err := decodeTagNumber(control, buf)
	if err != nil {
		return TagHeader{}, bacnet.ErrTruncated
	}
	return TagHeader{
		Class:     decodeClass(control),
		TagNumber: tagNumber,
		LVT:       control & 0x07,
		HeaderLen: len(data) - buf.Len(),
	}, nil
}

// EncodeOpeningTag and EncodeClosingTag write the bracket tags used to
// delimit constructed (context-specific) data, e.g. the `[3]` wrapper around
// a ReadProperty response's value.
func EncodeOpeningTag(buf []byte, tagNumber uint8) (int, error) {
	return encodeBracket(buf, tagNumber, lvtOpeningTag)
}

func EncodeClosingTag(buf []byte, tagNumber uint8) (int, error) {
	return encodeBracket(buf, tagNumber, lvtClosingTag)
}

func encodeBracket(buf []byte, tagNumber uint8, lvt byte) (int, error) {
	var out bytes.Buffer
	var control byte
	trailing := encodeTagNumber(&control, tagNumber)
	encodeClass(&control, TagContextSpecificClass)
	control |= lvt
	out.WriteByte(control)
	out.Write(trailing)
	return copyOut(buf, out.Bytes())
}

// DecodeBracket consumes an opening or closing bracket for tagNumber,
// returning the number of bytes consumed. It fails with ErrInvalidTag if the
// next tag isn't a context-specific bracket for tagNumber in the requested
// direction.
func DecodeBracket(data []byte, tagNumber uint8, opening bool) (int, error) {
	h, err := PeekTag(data)
	if err != nil {
		return 0, err
	}
	if h.Class != TagContextSpecificClass || h.TagNumber != tagNumber {
		return 0, bacnet.ErrInvalidTag
	}
	if opening && !h.IsOpening() {
		return 0, bacnet.ErrInvalidTag
	}
	if !opening && !h.IsClosing() {
		return 0, bacnet.ErrInvalidTag
	}
	return h.HeaderLen, nil
}

func copyOut(dst, src []byte) (int, error) {
	if len(src) > len(dst) {
		return 0, bacnet.ErrOverflow
	}
	copy(dst, src)
	return len(src), nil
}

// EncodeApplication encodes v as an application tag into buf.
func EncodeApplication(buf []byte, v Value) (int, error) {
	var out bytes.Buffer
	if err := encodeInto(&out, TagApplicationClass, 0, v); err != nil {
		return 0, err
	}
	return copyOut(buf, out.Bytes())
}

// EncodeContext encodes v as a context-specific tag numbered tagNumber into
// buf. Unlike application tags, a context-specific Boolean's value is an
// explicit one-byte payload rather than being folded into the LVT field,
// since the tag number there denotes position, not type.
func EncodeContext(buf []byte, tagNumber uint8, v Value) (int, error) {
	var out bytes.Buffer
	if err := encodeInto(&out, TagContextSpecificClass, tagNumber, v); err != nil {
		return 0, err
	}
	return copyOut(buf, out.Bytes())
}

func encodeInto(out *bytes.Buffer, class TagClass, tagNumber uint8, v Value) error {
	switch v.Kind {
	case KindNull:
		writeTag(out, class, tagNumber, 0, nil)
	case KindBoolean:
		if class == TagApplicationClass {
			var lvt byte
			if v.Bool {
				lvt = 1
			}
			writeTag(out, class, tagNumber, lvt, nil)
		} else {
			payload := []byte{0}
			if v.Bool {
				payload[0] = 1
			}
			writeTag(out, class, tagNumber, 1, payload)
		}
	case KindUnsigned:
		payload := EncodeUint(uint(v.Unsigned), GetUnsignedIntByteSize(uint(v.Unsigned)))
		writeTag(out, class, tagNumber, byte(len(payload)), payload)
	case KindSigned:
		payload := encodeSigned(v.Signed)
		writeTag(out, class, tagNumber, byte(len(payload)), payload)
	case KindReal:
		var payload [4]byte
		putUint32(payload[:], math.Float32bits(v.Real))
		writeTag(out, class, tagNumber, 4, payload[:])
	case KindCharacterString:
		payload := append([]byte{0}, []byte(v.Text)...)
		writeTagExtLen(out, class, tagNumber, uint(len(payload)), payload)
	case KindBitString:
		payload := append([]byte{v.BitString.UnusedBits}, v.BitString.Bytes...)
		writeTagExtLen(out, class, tagNumber, uint(len(payload)), payload)
	case KindEnumerated:
		payload := EncodeUint(uint(v.Enumerated), GetUnsignedIntByteSize(uint(v.Enumerated)))
		writeTag(out, class, tagNumber, byte(len(payload)), payload)
	case KindDate:
		payload := []byte{encodeDateYear(v.Date.Year), v.Date.Month, v.Date.Day, v.Date.Weekday}
		writeTag(out, class, tagNumber, 4, payload)
	case KindTime:
		payload := []byte{v.Time.Hour, v.Time.Minute, v.Time.Second, v.Time.Hundredths}
		writeTag(out, class, tagNumber, 4, payload)
	case KindObjectIdentifier:
		var payload [4]byte
		putUint32(payload[:], (uint32(v.Object.Type)<<22)|(v.Object.Instance&0x3FFFFF))
		writeTag(out, class, tagNumber, 4, payload[:])
	default:
		return errors.Wrapf(bacnet.ErrInvalidTag, "unknown value kind %v", v.Kind)
	}
	return nil
}

// writeTag writes a tag whose length is known to be <=4 (the common case for
// fixed-width primitives), setting the LVT field directly. lvt must be <=4.
func writeTag(out *bytes.Buffer, class TagClass, tagNumber uint8, lvt byte, payload []byte) {
	var control byte
	trailing := encodeTagNumber(&control, tagNumber)
	encodeClass(&control, class)
	control |= lvt
	out.WriteByte(control)
	out.Write(trailing)
	out.Write(payload)
}

// writeTagExtLen writes a tag whose payload length may require the extended
// length encoding (character strings, bit strings).
func writeTagExtLen(out *bytes.Buffer, class TagClass, tagNumber uint8, length uint, payload []byte) {
	var control byte
	trailing := encodeTagNumber(&control, tagNumber)
	encodeClass(&control, class)
	// encodeLength only fails above 2^32-1, unreachable for our payload sizes.
	lengthBytes, _ := encodeLength(&control, length)
	out.WriteByte(control)
	out.Write(trailing)
	out.Write(lengthBytes)
	out.Write(payload)
}

func putUint32(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

func encodeSigned(v int32) []byte {
	n := signedByteSize(v)
	buf := make([]byte, n)
	uv := uint32(v)
	for i := 0; i < n; i++ {
		shift := uint(n-1-i) * 8
		buf[i] = byte(uv >> shift)
	}
	return buf
}

func signedByteSize(v int32) int {
	switch {
	case v >= -128 && v <= 127:
		return 1
	case v >= -32768 && v <= 32767:
		return 2
	case v >= -8388608 && v <= 8388607:
		return 3
	default:
		return 4
	}
}

func decodeSigned(data []byte) int32 {
	var v int64
	if len(data) > 0 && data[0]&0x80 != 0 {
		v = -1
	}
	for _, b := range data {
		v = (v << 8) | int64(b)
	}
	return int32(v)
}

func encodeDateYear(year int) byte {
	if year == 0 {
		return 0xFF
	}
	return byte(year - 1900)
}

func decodeDateYear(b byte) int {
	if b == 0xFF {
		return 0
	}
	return int(b) + 1900
}

// DecodeApplication decodes the next application tag in data, returning the
// number of bytes consumed.
func DecodeApplication(data []byte) (int, Value, error) {
	h, err := PeekTag(data)
	if err != nil {
		return 0, Value{}, err
	}
	if h.Class != TagApplicationClass {
		return 0, Value{}, bacnet.ErrInvalidTag
	}
	tag := TagNumberType(h.TagNumber)
	if tag == TagNumberDataBool {
		return h.HeaderLen, Boolean(h.LVT == 1), nil
	}
	return decodeTagged(data, h, applicationKind(tag))
}

// DecodeContext decodes a context-specific tag numbered tagNumber in data,
// interpreting its payload as kind. Kind must be supplied by the caller:
// unlike application tags, a context-specific tag number denotes position,
// not type, so nothing in the wire bytes says what type the payload is.
func DecodeContext(data []byte, tagNumber uint8, kind Kind) (int, Value, error) {
	h, err := PeekTag(data)
	if err != nil {
		return 0, Value{}, err
	}
	if h.Class != TagContextSpecificClass || h.TagNumber != tagNumber {
		return 0, Value{}, bacnet.ErrInvalidTag
	}
	if h.IsOpening() || h.IsClosing() {
		return 0, Value{}, bacnet.ErrInvalidTag
	}
	if kind == KindBoolean {
		if h.LVT != 1 {
			return 0, Value{}, bacnet.ErrInvalidLength
		}
		if len(data) < h.HeaderLen+1 {
			return 0, Value{}, bacnet.ErrTruncated
		}
		b := data[h.HeaderLen]
		return h.HeaderLen + 1, Boolean(b == 1), nil
	}
	return decodeTagged(data, h, kind)
}

func applicationKind(tag TagNumberType) Kind {
	switch tag {
	case TagNumberDataNull:
		return KindNull
	case TagNumberDataUnsignedInt:
		return KindUnsigned
	case TagNumberDataSignedInt:
		return KindSigned
	case TagNumberDataReal:
		return KindReal
	case TagNumberDataCharacterString:
		return KindCharacterString
	case TagNumberDataBitString:
		return KindBitString
	case TagNumberDataEnumerated:
		return KindEnumerated
	case TagNumberDataDate:
		return KindDate
	case TagNumberDataTime:
		return KindTime
	case TagNumberDataObjectID:
		return KindObjectIdentifier
	default:
		return Kind(0xFF)
	}
}

// decodeTagged reads the length and payload following an already-peeked
// header and interprets the payload as kind.
func decodeTagged(data []byte, h TagHeader, kind Kind) (int, Value, error) {
	if kind == Kind(0xFF) {
		return 0, Value{}, bacnet.ErrInvalidTag
	}
	buf := bytes.NewBuffer(data[h.HeaderLen:])
	length, err := decodeLength(h.LVT, buf)
	if err != nil {
		return 0, Value{}, err
	}
	consumedLenBytes := len(data[h.HeaderLen:]) - buf.Len()
	payloadStart := h.HeaderLen + consumedLenBytes
	payloadEnd := payloadStart + int(length)
	if payloadEnd > len(data) {
		return 0, Value{}, bacnet.ErrTruncated
	}
	payload := data[payloadStart:payloadEnd]
	v, err := decodePayload(kind, payload)
	if err != nil {
		return 0, Value{}, err
	}
	return payloadEnd, v, nil
}

func decodePayload(kind Kind, payload []byte) (Value, error) {
	switch kind {
	case KindNull:
		return Null(), nil
	case KindUnsigned:
		return Unsigned(uint32(DecodeUint(payload))), nil
	case KindSigned:
		return Signed(decodeSigned(payload)), nil
	case KindReal:
		if len(payload) != 4 {
			return Value{}, bacnet.ErrInvalidLength
		}
		bits := uint32(DecodeUint(payload))
		return Real(math.Float32frombits(bits)), nil
	case KindCharacterString:
		if len(payload) < 1 {
			return Value{}, bacnet.ErrInvalidLength
		}
		if payload[0] != 0 {
			return Value{}, errors.Wrap(bacnet.ErrInvalidData, "unsupported character set")
		}
		return CharacterString(string(payload[1:])), nil
	case KindBitString:
		if len(payload) < 1 {
			return Value{}, bacnet.ErrInvalidLength
		}
		return BitString(BitStringValue{UnusedBits: payload[0], Bytes: payload[1:]}), nil
	case KindEnumerated:
		return Enumerated(uint32(DecodeUint(payload))), nil
	case KindDate:
		if len(payload) != 4 {
			return Value{}, bacnet.ErrInvalidLength
		}
		return Date(DateValue{Year: decodeDateYear(payload[0]), Month: payload[1], Day: payload[2], Weekday: payload[3]}), nil
	case KindTime:
		if len(payload) != 4 {
			return Value{}, bacnet.ErrInvalidLength
		}
		return Time(TimeValue{Hour: payload[0], Minute: payload[1], Second: payload[2], Hundredths: payload[3]}), nil
	case KindObjectIdentifier:
		if len(payload) != 4 {
			return Value{}, bacnet.ErrInvalidLength
		}
		raw := uint32(DecodeUint(payload))
		return ObjectIdentifier(ObjectID{Type: uint16(raw >> 22), Instance: raw & 0x3FFFFF}), nil
	default:
		return Value{}, bacnet.ErrInvalidTag
	}
}
