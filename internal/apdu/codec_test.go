package apdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcooper33/bacnet4linux-go/pkg/bacnet"
)

func TestApplicationRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    Value
	}{
		{"null", Null()},
		{"bool true", Boolean(true)},
		{"bool false", Boolean(false)},
		{"unsigned small", Unsigned(4)},
		{"unsigned large", Unsigned(70000)},
		{"signed negative", Signed(-42)},
		{"signed positive", Signed(1000)},
		{"real", Real(42.5)},
		{"character string", CharacterString("BacnetObject")},
		{"bit string", BitString(BitStringValue{UnusedBits: 4, Bytes: []byte{0xF0}})},
		{"enumerated", Enumerated(1)},
		{"date", Date(DateValue{Year: 2024, Month: 3, Day: 15, Weekday: 5})},
		{"time", Time(TimeValue{Hour: 12, Minute: 30, Second: 0, Hundredths: 0})},
		{"object id device", ObjectIdentifier(ObjectID{Type: 8, Instance: 260})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, 64)
			n, err := EncodeApplication(buf, tc.v)
			require.NoError(t, err)

			consumed, decoded, err := DecodeApplication(buf[:n])
			require.NoError(t, err)
			assert.Equal(t, n, consumed, "consumed bytes should equal written bytes")
			assert.Equal(t, tc.v, decoded)
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    Value
	}{
		{"bool", Boolean(true)},
		{"unsigned", Unsigned(260)},
		{"object id", ObjectIdentifier(ObjectID{Type: 8, Instance: 260})},
		{"enumerated", Enumerated(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, 64)
			n, err := EncodeContext(buf, 3, tc.v)
			require.NoError(t, err)

			consumed, decoded, err := DecodeContext(buf[:n], 3, tc.v.Kind)
			require.NoError(t, err)
			assert.Equal(t, n, consumed)
			assert.Equal(t, tc.v, decoded)
		})
	}
}

func TestObjectIdentifierEncoding(t *testing.T) {
	// Device instance 260 (0x104): object-type 8, instance 260 packs to
	// (8<<22)|260 = 0x02000104.
	buf := make([]byte, 8)
	n, err := EncodeContext(buf, 0, ObjectIdentifier(ObjectID{Type: 8, Instance: 260}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0C, 0x02, 0x00, 0x01, 0x04}, buf[:n])
}

func TestEncodeOverflow(t *testing.T) {
	buf := make([]byte, 1)
	_, err := EncodeApplication(buf, CharacterString("too long to fit"))
	assert.ErrorIs(t, err, bacnet.ErrOverflow)
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := DecodeApplication([]byte{0x21}) // unsigned, length 1, no payload
	assert.ErrorIs(t, err, bacnet.ErrTruncated)
}

func TestDecodeContextWrongTagNumber(t *testing.T) {
	buf := make([]byte, 8)
	n, err := EncodeContext(buf, 1, Unsigned(5))
	require.NoError(t, err)
	_, _, err = DecodeContext(buf[:n], 2, KindUnsigned)
	assert.ErrorIs(t, err, bacnet.ErrInvalidTag)
}

func TestOpeningClosingTags(t *testing.T) {
	buf := make([]byte, 4)
	n, err := EncodeOpeningTag(buf, 3)
	require.NoError(t, err)
	consumed, err := DecodeBracket(buf[:n], 3, true)
	require.NoError(t, err)
	assert.Equal(t, n, consumed)

	n, err = EncodeClosingTag(buf, 3)
	require.NoError(t, err)
	consumed, err = DecodeBracket(buf[:n], 3, false)
	require.NoError(t, err)
	assert.Equal(t, n, consumed)

	_, err = DecodeBracket(buf[:n], 3, true)
	assert.ErrorIs(t, err, bacnet.ErrInvalidTag)
}

func TestStatusFlagsBitString(t *testing.T) {
	bs := BitStringValue{UnusedBits: 4, Bytes: []byte{0x00}}
	assert.False(t, bs.Bit(0))
	assert.False(t, bs.Bit(3))
}
