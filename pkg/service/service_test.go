package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcooper33/bacnet4linux-go/internal/apdu"
	"github.com/kcooper33/bacnet4linux-go/pkg/effector"
	"github.com/kcooper33/bacnet4linux-go/pkg/object"
	"github.com/kcooper33/bacnet4linux-go/pkg/priority"
	"github.com/kcooper33/bacnet4linux-go/pkg/property"
)

func newTestServer(t *testing.T) (*Server, *effector.Recorder) {
	store := object.NewStore()
	require.NoError(t, store.Insert(&object.Record{
		ID:           object.ID{Type: object.TypeBinaryOutput, Instance: 4018},
		Name:         "relay-1",
		PresentValue: apdu.Enumerated(0),
		ActiveText:   "ON",
		InactiveText: "OFF",
		Priorities:   priority.NewArray(apdu.Enumerated(0)),
	}))
	rec := effector.NewRecorder()
	srv := NewServer(store, property.DeviceInfo{
		Instance:              260,
		Description:           "test device",
		VendorIdentifier:      999,
		MaxAPDULengthAccepted: 1476,
	}, rec, nil)
	return srv, rec
}

func appendTag(t *testing.T, out []byte, encode func([]byte) (int, error)) []byte {
	t.Helper()
	buf := make([]byte, 64)
	n, err := encode(buf)
	require.NoError(t, err)
	return append(out, buf[:n]...)
}

func readPropertyRequest(t *testing.T, objType object.Type, instance uint32, propID property.ID) []byte {
	var data []byte
	data = appendTag(t, data, func(b []byte) (int, error) {
		return apdu.EncodeContext(b, contextTagObjectID, apdu.ObjectIdentifier(apdu.ObjectID{Type: uint16(objType), Instance: instance}))
	})
	data = appendTag(t, data, func(b []byte) (int, error) {
		return apdu.EncodeContext(b, contextTagPropertyID, apdu.Unsigned(uint32(propID)))
	})
	return data
}

func writePropertyRequest(t *testing.T, objType object.Type, instance uint32, propID property.ID, value apdu.Value, prio *uint8) []byte {
	data := readPropertyRequest(t, objType, instance, propID)
	data = appendTag(t, data, func(b []byte) (int, error) { return apdu.EncodeOpeningTag(b, contextTagValueBracket) })
	data = appendTag(t, data, func(b []byte) (int, error) { return apdu.EncodeApplication(b, value) })
	data = appendTag(t, data, func(b []byte) (int, error) { return apdu.EncodeClosingTag(b, contextTagValueBracket) })
	if prio != nil {
		data = appendTag(t, data, func(b []byte) (int, error) {
			return apdu.EncodeContext(b, contextTagPriority, apdu.Unsigned(uint32(*prio)))
		})
	}
	return data
}

func TestHandleReadPropertyDeviceObjectIdentifier(t *testing.T) {
	srv, _ := newTestServer(t)
	req := Request{
		InvokeID:      7,
		ServiceChoice: ServiceChoiceReadProperty,
		Data:          readPropertyRequest(t, object.TypeDevice, 260, property.ObjectIdentifier),
		PeerMaxAPDU:   1476,
	}
	resp := srv.Handle(req)
	require.True(t, len(resp) > 3)
	assert.Equal(t, byte(pduComplexAck), resp[0])
	assert.Equal(t, byte(7), resp[1])
	assert.Equal(t, byte(ServiceChoiceReadProperty), resp[2])

	n, objVal, err := apdu.DecodeContext(resp[3:], contextTagObjectID, apdu.KindObjectIdentifier)
	require.NoError(t, err)
	assert.Equal(t, apdu.ObjectID{Type: 8, Instance: 260}, objVal.Object)

	_, propVal, err := apdu.DecodeContext(resp[3+n:], contextTagPropertyID, apdu.KindUnsigned)
	require.NoError(t, err)
	assert.Equal(t, uint32(property.ObjectIdentifier), propVal.Unsigned)
}

func TestHandleReadPropertyUnknownObjectReturnsError(t *testing.T) {
	srv, _ := newTestServer(t)
	req := Request{
		InvokeID:      1,
		ServiceChoice: ServiceChoiceReadProperty,
		Data:          readPropertyRequest(t, object.TypeBinaryOutput, 9999, property.PresentValue),
	}
	resp := srv.Handle(req)
	require.Len(t, resp, 3+2+2)
	assert.Equal(t, byte(pduError), resp[0])
	assert.Equal(t, byte(1), resp[1])

	_, classVal, err := apdu.DecodeApplication(resp[3:])
	require.NoError(t, err)
	assert.Equal(t, uint32(property.ClassObject), classVal.Enumerated)
}

func TestHandleReadPropertyGarbageIsAbort(t *testing.T) {
	srv, _ := newTestServer(t)
	req := Request{
		InvokeID:      3,
		ServiceChoice: ServiceChoiceReadProperty,
		Data:          []byte{0xFF},
	}
	resp := srv.Handle(req)
	assert.Equal(t, []byte{pduAbort, 3, abortReasonOther}, resp)
}

func TestHandleReadPropertyOversizedIsAbortSegmentation(t *testing.T) {
	srv, _ := newTestServer(t)
	req := Request{
		InvokeID:      4,
		ServiceChoice: ServiceChoiceReadProperty,
		Data:          readPropertyRequest(t, object.TypeDevice, 260, property.ObjectIdentifier),
		PeerMaxAPDU:   2,
	}
	resp := srv.Handle(req)
	assert.Equal(t, []byte{pduAbort, 4, abortReasonSegmentationNotSupported}, resp)
}

func TestHandleWritePropertyCommandsEffector(t *testing.T) {
	srv, rec := newTestServer(t)
	prio := uint8(8)
	req := Request{
		InvokeID:      5,
		ServiceChoice: ServiceChoiceWriteProperty,
		Data:          writePropertyRequest(t, object.TypeBinaryOutput, 4018, property.PresentValue, apdu.Enumerated(1), &prio),
	}
	resp := srv.Handle(req)
	assert.Equal(t, []byte{pduSimpleAck, 5, ServiceChoiceWriteProperty}, resp)

	v, err := rec.Read(4018)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v.Bit)
	assert.True(t, v.Binary)
}

func TestHandleWritePropertyDeniedOnNonCommandable(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NoError(t, srv.Store.Insert(&object.Record{
		ID:           object.ID{Type: object.TypeAnalogInput, Instance: 1},
		PresentValue: apdu.Real(0),
	}))
	req := Request{
		InvokeID:      6,
		ServiceChoice: ServiceChoiceWriteProperty,
		Data:          writePropertyRequest(t, object.TypeAnalogInput, 1, property.PresentValue, apdu.Real(1), nil),
	}
	resp := srv.Handle(req)
	assert.Equal(t, byte(pduError), resp[0])
}

func TestHandleReadPriorityArrayAll(t *testing.T) {
	srv, _ := newTestServer(t)
	prio := uint8(1)
	writeReq := Request{
		InvokeID:      9,
		ServiceChoice: ServiceChoiceWriteProperty,
		Data:          writePropertyRequest(t, object.TypeBinaryOutput, 4018, property.PresentValue, apdu.Enumerated(1), &prio),
	}
	require.Equal(t, []byte{pduSimpleAck, 9, ServiceChoiceWriteProperty}, srv.Handle(writeReq))

	req := Request{
		InvokeID:      10,
		ServiceChoice: ServiceChoiceReadProperty,
		Data:          readPropertyRequest(t, object.TypeBinaryOutput, 4018, property.PriorityArray),
	}
	resp := srv.Handle(req)
	assert.Equal(t, byte(pduComplexAck), resp[0])

	n, _, err := apdu.DecodeContext(resp[3:], contextTagObjectID, apdu.KindObjectIdentifier)
	require.NoError(t, err)
	offset := 3 + n
	n, _, err = apdu.DecodeContext(resp[offset:], contextTagPropertyID, apdu.KindUnsigned)
	require.NoError(t, err)
	offset += n
	n, err = apdu.DecodeBracket(resp[offset:], contextTagValueBracket, true)
	require.NoError(t, err)
	offset += n
	n, first, err := apdu.DecodeApplication(resp[offset:])
	require.NoError(t, err)
	assert.Equal(t, apdu.Enumerated(1), first)
	offset += n
	for i := 0; i < 15; i++ {
		n, v, err := apdu.DecodeApplication(resp[offset:])
		require.NoError(t, err)
		assert.True(t, v.IsNull())
		offset += n
	}
	n, err = apdu.DecodeBracket(resp[offset:], contextTagValueBracket, false)
	require.NoError(t, err)
	offset += n
	assert.Equal(t, len(resp), offset)
}
