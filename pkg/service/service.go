// Package service is the confirmed-service handler: decodes
// ReadProperty/WriteProperty requests and frames ComplexACK/SimpleACK/Error/
// Abort responses. The link layer has already stripped the NPDU and peeled
// the confirmed-request PDU header down to
// (invoke-id, service-choice, service-request-bytes); this package only ever
// sees that tuple and emits the bytes of the response APDU (header
// included) for the link layer to wrap and address.
package service

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"

	"github.com/kcooper33/bacnet4linux-go/internal/apdu"
	"github.com/kcooper33/bacnet4linux-go/pkg/effector"
	"github.com/kcooper33/bacnet4linux-go/pkg/object"
	"github.com/kcooper33/bacnet4linux-go/pkg/property"
)

// PDU type and service-choice constants; all integers on the wire are
// big-endian.
const (
	pduConfirmedRequest = 0x00
	pduSimpleAck        = 0x20
	pduComplexAck       = 0x30
	pduError            = 0x50
	pduAbort            = 0x70

	ServiceChoiceReadProperty  = 0x0C
	ServiceChoiceWriteProperty = 0x0F

	// Abort reasons: generic "other" and "segmentation-not-supported" are the
	// only two this core ever emits.
	abortReasonOther                  = 0
	abortReasonSegmentationNotSupported = 4

	contextTagObjectID    = 0
	contextTagPropertyID  = 1
	contextTagArrayIndex  = 2
	contextTagValueBracket = 3
	contextTagPriority    = 4
)

// Request is what the link layer hands the core for one confirmed service:
// the (invoke-id, service-choice, service-request-bytes, peer-max-apdu)
// tuple minus the source address, which the link layer retains to route
// the response.
type Request struct {
	InvokeID      uint8
	ServiceChoice byte
	Data          []byte
	PeerMaxAPDU   uint32
}

// Server is the single unified value owning the object store, the Device's
// static configuration, and the effector. Handlers take it by pointer.
type Server struct {
	Store    *object.Store
	Device   property.DeviceInfo
	Effector effector.Effector
	Log      logrus.FieldLogger

	bufPool bytebufferpool.Pool
}

func NewServer(store *object.Store, device property.DeviceInfo, eff effector.Effector, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{Store: store, Device: device, Effector: eff, Log: log}
}

// Handle dispatches one confirmed-service request and returns the bytes of
// the response APDU (ComplexACK, SimpleACK, Error or Abort). It never
// returns a Go error: every failure mode the core can produce has a BACnet
// wire encoding, which is what callers need to send back. The response is
// assembled in a pooled buffer and copied out before the buffer is released,
// since the pool may hand the backing array to another caller afterwards.
func (s *Server) Handle(req Request) []byte {
	buf := s.bufPool.Get()
	defer s.bufPool.Put(buf)

	switch req.ServiceChoice {
	case ServiceChoiceReadProperty:
		body, err := s.handleReadProperty(req.Data)
		if err != nil {
			return s.frameOutcome(req, err)
		}
		return s.frameComplexAck(buf, req, body)
	case ServiceChoiceWriteProperty:
		if err := s.handleWriteProperty(req.Data); err != nil {
			return s.frameOutcome(req, err)
		}
		return s.frameSimpleAck(req)
	default:
		return s.frameAbort(req.InvokeID, abortReasonOther)
	}
}

// frameOutcome frames a typed *property.Error as a BACnet-Error PDU, or
// anything else (a decode failure) as an Abort::Other.
func (s *Server) frameOutcome(req Request, err error) []byte {
	if perr, ok := err.(*property.Error); ok {
		return s.frameError(req, perr)
	}
	s.Log.WithError(err).Debug("request decode failed, emitting Abort::Other")
	return s.frameAbort(req.InvokeID, abortReasonOther)
}

func (s *Server) frameSimpleAck(req Request) []byte {
	return []byte{pduSimpleAck, req.InvokeID, req.ServiceChoice}
}

// frameComplexAck prepends the 3-byte header to body and enforces the
// APDU-size limit against the peer's max-APDU. buf is the pooled scratch
// buffer the caller will release; the returned slice is a fresh copy safe
// to hold after that release.
func (s *Server) frameComplexAck(buf *bytebufferpool.ByteBuffer, req Request, body []byte) []byte {
	total := 3 + len(body)
	if req.PeerMaxAPDU != 0 && uint32(total) > req.PeerMaxAPDU {
		return s.frameAbort(req.InvokeID, abortReasonSegmentationNotSupported)
	}
	buf.Reset()
	buf.WriteByte(pduComplexAck)
	buf.WriteByte(req.InvokeID)
	buf.WriteByte(req.ServiceChoice)
	buf.Write(body)
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func (s *Server) frameError(req Request, perr *property.Error) []byte {
	out := []byte{pduError, req.InvokeID, req.ServiceChoice}
	var classBuf, codeBuf [4]byte
	n, _ := apdu.EncodeApplication(classBuf[:], apdu.Enumerated(uint32(perr.Class)))
	out = append(out, classBuf[:n]...)
	n, _ = apdu.EncodeApplication(codeBuf[:], apdu.Enumerated(uint32(perr.Code)))
	out = append(out, codeBuf[:n]...)
	return out
}

func (s *Server) frameAbort(invokeID uint8, reason byte) []byte {
	return []byte{pduAbort, invokeID, reason}
}

// handleReadProperty decodes a ReadProperty request and encodes its response
// body (everything after the 3-byte PDU header): [0] object-id,
// [1] property-id, optional [2] array-index, [3] opening, value, [3] closing.
func (s *Server) handleReadProperty(data []byte) ([]byte, error) {
	objID, propID, arrayIndex, _, err := decodeReadRequest(data)
	if err != nil {
		return nil, err
	}

	ctx := &property.Context{Store: s.Store, Device: s.Device}
	var valueBytes []byte
	v, readErr := property.Read(ctx, objID, propID, arrayIndex)
	switch {
	case readErr == nil:
		buf := make([]byte, 256)
		var n int
		n, err = apdu.EncodeApplication(buf, v)
		valueBytes = buf[:n]
	case property.IsPriorityArrayAll(readErr):
		// Read signals "constructed encoding required" instead of a scalar
		// value for PriorityArray/ObjectList with no/ALL array index; the
		// guards that make this signal valid (object exists, property
		// applies, commandable) already ran inside Read.
		valueBytes, err = s.encodeConstructedList(ctx, objID, propID)
	default:
		err = readErr
	}
	if err != nil {
		return nil, err
	}

	var out []byte
	out = appendObjectID(out, objID)
	out = appendPropertyID(out, propID)
	if arrayIndex != property.ArrayIndexAll {
		out = appendArrayIndex(out, arrayIndex)
	}
	open := make([]byte, 2)
	n, _ := apdu.EncodeOpeningTag(open, contextTagValueBracket)
	out = append(out, open[:n]...)
	out = append(out, valueBytes...)
	closing := make([]byte, 2)
	n, _ = apdu.EncodeClosingTag(closing, contextTagValueBracket)
	out = append(out, closing[:n]...)
	return out, nil
}

// encodeConstructedList encodes PriorityArray/ObjectList's "all elements"
// shape: a sequence of application-tagged values (no per-element brackets;
// the outer [3] wrapper added by the caller is the only bracket needed).
func (s *Server) encodeConstructedList(ctx *property.Context, objID object.ID, propID property.ID) ([]byte, error) {
	var elems []apdu.Value
	if propID == property.PriorityArray {
		arr, err := property.ReadPriorityArrayElements(ctx, objID)
		if err != nil {
			return nil, err
		}
		elems = arr[:]
	} else {
		elems = property.ReadObjectListElements(ctx)
	}
	var out []byte
	buf := make([]byte, 256)
	for _, v := range elems {
		n, err := apdu.EncodeApplication(buf, v)
		if err != nil {
			return nil, err
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}

// handleWriteProperty decodes and applies a WriteProperty request, invoking
// the effector on success.
func (s *Server) handleWriteProperty(data []byte) error {
	objID, propID, arrayIndex, value, priorityArg, err := decodeWriteRequest(data)
	if err != nil {
		return err
	}
	ctx := &property.Context{Store: s.Store, Device: s.Device}
	ew, err := property.Write(ctx, objID, propID, arrayIndex, value, priorityArg)
	if err != nil {
		return err
	}
	if ew != nil && s.Effector != nil {
		effVal := effector.Value{Binary: ew.Binary}
		if ew.Binary {
			effVal.Bit = uint8(ew.Value.Enumerated)
		} else {
			effVal.Analog = ew.Value.Real
		}
		if werr := s.Effector.Write(ew.Instance, effVal); werr != nil {
			// Effector failures are logged and never surfaced: the priority
			// array has already committed state.
			s.Log.WithError(werr).WithField("instance", ew.Instance).Warn("effector write failed")
		}
	}
	return nil
}

func decodeReadRequest(data []byte) (object.ID, property.ID, uint32, int, error) {
	n, objVal, err := apdu.DecodeContext(data, contextTagObjectID, apdu.KindObjectIdentifier)
	if err != nil {
		return object.ID{}, 0, 0, 0, errors.Wrap(err, "decoding object-id")
	}
	objID := object.ID{Type: object.Type(objVal.Object.Type), Instance: objVal.Object.Instance}
	offset := n

	n, propVal, err := apdu.DecodeContext(data[offset:], contextTagPropertyID, apdu.KindUnsigned)
	if err != nil {
		return object.ID{}, 0, 0, 0, errors.Wrap(err, "decoding property-id")
	}
	propID := property.ID(propVal.Unsigned)
	offset += n

	arrayIndex := property.ArrayIndexAll
	if offset < len(data) {
		if h, perr := apdu.PeekTag(data[offset:]); perr == nil && h.Class == apdu.TagContextSpecificClass && h.TagNumber == contextTagArrayIndex {
			n, idxVal, err := apdu.DecodeContext(data[offset:], contextTagArrayIndex, apdu.KindUnsigned)
			if err != nil {
				return object.ID{}, 0, 0, 0, errors.Wrap(err, "decoding array-index")
			}
			arrayIndex = idxVal.Unsigned
			offset += n
		}
	}
	return objID, propID, arrayIndex, offset, nil
}

func decodeWriteRequest(data []byte) (object.ID, property.ID, uint32, apdu.Value, *uint8, error) {
	objID, propID, arrayIndex, offset, err := decodeReadRequest(data)
	if err != nil {
		return object.ID{}, 0, 0, apdu.Value{}, nil, err
	}
	if arrayIndex != property.ArrayIndexAll {
		return object.ID{}, 0, 0, apdu.Value{}, nil, property.ErrPropertyIsNotAList
	}

	n, err := apdu.DecodeBracket(data[offset:], contextTagValueBracket, true)
	if err != nil {
		return object.ID{}, 0, 0, apdu.Value{}, nil, errors.Wrap(err, "decoding value opening tag")
	}
	offset += n

	n, value, err := apdu.DecodeApplication(data[offset:])
	if err != nil {
		return object.ID{}, 0, 0, apdu.Value{}, nil, errors.Wrap(err, "decoding value")
	}
	offset += n

	n, err = apdu.DecodeBracket(data[offset:], contextTagValueBracket, false)
	if err != nil {
		return object.ID{}, 0, 0, apdu.Value{}, nil, errors.Wrap(err, "decoding value closing tag")
	}
	offset += n

	var priorityArg *uint8
	if offset < len(data) {
		n, prioVal, err := apdu.DecodeContext(data[offset:], contextTagPriority, apdu.KindUnsigned)
		if err == nil {
			p := uint8(prioVal.Unsigned)
			priorityArg = &p
			offset += n
		}
	}
	return objID, propID, property.ArrayIndexAll, value, priorityArg, nil
}

func appendObjectID(out []byte, id object.ID) []byte {
	buf := make([]byte, 8)
	n, _ := apdu.EncodeContext(buf, contextTagObjectID, apdu.ObjectIdentifier(apdu.ObjectID{Type: uint16(id.Type), Instance: id.Instance}))
	return append(out, buf[:n]...)
}

func appendPropertyID(out []byte, propID property.ID) []byte {
	buf := make([]byte, 8)
	n, _ := apdu.EncodeContext(buf, contextTagPropertyID, apdu.Unsigned(uint32(propID)))
	return append(out, buf[:n]...)
}

func appendArrayIndex(out []byte, idx uint32) []byte {
	buf := make([]byte, 8)
	n, _ := apdu.EncodeContext(buf, contextTagArrayIndex, apdu.Unsigned(idx))
	return append(out, buf[:n]...)
}
