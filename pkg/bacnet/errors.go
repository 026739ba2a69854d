package bacnet

import (
	"errors"
)

var (
	ErrInvalidData      = errors.New("invalid data")
	ErrInsufficientData = errors.New("unexpected end of data")
	ErrValueTooLarge    = errors.New("value too large for context")
	ErrNotImplemented   = errors.New("not implemented")

	// ErrInvalidTag, ErrInvalidLength and ErrTruncated are the decode-primitive
	// errors the tag codec (internal/apdu) returns; ErrOverflow is returned by
	// encode primitives when the caller-supplied buffer is too small.
	ErrInvalidTag    = errors.New("invalid or unexpected tag")
	ErrInvalidLength = errors.New("invalid tag length")
	ErrTruncated     = errors.New("truncated tag data")
	ErrOverflow      = errors.New("buffer too small")
)
