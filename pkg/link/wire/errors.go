package wire

import "errors"

var (
	// ErrTruncatedHeader indicates not enough bytes to decode the length prefix.
	ErrTruncatedHeader = errors.New("truncated header")
	// ErrPayloadTooLarge indicates the payload does not fit the 16-bit length field.
	ErrPayloadTooLarge = errors.New("payload too large")
)
