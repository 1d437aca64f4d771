package wire

import (
	"encoding/binary"
	"io"
)

// MaxPayload is the largest payload representable in the length field,
// which must also count the command byte.
const MaxPayload = 0xffff - 1

// Frame contains one outbound message: a command byte with optional payload.
type Frame struct {
	Command byte
	Payload []byte
}

// Encode returns wire bytes for sending.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	b := make([]byte, len(f.Payload)+7)
	binary.LittleEndian.PutUint16(b, uint16(1+len(f.Payload)))
	b[2] = f.Command
	copy(b[3:], f.Payload)
	binary.LittleEndian.PutUint32(b[3+len(f.Payload):], Checksum(b[2:3+len(f.Payload)]))
	return b, nil
}

// WriteTo writes encoded bytes.
func (f *Frame) WriteTo(w io.Writer) (n int, err error) {
	b, err := f.Encode()
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

// DecodeLength decodes the little-endian length prefix of an inbound frame.
func DecodeLength(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrTruncatedHeader
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ValidateChecksum recomputes the checksum over content and compares it
// with the claimed value.
func ValidateChecksum(content []byte, claimed uint32) bool {
	return Checksum(content) == claimed
}
