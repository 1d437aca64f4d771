// Package wire implements the byte layout of the console protocol.
package wire

// Every frame on the link is length-delimited with a trailing CRC:
//
//	length   u16 little-endian, counts command+payload only
//	command  u8
//	payload  0..n bytes
//	crc      u32 little-endian over command+payload
//
// The length field never includes itself or the crc. Inbound identity
// responses use the same layout without the command byte: the length
// counts the text, and the crc covers the text.
//
// This package is pure: it computes values and reports facts. Deciding
// whether a bad checksum or a short header is fatal belongs to the
// handshake sequencer.
