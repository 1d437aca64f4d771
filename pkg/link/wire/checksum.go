package wire

import "hash/crc32"

// checksumTable holds the 256-entry reduction table for the reflected
// polynomial 0xEDB88320, derived once for the process lifetime.
var checksumTable = crc32.MakeTable(crc32.IEEE)

// Checksum computes CRC-32 over b: init 0xFFFFFFFF, table-driven
// reduction per byte, final complement. Matches any standard
// CRC-32/IEEE implementation bit for bit.
func Checksum(b []byte) uint32 {
	return crc32.Checksum(b, checksumTable)
}
