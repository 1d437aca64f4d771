package link

import (
	"bytes"
	"time"

	"github.com/golang/glog"
)

// probeTimeout bounds worst-case detection latency. A board sitting in
// its bootloader announces itself unprompted right after connect; a
// firmware console stays silent, so no data within the bound is the
// normal negative signal, not an error.
const probeTimeout = 500 * time.Millisecond

// probeHeaderSize is the fixed size of the bootloader announcement.
const probeHeaderSize = 8

// bootloaderMagic occupies the first 4 bytes of the announcement.
var bootloaderMagic = []byte{0x50, 0x00, 0x49, 0x00}

// ProbeResult classifies the peer after one probe.
type ProbeResult struct {
	Bootloader   bool
	VersionMajor byte
	VersionMinor byte
}

// Probe performs a single bounded read and classifies the peer. It holds
// no state across calls and never retries: anything short of a full
// header with the magic signature means no bootloader.
func Probe(r *Reader) ProbeResult {
	hdr, err := r.ReadWithin(probeTimeout)
	if err != nil || len(hdr) < probeHeaderSize {
		return ProbeResult{}
	}
	if !bytes.Equal(hdr[:len(bootloaderMagic)], bootloaderMagic) {
		return ProbeResult{}
	}
	glog.V(2).Infof("bootloader v%d.%d announced", hdr[4], hdr[5])
	return ProbeResult{
		Bootloader:   true,
		VersionMajor: hdr[4],
		VersionMinor: hdr[5],
	}
}
