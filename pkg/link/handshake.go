package link

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/openecu/tune.go/pkg/link/wire"
)

// CommandIdentify requests the firmware signature string.
const CommandIdentify byte = 0x41

// identityTimeout bounds each read of the identity response.
const identityTimeout = 500 * time.Millisecond

// OutcomeKind tells how a handshake concluded.
type OutcomeKind int

const (
	// OutcomeBootloader means the board is in its bootloader.
	OutcomeBootloader OutcomeKind = iota
	// OutcomeIdentity means the firmware answered the identity request.
	OutcomeIdentity
	// OutcomeNoIdentity means identity retrieval failed; the link is
	// still usable for streaming.
	OutcomeNoIdentity
)

// Outcome is the result of a handshake.
type Outcome struct {
	Kind OutcomeKind

	// VersionMajor/VersionMinor are set for OutcomeBootloader.
	VersionMajor byte
	VersionMinor byte

	// Identity is the firmware signature, set for OutcomeIdentity.
	Identity string
	// Raw holds the signature bytes exactly as received.
	Raw []byte
	// ChecksumOK reports whether the trailing checksum matched. A
	// mismatch is surfaced as a warning, not a failure: Identity is
	// still set. Callers that need guaranteed integrity must check
	// this flag (or recompute over Raw) and reject themselves.
	ChecksumOK bool
}

// Handshake probes the peer and, unless it is a bootloader, requests its
// identity. Identity retrieval is best effort: any timeout or malformed
// response yields OutcomeNoIdentity with a nil error, and the caller
// proceeds to streaming regardless. The returned error is non-nil only
// when the transport itself failed (write error, or ErrClosed when the
// stream ended mid-handshake).
func Handshake(rw io.ReadWriter, r *Reader) (Outcome, error) {
	if pr := Probe(r); pr.Bootloader {
		return Outcome{
			Kind:         OutcomeBootloader,
			VersionMajor: pr.VersionMajor,
			VersionMinor: pr.VersionMinor,
		}, nil
	}

	req := &wire.Frame{Command: CommandIdentify}
	if _, err := req.WriteTo(rw); err != nil {
		return Outcome{Kind: OutcomeNoIdentity}, err
	}

	hdr, err := r.ReadExactly(2, identityTimeout)
	if err != nil {
		return noIdentity(err)
	}
	length, err := wire.DecodeLength(hdr)
	if err != nil {
		return Outcome{Kind: OutcomeNoIdentity}, nil
	}
	body, err := r.ReadExactly(int(length)+4, identityTimeout)
	if err != nil {
		return noIdentity(err)
	}

	text := body[:length]
	claimed := binary.LittleEndian.Uint32(body[length:])
	out := Outcome{
		Kind:       OutcomeIdentity,
		Identity:   string(text),
		Raw:        append([]byte(nil), text...),
		ChecksumOK: wire.ValidateChecksum(text, claimed),
	}
	if !out.ChecksumOK {
		glog.Warningf("identity checksum mismatch: claimed %08x, computed %08x",
			claimed, wire.Checksum(text))
	}
	return out, nil
}

func noIdentity(err error) (Outcome, error) {
	out := Outcome{Kind: OutcomeNoIdentity}
	if err == ErrClosed {
		return out, err
	}
	return out, nil
}
