package link

import (
	"encoding/binary"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openecu/tune.go/pkg/link/wire"
)

// scriptDevice simulates a board behind a port with a read timeout:
// idle Reads tick with (0, nil), and responses are scripted against
// observed writes.
type scriptDevice struct {
	readCh  chan []byte
	onWrite func([]byte)

	writes [][]byte
	lock   sync.Mutex
}

func newScriptDevice() *scriptDevice {
	return &scriptDevice{readCh: make(chan []byte, 8)}
}

func (d *scriptDevice) Read(p []byte) (int, error) {
	select {
	case chunk, ok := <-d.readCh:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, chunk), nil
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (d *scriptDevice) Write(p []byte) (int, error) {
	data := append([]byte(nil), p...)
	d.lock.Lock()
	d.writes = append(d.writes, data)
	d.lock.Unlock()
	if d.onWrite != nil {
		d.onWrite(data)
	}
	return len(p), nil
}

func (d *scriptDevice) writeCount() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.writes)
}

// settle gives the reader pump time to drop the abandoned probe attempt
// before the device starts answering.
func (d *scriptDevice) settle() {
	time.Sleep(50 * time.Millisecond)
}

func identityResponse(text string, corrupt bool) []byte {
	resp := make([]byte, 2, len(text)+6)
	binary.LittleEndian.PutUint16(resp, uint16(len(text)))
	resp = append(resp, text...)
	crc := wire.Checksum([]byte(text))
	if corrupt {
		crc ^= 0xffffffff
	}
	var tail [4]byte
	binary.LittleEndian.PutUint32(tail[:], crc)
	return append(resp, tail[:]...)
}

func identityRequest(t *testing.T) []byte {
	req, err := (&wire.Frame{Command: CommandIdentify}).Encode()
	require.NoError(t, err)
	return req
}

func runHandshake(t *testing.T, dev *scriptDevice) (Outcome, error) {
	r := NewReader(dev)
	defer r.Close()
	return Handshake(dev, r)
}

func TestHandshakeIdentity(t *testing.T) {
	dev := newScriptDevice()
	dev.onWrite = func(b []byte) {
		require.Equal(t, identityRequest(t), b)
		dev.settle()
		resp := identityResponse("RUSEF", false)
		// Deliver in fragments to exercise accumulation.
		dev.readCh <- resp[:2]
		dev.readCh <- resp[2:6]
		dev.readCh <- resp[6:]
	}

	out, err := runHandshake(t, dev)
	require.NoError(t, err)
	require.Equal(t, OutcomeIdentity, out.Kind)
	require.Equal(t, "RUSEF", out.Identity)
	require.Equal(t, []byte("RUSEF"), out.Raw)
	require.True(t, out.ChecksumOK)
	require.Equal(t, 1, dev.writeCount())
}

func TestHandshakeBootloader(t *testing.T) {
	dev := newScriptDevice()
	dev.readCh <- []byte{0x50, 0x00, 0x49, 0x00, 0x02, 0x01, 0xff, 0xff}

	out, err := runHandshake(t, dev)
	require.NoError(t, err)
	require.Equal(t, OutcomeBootloader, out.Kind)
	require.Equal(t, byte(2), out.VersionMajor)
	require.Equal(t, byte(1), out.VersionMinor)
	require.Zero(t, dev.writeCount(), "bootloader path must not write")
}

func TestHandshakeChecksumMismatch(t *testing.T) {
	dev := newScriptDevice()
	dev.onWrite = func([]byte) {
		dev.settle()
		resp := identityResponse("RUSEF", true)
		dev.readCh <- resp[:2]
		dev.readCh <- resp[2:]
	}

	out, err := runHandshake(t, dev)
	require.NoError(t, err)
	require.Equal(t, OutcomeIdentity, out.Kind)
	require.Equal(t, "RUSEF", out.Identity)
	require.False(t, out.ChecksumOK)
}

func TestHandshakeIdentityTimeout(t *testing.T) {
	dev := newScriptDevice()

	out, err := runHandshake(t, dev)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoIdentity, out.Kind)
}

func TestHandshakeStreamClosed(t *testing.T) {
	dev := newScriptDevice()
	dev.onWrite = func([]byte) {
		dev.settle()
		close(dev.readCh)
	}

	out, err := runHandshake(t, dev)
	require.Equal(t, ErrClosed, err)
	require.Equal(t, OutcomeNoIdentity, out.Kind)
}
