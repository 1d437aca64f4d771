package link

import (
	"context"
	"io"
	"sync"

	"github.com/openecu/tune.go/pkg/link/wire"
)

// Session owns one device connection end to end: it runs the handshake,
// then turns into a pass-through byte pipe. The transport stays open and
// owned by the caller for its whole lifetime; Session only reads and
// writes through it. One Session never outlives its connection, and no
// state is shared between sessions.
type Session struct {
	rw     io.ReadWriter
	reader *Reader

	streamCh chan []byte
	readyCh  chan struct{}

	outcome Outcome
	ready   bool
	lock    sync.RWMutex
}

// NewSession creates a Session over an already-open transport.
func NewSession(rw io.ReadWriter) *Session {
	return &Session{
		rw:       rw,
		reader:   NewReader(rw),
		streamCh: make(chan []byte, 16),
		readyCh:  make(chan struct{}),
	}
}

// Name implements Named.
func (s *Session) Name() string {
	return "link.session"
}

// Outcome returns the handshake outcome. Valid once WaitReady returned.
func (s *Session) Outcome() Outcome {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.outcome
}

// Ready indicates the handshake has concluded.
func (s *Session) Ready() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.ready
}

// WaitReady blocks until the handshake concludes and returns its outcome.
func (s *Session) WaitReady(ctx context.Context) (Outcome, error) {
	select {
	case <-s.readyCh:
		return s.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Stream returns the inbound byte channel of the streaming phase. It is
// closed when the stream ends or Run returns.
func (s *Session) Stream() <-chan []byte {
	return s.streamCh
}

// Write sends raw bytes to the device. Until the handshake concludes the
// sequencer is the only writer, so Write fails with ErrNotReady.
func (s *Session) Write(p []byte) (int, error) {
	if !s.Ready() {
		return 0, ErrNotReady
	}
	return s.rw.Write(p)
}

// SendFrame builds a frame and sends it to the device.
func (s *Session) SendFrame(command byte, payload []byte) error {
	f := &wire.Frame{Command: command, Payload: payload}
	b, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = s.Write(b)
	return err
}

// Run performs the handshake, then pumps inbound bytes to Stream until
// the stream closes or ctx is canceled. Implements Runnable.
func (s *Session) Run(ctx context.Context) error {
	defer s.reader.Close()
	defer close(s.streamCh)

	out, err := Handshake(s.rw, s.reader)
	s.lock.Lock()
	s.outcome, s.ready = out, true
	s.lock.Unlock()
	close(s.readyCh)
	if err != nil {
		return err
	}

	for {
		data, err := s.reader.next(ctx)
		if len(data) > 0 {
			select {
			case s.streamCh <- data:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			return err
		}
	}
}
