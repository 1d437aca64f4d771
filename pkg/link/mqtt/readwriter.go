package mqtt

import (
	"context"
	"io"
	"time"
)

// readTick makes idle Reads return (0, nil) periodically, matching the
// behavior of a serial port with a read timeout.
const readTick = 100 * time.Millisecond

// ReadWriter turns a pub/sub topic pair into a duplex byte stream, so a
// remotely bridged board handshakes through the same code path as a
// local serial port. Publishes arrive whole: a Read smaller than the
// pending publish keeps the remainder buffered for the next call, so
// over-delivered bytes are never dropped.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
	pending  []byte
}

// NewReadWriter creates the ReadWriter.
func NewReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 1),
		doneCh:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForConsole sets topics using the convention for the console side:
// device output arrives on NAME/tx, console input leaves on NAME/rx.
func (p *ReadWriter) ForConsole(device string) *ReadWriter {
	return p.WithTopics(device+"/tx", device+"/rx")
}

// ForDevice sets topics using the convention for the bridge holding the
// physical port: the mirror of ForConsole.
func (p *ReadWriter) ForDevice(device string) *ReadWriter {
	return p.WithTopics(device+"/rx", device+"/tx")
}

// Read implements io.Reader. Reads drain the pending publish before
// waiting for the next one, and tick with (0, nil) while idle. After
// Run stops, already-delivered packets are still drained before EOF.
func (p *ReadWriter) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case pkt := <-p.packetCh:
			p.pending = pkt
		default:
			select {
			case pkt := <-p.packetCh:
				p.pending = pkt
			case <-p.doneCh:
				return 0, io.EOF
			case <-time.After(readTick):
				return 0, nil
			}
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (p *ReadWriter) Write(b []byte) (int, error) {
	token := p.Queue.Pub(p.PubTopic, b)
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Run subscribes and feeds Reads until ctx is canceled. Implements
// Runnable. A failed subscribe is surfaced instead of leaving Reads
// ticking forever.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	defer close(p.doneCh)
	if token := sub.Token; token != nil {
		token.Wait()
		if err := token.Error(); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

// handleMsg may still be invoked by a dispatch racing Run's shutdown;
// doneCh keeps it from blocking (or touching a dead channel) then.
func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	// paho may reuse the payload buffer after the handler returns.
	data := make([]byte, len(payload))
	copy(data, payload)
	select {
	case p.packetCh <- data:
	case <-p.doneCh:
	}
}
