package link

import (
	"context"
	"io"
	"time"
)

// readChunkSize bounds the size of one delivery from the transport.
const readChunkSize = 512

type readReq struct {
	max    int
	resCh  chan readResult
	cancel <-chan struct{}
}

type readResult struct {
	data []byte
	err  error
}

// Reader issues deadline-bounded reads against a source whose delivery
// timing is outside our control. A single pump goroutine owns all
// underlying Read calls. Each attempt gets a one-shot result slot and an
// abandonment token: when an attempt loses its deadline race, its
// eventual bytes are discarded instead of re-attributed to a later call,
// and the pump drops the attempt at the next idle tick.
//
// Sources should return (0, nil) periodically while idle, the way a
// serial port with a read timeout does; a source that blocks without
// ticks delays abandonment until its in-flight read completes.
type Reader struct {
	src    io.Reader
	reqCh  chan readReq
	doneCh chan struct{}
}

// NewReader creates a Reader and starts its pump.
func NewReader(src io.Reader) *Reader {
	r := &Reader{
		src:    src,
		reqCh:  make(chan readReq),
		doneCh: make(chan struct{}),
	}
	go r.pump()
	return r
}

// Close stops the pump once its in-flight read completes. The underlying
// transport stays open; it belongs to the caller.
func (r *Reader) Close() error {
	close(r.doneCh)
	return nil
}

// ReadWithin performs one logical read raced against a one-shot timer.
// If the timer wins, ErrTimedOut is returned and the in-flight attempt
// is abandoned. A read completing first returns its delivery, which may
// be shorter than requested; end-of-stream maps to ErrClosed.
func (r *Reader) ReadWithin(deadline time.Duration) ([]byte, error) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	return r.readOne(readChunkSize, timer.C, nil)
}

// ReadExactly accumulates deliveries until exactly n bytes are
// collected. The deadline bounds the whole accumulation, not each
// delivery. The pump never reads past n, so excess bytes stay in the
// transport.
func (r *Reader) ReadExactly(n int, deadline time.Duration) ([]byte, error) {
	buf := make([]byte, 0, n)
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for len(buf) < n {
		data, err := r.readOne(n-len(buf), timer.C, nil)
		buf = append(buf, data...)
		if err == ErrClosed && len(buf) >= n {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// next blocks for one delivery with no deadline, used by the streaming
// phase. It returns when data arrives, the stream ends, or ctx is done.
func (r *Reader) next(ctx context.Context) ([]byte, error) {
	return r.readOne(readChunkSize, nil, ctx)
}

func (r *Reader) readOne(max int, timeout <-chan time.Time, ctx context.Context) ([]byte, error) {
	var ctxDone <-chan struct{}
	if ctx != nil {
		ctxDone = ctx.Done()
	}
	cancel := make(chan struct{})
	req := readReq{max: max, resCh: make(chan readResult, 1), cancel: cancel}
	select {
	case r.reqCh <- req:
	case <-timeout:
		close(cancel)
		return nil, ErrTimedOut
	case <-ctxDone:
		close(cancel)
		return nil, ctx.Err()
	}
	select {
	case res := <-req.resCh:
		close(cancel)
		if res.err == io.EOF {
			return res.data, ErrClosed
		}
		return res.data, res.err
	case <-timeout:
		close(cancel)
		return nil, ErrTimedOut
	case <-ctxDone:
		close(cancel)
		return nil, ctx.Err()
	}
}

func (r *Reader) pump() {
	buf := make([]byte, readChunkSize)
	for {
		select {
		case <-r.doneCh:
			return
		case req := <-r.reqCh:
			r.serve(req, buf)
		}
	}
}

// serve reads for one request. Idle ticks from the source give the pump
// a chance to notice abandonment before new bytes arrive, so a request
// that timed out while the link was silent cannot swallow a later
// response.
func (r *Reader) serve(req readReq, buf []byte) {
	max := req.max
	if max > len(buf) {
		max = len(buf)
	}
	for {
		n, err := r.src.Read(buf[:max])
		if n == 0 && err == nil {
			select {
			case <-req.cancel:
				return
			case <-r.doneCh:
				return
			default:
			}
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		// The slot is buffered: if the attempt was abandoned, this
		// send completes and the result is dropped.
		req.resCh <- readResult{data: data, err: err}
		return
	}
}
