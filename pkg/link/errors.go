package link

import "errors"

var (
	// ErrTimedOut indicates the deadline elapsed before enough bytes arrived.
	ErrTimedOut = errors.New("timed out")
	// ErrClosed indicates the stream ended.
	ErrClosed = errors.New("stream closed")
	// ErrNotReady indicates the session has not completed its handshake.
	ErrNotReady = errors.New("not ready")
)
