package link

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chunkReader serves scripted chunks and blocks while none are queued.
// Closing the channel signals end-of-stream.
type chunkReader struct {
	chunks chan []byte
}

func newChunkReader(n int) *chunkReader {
	return &chunkReader{chunks: make(chan []byte, n)}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	chunk, ok := <-r.chunks
	if !ok {
		return 0, io.EOF
	}
	return copy(p, chunk), nil
}

func TestReadWithinDelivery(t *testing.T) {
	src := newChunkReader(1)
	src.chunks <- []byte("hello")
	r := NewReader(src)
	defer r.Close()

	data, err := r.ReadWithin(500 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestReadWithinTimeout(t *testing.T) {
	src := newChunkReader(1)
	r := NewReader(src)
	defer r.Close()

	start := time.Now()
	_, err := r.ReadWithin(50 * time.Millisecond)
	require.Equal(t, ErrTimedOut, err)
	require.True(t, time.Since(start) >= 50*time.Millisecond)
}

func TestReadWithinClosed(t *testing.T) {
	src := newChunkReader(1)
	close(src.chunks)
	r := NewReader(src)
	defer r.Close()

	data, err := r.ReadWithin(500 * time.Millisecond)
	require.Equal(t, ErrClosed, err)
	require.Empty(t, data)
}

func TestReadWithinDiscardsAbandoned(t *testing.T) {
	src := newChunkReader(2)
	r := NewReader(src)
	defer r.Close()

	// The abandoned attempt still owns the in-flight read; its delivery
	// must be discarded, not handed to the next call.
	_, err := r.ReadWithin(20 * time.Millisecond)
	require.Equal(t, ErrTimedOut, err)

	src.chunks <- []byte("stale")
	src.chunks <- []byte("fresh")
	data, err := r.ReadWithin(500 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), data)
}

func TestReadExactlyAccumulates(t *testing.T) {
	src := newChunkReader(3)
	src.chunks <- []byte("abc")
	src.chunks <- []byte("de")
	src.chunks <- []byte("f")
	r := NewReader(src)
	defer r.Close()

	data, err := r.ReadExactly(6, 500*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte("abcdef"), data)
}

func TestReadExactlyClosedShort(t *testing.T) {
	src := newChunkReader(2)
	src.chunks <- []byte("abcd")
	close(src.chunks)
	r := NewReader(src)
	defer r.Close()

	_, err := r.ReadExactly(6, 500*time.Millisecond)
	require.Equal(t, ErrClosed, err)
}

func TestReadExactlyTimeout(t *testing.T) {
	src := newChunkReader(1)
	src.chunks <- []byte("abcd")
	r := NewReader(src)
	defer r.Close()

	// 4 of 6 bytes arrive; the overall deadline still binds.
	_, err := r.ReadExactly(6, 50*time.Millisecond)
	require.Equal(t, ErrTimedOut, err)
}

func TestReadExactlyNeverOverReads(t *testing.T) {
	src := newChunkReader(2)
	src.chunks <- []byte("ab")
	src.chunks <- []byte("cdef")
	r := NewReader(src)
	defer r.Close()

	data, err := r.ReadExactly(2, 500*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), data)

	// The second chunk stays queued for the next call.
	data, err = r.ReadExactly(4, 500*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte("cdef"), data)
}
