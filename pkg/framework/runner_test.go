package framework

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type runFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (r *runFunc) Name() string                  { return r.name }
func (r *runFunc) Run(ctx context.Context) error { return r.fn(ctx) }

func TestRunnerWaitLabelsErrors(t *testing.T) {
	runner := NewRunner()
	runner.Go(
		&runFunc{name: "good", fn: func(context.Context) error { return nil }},
		&runFunc{name: "bad", fn: func(context.Context) error { return errors.New("boom") }},
	)
	err := runner.Wait()
	require.Error(t, err)
	require.Equal(t, "bad: boom", err.Error())
}

func TestRunnerWaitIgnoresCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner()
	runner.Context = ctx
	runner.Go(&runFunc{name: "loop", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return context.Canceled
	}})
	cancel()
	require.NoError(t, runner.Wait())
}

// closeCounter counts Close calls and unblocks a paired blocking read.
type closeCounter struct {
	closed  int32
	unblock chan struct{}
}

func (c *closeCounter) Close() error {
	if atomic.AddInt32(&c.closed, 1) == 1 {
		close(c.unblock)
	}
	return nil
}

func TestRunWithContextCloserOnExit(t *testing.T) {
	closer := &closeCounter{unblock: make(chan struct{})}
	err := RunWithContextCloser(context.Background(), closer, func() error {
		return io.EOF
	})
	require.Equal(t, io.EOF, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&closer.closed))
}

func TestRunWithContextCloserOnCancel(t *testing.T) {
	// fn blocks the way a serial Read does; only Close releases it.
	closer := &closeCounter{unblock: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithContextCloser(ctx, closer, func() error {
			<-closer.unblock
			return errors.New("file already closed")
		})
	}()
	cancel()

	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("cancel did not unblock the run")
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&closer.closed))
}
