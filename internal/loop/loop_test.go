package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// start runs l in the background and returns a function that stops it and
// waits for Run to return.
func start(t *testing.T, l *Loop) func() {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()
	return func() {
		l.Stop()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("loop did not stop")
		}
	}
}

func TestPostRunsInOrder(t *testing.T) {
	l := New(DefaultOptions())
	stop := start(t, l)
	defer stop()

	done := make(chan []int, 1)
	var got []int
	for i := 1; i <= 3; i++ {
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { done <- got })

	select {
	case v := <-done:
		assert.Equal(t, []int{1, 2, 3}, v)
	case <-time.After(time.Second):
		t.Fatal("tasks did not run")
	}
}

func TestTimeoutRunsOnLoop(t *testing.T) {
	l := New(DefaultOptions())
	stop := start(t, l)
	defer stop()

	fired := make(chan struct{})
	l.SetTimeout(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout did not fire")
	}
	assert.Zero(t, l.PendingTimers())
}

func TestClearTimeout(t *testing.T) {
	l := New(DefaultOptions())
	stop := start(t, l)
	defer stop()

	var cleared atomic.Bool
	h := l.SetTimeout(5*time.Millisecond, func() { cleared.Store(true) })
	l.ClearTimeout(h)
	l.ClearTimeout(h)

	after := make(chan struct{})
	l.SetTimeout(30*time.Millisecond, func() { close(after) })
	select {
	case <-after:
	case <-time.After(time.Second):
		t.Fatal("second timeout did not fire")
	}
	assert.False(t, cleared.Load())
}

func TestFrameFlush(t *testing.T) {
	opts := DefaultOptions()
	opts.FrameInterval = 2 * time.Millisecond
	l := New(opts)
	stop := start(t, l)
	defer stop()

	ran := make(chan struct{})
	l.Post(func() {
		l.RequestFrame(func() { close(ran) })
	})
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("frame did not run")
	}
}

func TestPanicDoesNotStopLoop(t *testing.T) {
	l := New(DefaultOptions())
	stop := start(t, l)
	defer stop()

	ok := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(ok) })
	select {
	case <-ok:
	case <-time.After(time.Second):
		t.Fatal("loop died after panic")
	}
}

func TestRunTwice(t *testing.T) {
	l := New(DefaultOptions())
	stop := start(t, l)
	defer stop()

	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	assert.ErrorIs(t, l.Run(context.Background()), ErrAlreadyRunning)
}

func TestContextCancel(t *testing.T) {
	l := New(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	l.SetTimeout(time.Hour, func() {})
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
	assert.Zero(t, l.PendingTimers())
	assert.False(t, l.Post(func() {}))
}

func TestRunAfterStop(t *testing.T) {
	l := New(DefaultOptions())
	l.Stop()
	assert.ErrorIs(t, l.Run(context.Background()), ErrStopped)
}
