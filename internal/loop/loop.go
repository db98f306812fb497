// Package loop runs callbacks on a single goroutine.
//
// A Loop is the production implementation of the schedule ports. Timers
// and frames never call back on the goroutine that fires them; they post a
// task and the task runs on the loop. Cancellation is checked on the loop,
// so a cleared timer whose wall-clock deadline already passed still does
// not run.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/schedule"
)

// ErrAlreadyRunning is returned by Run when the loop is already running.
var ErrAlreadyRunning = errors.New("loop: already running")

// ErrStopped is returned by Run when the loop was stopped before it started.
var ErrStopped = errors.New("loop: stopped")

// Options configures a Loop.
type Options struct {
	// FrameInterval is the spacing of frame flushes.
	FrameInterval time.Duration

	// QueueSize bounds the task queue. Post blocks while it is full.
	QueueSize int

	// Logger receives task panics. Nil means no logging.
	Logger *zap.Logger
}

// DefaultOptions returns options for a 60 Hz frame rate.
func DefaultOptions() Options {
	return Options{
		FrameInterval: time.Second / 60,
		QueueSize:     256,
	}
}

// Loop is a single-goroutine executor.
type Loop struct {
	opts   Options
	logger *zap.Logger

	tasks    chan func()
	done     chan struct{}
	running  atomic.Bool
	stopOnce sync.Once

	mu     sync.Mutex
	next   schedule.Handle
	timers map[schedule.Handle]*time.Timer
	frames []func()
}

// New creates a Loop. Zero option fields take their defaults.
func New(opts Options) *Loop {
	def := DefaultOptions()
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = def.FrameInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		opts:   opts,
		logger: logger,
		tasks:  make(chan func(), opts.QueueSize),
		done:   make(chan struct{}),
		timers: make(map[schedule.Handle]*time.Timer),
	}
}

// Post queues fn to run on the loop. It reports false if the loop has stopped.
// Post may be called from any goroutine.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes tasks until ctx is cancelled or Stop is called.
// It returns nil after Stop and ctx.Err() after cancellation.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	ticker := time.NewTicker(l.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.run(fn)
		case <-ticker.C:
			l.flushFrames()
		}
	}
}

// Stop ends Run and cancels every pending timer. Queued tasks are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		for h, t := range l.timers {
			t.Stop()
			delete(l.timers, h)
		}
		l.frames = nil
		l.mu.Unlock()
	})
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Running reports whether Run is executing.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// SetTimeout runs fn on the loop after d.
func (l *Loop) SetTimeout(d time.Duration, fn func()) schedule.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	h := l.next
	l.timers[h] = time.AfterFunc(d, func() {
		l.Post(func() { l.fire(h, fn) })
	})
	return h
}

// ClearTimeout cancels a pending timeout.
func (l *Loop) ClearTimeout(h schedule.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.timers[h]; ok {
		t.Stop()
		delete(l.timers, h)
	}
}

func (l *Loop) fire(h schedule.Handle, fn func()) {
	l.mu.Lock()
	_, ok := l.timers[h]
	delete(l.timers, h)
	l.mu.Unlock()
	if ok {
		fn()
	}
}

// PendingTimers returns the number of timers that have not fired or been cleared.
func (l *Loop) PendingTimers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// RequestFrame runs fn at the next frame flush.
func (l *Loop) RequestFrame(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, fn)
}

func (l *Loop) flushFrames() {
	l.mu.Lock()
	frames := l.frames
	l.frames = nil
	l.mu.Unlock()

	for _, fn := range frames {
		l.run(fn)
	}
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// run executes fn, converting a panic into a log entry so one bad callback
// does not end the loop.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	fn()
}

var (
	_ schedule.TimerPort = (*Loop)(nil)
	_ schedule.FramePort = (*Loop)(nil)
	_ schedule.Clock     = (*Loop)(nil)
)
