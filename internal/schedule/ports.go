package schedule

import "time"

// Handle identifies a pending timeout. The zero Handle is never issued.
type Handle uint64

// TimerPort schedules one-shot callbacks on the caller's execution context.
type TimerPort interface {
	// SetTimeout runs fn once after d. It returns a handle for cancellation.
	SetTimeout(d time.Duration, fn func()) Handle

	// ClearTimeout cancels a pending timeout. Unknown or fired handles are ignored.
	ClearTimeout(h Handle)
}

// FramePort schedules callbacks aligned to the next rendered frame.
type FramePort interface {
	// RequestFrame runs fn once before the next frame.
	RequestFrame(fn func())
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Prefetcher warms resources without rendering them.
type Prefetcher interface {
	// Prefetch begins a background fetch of url. It must not block and
	// reports no completion.
	Prefetch(url string)
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
