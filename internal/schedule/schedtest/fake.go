// Package schedtest provides synchronous fakes for the schedule ports.
package schedtest

import (
	"slices"
	"sync"
	"time"

	"github.com/dshills/adminperf/internal/schedule"
)

// Epoch is the time a new Fake starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type timer struct {
	handle schedule.Handle
	at     time.Time
	fn     func()
}

// Fake implements schedule.TimerPort, schedule.FramePort and schedule.Clock
// against controllable time. Callbacks run on the goroutine that calls
// Advance or Flush, never while the fake's lock is held.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	next   schedule.Handle
	timers []*timer
	frames []func()
}

// New returns a Fake starting at Epoch.
func New() *Fake {
	return &Fake{now: Epoch}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// SetTimeout schedules fn at now+d.
func (f *Fake) SetTimeout(d time.Duration, fn func()) schedule.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d < 0 {
		d = 0
	}
	f.next++
	f.timers = append(f.timers, &timer{handle: f.next, at: f.now.Add(d), fn: fn})
	return f.next
}

// ClearTimeout drops a pending timer. Unknown handles are ignored.
func (f *Fake) ClearTimeout(h schedule.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timers = slices.DeleteFunc(f.timers, func(t *timer) bool { return t.handle == h })
}

// RequestFrame queues fn for the next Flush.
func (f *Fake) RequestFrame(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fn)
}

// Advance moves time forward by d, firing due timers in deadline order.
// Timers scheduled by a callback fire too if they fall inside the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		t := f.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// popDue removes and returns the earliest timer due at or before target,
// moving the clock to its deadline.
func (f *Fake) popDue(target time.Time) *timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i, t := range f.timers {
		if t.at.After(target) {
			continue
		}
		if idx < 0 || t.at.Before(f.timers[idx].at) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	t := f.timers[idx]
	f.timers = slices.Delete(f.timers, idx, idx+1)
	if t.at.After(f.now) {
		f.now = t.at
	}
	return t
}

// Flush runs the frames queued before the call and returns how many ran.
// Frames requested during the flush wait for the next one.
func (f *Fake) Flush() int {
	f.mu.Lock()
	frames := f.frames
	f.frames = nil
	f.mu.Unlock()
	for _, fn := range frames {
		fn()
	}
	return len(frames)
}

// PendingTimers returns the number of scheduled timers.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// PendingFrames returns the number of queued frames.
func (f *Fake) PendingFrames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// Prefetcher records prefetched URLs.
type Prefetcher struct {
	mu   sync.Mutex
	urls []string
}

// Prefetch records url.
func (p *Prefetcher) Prefetch(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
}

// URLs returns the recorded URLs in call order.
func (p *Prefetcher) URLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.urls)
}
