package schedule

import "time"

// Registry tracks pending timers by callback identity.
//
// At most one timer is live per key: scheduling under a key cancels the
// previous timer for that key first. Dispose cancels everything still
// pending, runs registered cleanups, and turns every later call into a
// no-op, including callbacks that were already queued by the TimerPort.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	timers TimerPort
	frames FramePort

	keyed    map[any]Handle
	live     map[Handle]any
	cleanups []func()
	disposed bool
}

// NewRegistry creates a registry over the given ports. frames may be nil
// if no frame-aligned work is scheduled.
func NewRegistry(timers TimerPort, frames FramePort) *Registry {
	return &Registry{
		timers: timers,
		frames: frames,
		keyed:  make(map[any]Handle),
		live:   make(map[Handle]any),
	}
}

// anonymous keys timers that nothing else will look up.
// The field keeps distinct allocations at distinct addresses.
type anonymous struct{ _ byte }

// After schedules fn to run after d under key, replacing any timer pending
// under the same key. key must be comparable. After returns 0 once the
// registry is disposed.
func (r *Registry) After(key any, d time.Duration, fn func()) Handle {
	if r.disposed {
		return 0
	}
	r.Cancel(key)

	var h Handle
	h = r.timers.SetTimeout(d, func() {
		if r.disposed {
			return
		}
		if _, ok := r.live[h]; !ok {
			return
		}
		delete(r.live, h)
		if r.keyed[key] == h {
			delete(r.keyed, key)
		}
		fn()
	})
	r.keyed[key] = h
	r.live[h] = key
	return h
}

// Timeout schedules fn under a fresh identity.
func (r *Registry) Timeout(d time.Duration, fn func()) Handle {
	return r.After(&anonymous{}, d, fn)
}

// Cancel stops the timer pending under key. It reports whether one was pending.
func (r *Registry) Cancel(key any) bool {
	h, ok := r.keyed[key]
	if !ok {
		return false
	}
	r.timers.ClearTimeout(h)
	delete(r.keyed, key)
	delete(r.live, h)
	return true
}

// Pending reports whether a timer is pending under key.
func (r *Registry) Pending(key any) bool {
	_, ok := r.keyed[key]
	return ok
}

// Len returns the number of pending timers.
func (r *Registry) Len() int {
	return len(r.live)
}

// Frame runs fn on the next frame. It is dropped if the registry has no
// FramePort or is disposed by the time the frame arrives.
func (r *Registry) Frame(fn func()) {
	if r.disposed || r.frames == nil {
		return
	}
	r.frames.RequestFrame(func() {
		if r.disposed {
			return
		}
		fn()
	})
}

// OnDispose registers a cleanup to run during Dispose.
// Cleanups registered after disposal run immediately.
func (r *Registry) OnDispose(fn func()) {
	if r.disposed {
		fn()
		return
	}
	r.cleanups = append(r.cleanups, fn)
}

// Clear cancels every pending timer, which also reopens every Throttle
// gate. The registry stays usable.
func (r *Registry) Clear() {
	for h := range r.live {
		r.timers.ClearTimeout(h)
	}
	clear(r.live)
	clear(r.keyed)
}

// Dispose clears all timers and runs cleanups in reverse registration order.
// Later calls do nothing.
func (r *Registry) Dispose() {
	if r.disposed {
		return
	}
	r.Clear()
	r.disposed = true
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
	r.cleanups = nil
}

// Disposed reports whether Dispose has run.
func (r *Registry) Disposed() bool {
	return r.disposed
}
