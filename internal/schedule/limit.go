package schedule

import (
	"time"

	"github.com/dshills/adminperf/internal/dom"
)

// debounceID is the identity allocated for each Debounce wrapper.
type debounceID struct{ _ byte }

// Debounce returns a wrapper that delays fn until delay has passed without
// another call. Only the last call in a burst runs, with that call's argument.
// Each wrapper has its own identity; use DebounceKey to share one.
func Debounce[T any](r *Registry, fn func(T), delay time.Duration) func(T) {
	return DebounceKey(r, &debounceID{}, fn, delay)
}

// DebounceKey is Debounce with an explicit identity. Wrappers created with
// the same key cancel each other's pending calls.
func DebounceKey[T any](r *Registry, key any, fn func(T), delay time.Duration) func(T) {
	return func(arg T) {
		r.After(key, delay, func() {
			fn(arg)
		})
	}
}

// throttleID is the gate identity allocated for each Throttle wrapper.
type throttleID struct{ _ byte }

// Throttle returns a wrapper that runs fn immediately and then drops calls
// until interval has elapsed. The gate belongs to the returned wrapper and is
// closed exactly while its reopen timer is pending, so Registry.Clear reopens it.
func Throttle[T any](r *Registry, fn func(T), interval time.Duration) func(T) {
	gate := &throttleID{}
	return func(arg T) {
		if r.Disposed() || r.Pending(gate) {
			return
		}
		r.After(gate, interval, func() {})
		fn(arg)
	}
}

// EventTarget is anything that accepts DOM listeners.
type EventTarget interface {
	AddEventListener(typ string, fn dom.Listener, opts ...dom.ListenerOption) func()
}

// OptimizeScroll attaches a passive scroll listener to target that coalesces
// scroll events into at most one fn call per frame. The listener is removed
// by the returned function or when the registry is disposed. A registry
// without a FramePort attaches nothing.
func OptimizeScroll(r *Registry, target EventTarget, fn func()) func() {
	if r.Disposed() || r.frames == nil || target == nil {
		return func() {}
	}
	ticking := false
	remove := target.AddEventListener(dom.EventScroll, func(*dom.Event) {
		if ticking {
			return
		}
		ticking = true
		r.Frame(func() {
			fn()
			ticking = false
		})
	}, dom.Passive())
	r.OnDispose(remove)
	return remove
}

// PreloadImages hands every non-empty URL to p. It returns immediately.
func PreloadImages(p Prefetcher, urls []string) {
	if p == nil {
		return
	}
	for _, u := range urls {
		if u != "" {
			p.Prefetch(u)
		}
	}
}
