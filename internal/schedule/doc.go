// Package schedule provides the timer registry and the rate-limiting helpers
// built on it: Debounce, Throttle, OptimizeScroll and PreloadImages.
//
// The package never starts goroutines or touches wall-clock timers itself.
// Time is reached through small ports (TimerPort, FramePort, Clock) so the
// same code runs on the production event loop and under synchronous fakes
// in tests. Everything here is single-threaded: a Registry and the functions
// it returns must be called from the goroutine that runs timer callbacks.
package schedule
