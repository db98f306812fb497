package dom

import (
	"time"

	"github.com/dshills/adminperf/internal/input/key"
)

// Event types dispatched by hosts and observed by the coordinator.
const (
	EventClick      = "click"
	EventKeyDown    = "keydown"
	EventTouchStart = "touchstart"
	EventTouchEnd   = "touchend"
	EventScroll     = "scroll"
)

// Event is a dispatched DOM event.
type Event struct {
	// Type is the event name (e.g. "touchend").
	Type string

	// Target is the element the event was dispatched at.
	// Nil for events dispatched at the document itself.
	Target *Element

	// CurrentTarget is the element whose listener is running.
	// Nil while document listeners run.
	CurrentTarget *Element

	// Key is set for keyboard events.
	Key key.Event

	// Timestamp is when the host observed the event.
	Timestamp time.Time

	// Bubbles controls propagation to ancestors and the document.
	Bubbles bool

	defaultPrevented bool
	stopped          bool
	inPassive        bool
}

// NewEvent creates a bubbling event of the given type.
func NewEvent(typ string, ts time.Time) *Event {
	return &Event{Type: typ, Timestamp: ts, Bubbles: true}
}

// NewKeyEvent creates a keydown event for a key press.
func NewKeyEvent(ev key.Event) *Event {
	return &Event{Type: EventKeyDown, Key: ev, Timestamp: ev.Timestamp, Bubbles: true}
}

// NewScrollEvent creates a scroll event. Scroll events do not bubble.
func NewScrollEvent(ts time.Time) *Event {
	return &Event{Type: EventScroll, Timestamp: ts}
}

// PreventDefault cancels the host's default action for the event.
// Calls made from a passive listener are ignored.
func (e *Event) PreventDefault() {
	if e.inPassive {
		return
	}
	e.defaultPrevented = true
}

// DefaultPrevented reports whether a non-passive listener cancelled the event.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation prevents further propagation after the current node.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Listener handles a dispatched event.
type Listener func(ev *Event)

type listener struct {
	fn      Listener
	passive bool
	once    bool
	removed bool
}

// ListenerOption configures a listener registration.
type ListenerOption func(*listener)

// Passive marks the listener as passive: it cannot prevent the default.
func Passive() ListenerOption {
	return func(l *listener) {
		l.passive = true
	}
}

// Once removes the listener after its first invocation.
func Once() ListenerOption {
	return func(l *listener) {
		l.once = true
	}
}
