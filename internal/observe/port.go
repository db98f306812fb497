package observe

import "github.com/dshills/adminperf/internal/dom"

// VisibilityOptions configures a visibility observer.
type VisibilityOptions struct {
	// RootMargin grows the viewport on every side before intersecting.
	RootMargin float64

	// Threshold is the visible fraction of an element's area at which it
	// counts as intersecting.
	Threshold float64
}

// VisibilityEntry reports an element's intersection with the viewport.
type VisibilityEntry struct {
	Target       *dom.Element
	Intersecting bool
	Ratio        float64
}

// SizeEntry reports an element's content size.
type SizeEntry struct {
	Target *dom.Element
	Width  float64
	Height float64
}

// Observer is a live registration set.
type Observer interface {
	Observe(el *dom.Element)
	Unobserve(el *dom.Element)

	// Disconnect unobserves everything. No callback runs afterwards.
	Disconnect()
}

// VisibilityPort creates visibility observers.
type VisibilityPort interface {
	ObserveVisibility(opts VisibilityOptions, cb func([]VisibilityEntry)) Observer
}

// SizePort creates size observers.
type SizePort interface {
	ObserveSize(cb func([]SizeEntry)) Observer
}
