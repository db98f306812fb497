package observe

import (
	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/schedule"
)

// Geometry reports layout for the in-process observers.
type Geometry interface {
	// Viewport returns the visible region in document coordinates.
	Viewport() Rect

	// Bounds returns the element's box in document coordinates. ok is
	// false for elements that are not laid out.
	Bounds(el *dom.Element) (r Rect, ok bool)
}

// Intersector is a VisibilityPort over a Geometry.
//
// Observers report an element on the first check after it is observed and
// then whenever its intersecting state flips. Hosts call Check after the
// viewport or layout changes. When a FramePort is supplied, observing an
// element also schedules a check on the next frame.
type Intersector struct {
	geom   Geometry
	frames schedule.FramePort

	observers []*visibilityObserver
	scheduled bool
}

// NewIntersector creates an Intersector. frames may be nil.
func NewIntersector(geom Geometry, frames schedule.FramePort) *Intersector {
	return &Intersector{geom: geom, frames: frames}
}

// ObserveVisibility implements VisibilityPort.
func (in *Intersector) ObserveVisibility(opts VisibilityOptions, cb func([]VisibilityEntry)) Observer {
	o := &visibilityObserver{
		owner: in,
		opts:  opts,
		cb:    cb,
		state: make(map[*dom.Element]int8),
	}
	in.observers = append(in.observers, o)
	return o
}

// Check evaluates every live observer and delivers pending entries.
func (in *Intersector) Check() {
	in.scheduled = false
	for _, o := range append([]*visibilityObserver(nil), in.observers...) {
		o.check(in.geom)
	}
}

func (in *Intersector) schedule() {
	if in.frames == nil || in.scheduled {
		return
	}
	in.scheduled = true
	in.frames.RequestFrame(in.Check)
}

func (in *Intersector) remove(o *visibilityObserver) {
	for i, x := range in.observers {
		if x == o {
			in.observers = append(in.observers[:i:i], in.observers[i+1:]...)
			return
		}
	}
}

const (
	stateUnknown int8 = iota
	stateOutside
	stateInside
)

type visibilityObserver struct {
	owner        *Intersector
	opts         VisibilityOptions
	cb           func([]VisibilityEntry)
	targets      []*dom.Element
	state        map[*dom.Element]int8
	disconnected bool
}

func (o *visibilityObserver) Observe(el *dom.Element) {
	if o.disconnected || el == nil {
		return
	}
	if _, ok := o.state[el]; ok {
		return
	}
	o.targets = append(o.targets, el)
	o.state[el] = stateUnknown
	o.owner.schedule()
}

func (o *visibilityObserver) Unobserve(el *dom.Element) {
	if _, ok := o.state[el]; !ok {
		return
	}
	delete(o.state, el)
	for i, t := range o.targets {
		if t == el {
			o.targets = append(o.targets[:i:i], o.targets[i+1:]...)
			break
		}
	}
}

func (o *visibilityObserver) Disconnect() {
	if o.disconnected {
		return
	}
	o.disconnected = true
	o.targets = nil
	clear(o.state)
	o.owner.remove(o)
}

func (o *visibilityObserver) check(geom Geometry) {
	if o.disconnected || len(o.targets) == 0 {
		return
	}
	root := geom.Viewport().Grow(o.opts.RootMargin)

	var entries []VisibilityEntry
	for _, el := range o.targets {
		ratio, inside := intersection(root, geom, el, o.opts.Threshold)
		next := stateOutside
		if inside {
			next = stateInside
		}
		if o.state[el] == next {
			continue
		}
		o.state[el] = next
		entries = append(entries, VisibilityEntry{Target: el, Intersecting: inside, Ratio: ratio})
	}
	if len(entries) > 0 {
		o.cb(entries)
	}
}

// intersection returns the visible fraction of el inside root and whether
// that fraction reaches threshold.
func intersection(root Rect, geom Geometry, el *dom.Element, threshold float64) (float64, bool) {
	b, ok := geom.Bounds(el)
	if !ok {
		return 0, false
	}
	overlap, touches := root.Intersect(b)
	if !touches {
		return 0, false
	}
	area := b.Area()
	if area == 0 {
		return 1, true
	}
	ratio := overlap.Area() / area
	if ratio == 0 {
		return 0, false
	}
	return ratio, ratio >= threshold
}

var _ VisibilityPort = (*Intersector)(nil)
