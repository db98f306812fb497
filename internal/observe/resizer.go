package observe

import (
	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/schedule"
)

// Resizer is a SizePort over a Geometry. Each observed element is reported
// on the first check and whenever its size differs from the last report.
type Resizer struct {
	geom   Geometry
	frames schedule.FramePort

	observers []*sizeObserver
	scheduled bool
}

// NewResizer creates a Resizer. frames may be nil.
func NewResizer(geom Geometry, frames schedule.FramePort) *Resizer {
	return &Resizer{geom: geom, frames: frames}
}

// ObserveSize implements SizePort.
func (rz *Resizer) ObserveSize(cb func([]SizeEntry)) Observer {
	o := &sizeObserver{owner: rz, cb: cb, last: make(map[*dom.Element]*Rect)}
	rz.observers = append(rz.observers, o)
	return o
}

// Check evaluates every live observer and delivers pending entries.
func (rz *Resizer) Check() {
	rz.scheduled = false
	for _, o := range append([]*sizeObserver(nil), rz.observers...) {
		o.check(rz.geom)
	}
}

func (rz *Resizer) schedule() {
	if rz.frames == nil || rz.scheduled {
		return
	}
	rz.scheduled = true
	rz.frames.RequestFrame(rz.Check)
}

func (rz *Resizer) remove(o *sizeObserver) {
	for i, x := range rz.observers {
		if x == o {
			rz.observers = append(rz.observers[:i:i], rz.observers[i+1:]...)
			return
		}
	}
}

type sizeObserver struct {
	owner        *Resizer
	cb           func([]SizeEntry)
	targets      []*dom.Element
	last         map[*dom.Element]*Rect
	disconnected bool
}

func (o *sizeObserver) Observe(el *dom.Element) {
	if o.disconnected || el == nil {
		return
	}
	if _, ok := o.last[el]; ok {
		return
	}
	o.targets = append(o.targets, el)
	o.last[el] = nil
	o.owner.schedule()
}

func (o *sizeObserver) Unobserve(el *dom.Element) {
	if _, ok := o.last[el]; !ok {
		return
	}
	delete(o.last, el)
	for i, t := range o.targets {
		if t == el {
			o.targets = append(o.targets[:i:i], o.targets[i+1:]...)
			break
		}
	}
}

func (o *sizeObserver) Disconnect() {
	if o.disconnected {
		return
	}
	o.disconnected = true
	o.targets = nil
	clear(o.last)
	o.owner.remove(o)
}

func (o *sizeObserver) check(geom Geometry) {
	if o.disconnected {
		return
	}
	var entries []SizeEntry
	for _, el := range o.targets {
		b, ok := geom.Bounds(el)
		if !ok {
			b = Rect{}
		}
		if prev := o.last[el]; prev != nil && prev.Width == b.Width && prev.Height == b.Height {
			continue
		}
		o.last[el] = &b
		entries = append(entries, SizeEntry{Target: el, Width: b.Width, Height: b.Height})
	}
	if len(entries) > 0 {
		o.cb(entries)
	}
}

var _ SizePort = (*Resizer)(nil)
