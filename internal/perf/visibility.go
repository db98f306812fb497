package perf

import (
	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/observe"
)

// Visibility is the reveal state of a lazy root.
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "hidden"
}

type visibilityLoader struct {
	c        *Coordinator
	observer observe.Observer
	state    map[*dom.Element]Visibility
}

func newVisibilityLoader(c *Coordinator) *visibilityLoader {
	v := &visibilityLoader{c: c, state: make(map[*dom.Element]Visibility)}
	v.observer = c.ports.Visibility.ObserveVisibility(observe.VisibilityOptions{
		RootMargin: c.opts.RootMargin,
		Threshold:  c.opts.Threshold,
	}, v.handle)
	c.registry.OnDispose(v.observer.Disconnect)
	v.scan()
	return v
}

// scan observes lazy roots not seen before.
func (v *visibilityLoader) scan() int {
	added := 0
	for _, el := range v.c.doc.QueryAll(v.c.opts.LazySelector) {
		if _, ok := v.state[el]; ok {
			continue
		}
		v.state[el] = Hidden
		v.observer.Observe(el)
		added++
	}
	return added
}

func (v *visibilityLoader) tracked() int {
	return len(v.state)
}

func (v *visibilityLoader) handle(entries []observe.VisibilityEntry) {
	if v.c.Disposed() {
		return
	}
	for _, e := range entries {
		if !e.Intersecting {
			continue
		}
		v.reveal(e.Target)
		v.observer.Unobserve(e.Target)
	}
}

// reveal marks el visible and activates its deferred sources once.
func (v *visibilityLoader) reveal(el *dom.Element) {
	if v.state[el] == Visible {
		return
	}
	v.state[el] = Visible
	el.AddClass(v.c.opts.VisibleClass)

	opts := v.c.opts
	loaded := 0
	for _, media := range el.QueryAll("[" + opts.DeferredAttr + "]") {
		src, ok := media.Attr(opts.DeferredAttr)
		if !ok {
			continue
		}
		media.SetAttr(opts.SourceAttr, src)
		media.RemoveAttr(opts.DeferredAttr)
		loaded++
	}
	v.c.logger.Debug("revealed", zap.Stringer("element", el), zap.Int("sources", loaded))
}

// VisibilityOf returns the reveal state of a lazy root. ok is false for
// elements the coordinator does not track.
func (c *Coordinator) VisibilityOf(el *dom.Element) (state Visibility, ok bool) {
	state, ok = c.visibility.state[el]
	return state, ok
}
