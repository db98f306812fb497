package perf

import (
	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/observe"
)

// Layout is the layout mode applied to the main container.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutMobile
	LayoutDesktop
)

func (l Layout) String() string {
	switch l {
	case LayoutMobile:
		return "mobile"
	case LayoutDesktop:
		return "desktop"
	default:
		return "unknown"
	}
}

type layoutResponder struct {
	c         *Coordinator
	container *dom.Element
	current   Layout
}

func newLayoutResponder(c *Coordinator) *layoutResponder {
	l := &layoutResponder{c: c, container: c.doc.Query(c.opts.ContainerSelector)}
	if l.container == nil {
		return l
	}
	obs := c.ports.Size.ObserveSize(l.handle)
	c.registry.OnDispose(obs.Disconnect)
	obs.Observe(l.container)
	return l
}

func (l *layoutResponder) handle(entries []observe.SizeEntry) {
	if l.c.Disposed() {
		return
	}
	for _, e := range entries {
		if e.Target != l.container {
			continue
		}
		l.apply(e.Width)
	}
}

func (l *layoutResponder) apply(width float64) {
	opts := l.c.opts
	next := LayoutDesktop
	if width < opts.Breakpoint {
		next = LayoutMobile
	}
	if next == LayoutMobile {
		l.container.AddClass(opts.MobileClass)
		l.container.RemoveClass(opts.DesktopClass)
	} else {
		l.container.AddClass(opts.DesktopClass)
		l.container.RemoveClass(opts.MobileClass)
	}
	if next != l.current {
		l.c.logger.Debug("layout", zap.Stringer("mode", next), zap.Float64("width", width))
	}
	l.current = next
}

// Layout returns the mode last applied, or LayoutUnknown before the first
// size report or when the document has no container.
func (c *Coordinator) Layout() Layout {
	return c.layout.current
}
