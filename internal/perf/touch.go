package perf

import (
	"time"

	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/dom"
)

type touchHandler struct {
	c       *Coordinator
	lastEnd time.Time
}

func newTouchHandler(c *Coordinator) *touchHandler {
	t := &touchHandler{c: c}
	c.listen(dom.EventTouchEnd, t.suppressDoubleTap)
	c.listen(dom.EventTouchStart, t.markActive, dom.Passive())
	c.listen(dom.EventTouchEnd, t.scheduleRelease, dom.Passive())
	return t
}

// suppressDoubleTap prevents the default action of a touchend that follows
// the previous one within the double-tap window.
func (t *touchHandler) suppressDoubleTap(ev *dom.Event) {
	now := t.c.ports.Clock.Now()
	if !t.lastEnd.IsZero() && now.Sub(t.lastEnd) <= t.c.opts.DoubleTapWindow {
		ev.PreventDefault()
		t.c.logger.Debug("double tap suppressed", zap.Duration("gap", now.Sub(t.lastEnd)))
	}
	t.lastEnd = now
}

func (t *touchHandler) control(ev *dom.Event) *dom.Element {
	if ev.Target == nil {
		return nil
	}
	return ev.Target.Closest(t.c.opts.TouchSelector)
}

func (t *touchHandler) markActive(ev *dom.Event) {
	el := t.control(ev)
	if el == nil {
		return
	}
	t.c.registry.Cancel(el)
	el.AddClass(t.c.opts.TouchActiveClass)
}

func (t *touchHandler) scheduleRelease(ev *dom.Event) {
	el := t.control(ev)
	if el == nil {
		return
	}
	class := t.c.opts.TouchActiveClass
	t.c.registry.After(el, t.c.opts.TouchLinger, func() {
		el.RemoveClass(class)
	})
}
