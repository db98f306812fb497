package perf

import (
	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/input/key"
)

// shortcutRule binds a key combination to an action. prevent suppresses the
// default action whenever the combination matches, even if the action finds
// nothing to do.
type shortcutRule struct {
	name     string
	shortcut key.Shortcut
	prevent  bool
	run      func()
}

type shortcutDispatcher struct {
	c     *Coordinator
	rules []shortcutRule
}

func newShortcutDispatcher(c *Coordinator) (*shortcutDispatcher, error) {
	s := &shortcutDispatcher{c: c}
	opts := c.opts

	specs := []struct {
		name    string
		spec    string
		prevent bool
		run     func()
	}{
		{"save", opts.SaveShortcut, true, s.clickTrigger(opts.SaveSelector)},
		{"preview", opts.PreviewShortcut, true, s.clickTrigger(opts.PreviewSelector)},
		{"close-modal", opts.CloseShortcut, false, s.closeModal},
	}
	for _, sp := range specs {
		sc, err := key.ParseShortcut(sp.spec)
		if err != nil {
			return nil, err
		}
		s.rules = append(s.rules, shortcutRule{name: sp.name, shortcut: sc, prevent: sp.prevent, run: sp.run})
	}

	c.listen(dom.EventKeyDown, s.handle)
	return s, nil
}

func (s *shortcutDispatcher) handle(ev *dom.Event) {
	for _, r := range s.rules {
		if !r.shortcut.Matches(ev.Key) {
			continue
		}
		if r.prevent {
			ev.PreventDefault()
		}
		s.c.logger.Debug("shortcut", zap.String("action", r.name), zap.Stringer("key", ev.Key))
		r.run()
		return
	}
}

func (s *shortcutDispatcher) clickTrigger(sel string) func() {
	return func() {
		if el := s.c.doc.Query(sel); el != nil {
			el.Click()
		}
	}
}

func (s *shortcutDispatcher) closeModal() {
	modal := s.c.doc.Query(s.c.opts.ModalSelector)
	if modal == nil {
		return
	}
	if btn := modal.Query(s.c.opts.ModalCloseSelector); btn != nil {
		btn.Click()
	}
}
