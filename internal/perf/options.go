package perf

import (
	"fmt"
	"time"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/input/key"
)

// Options holds the DOM contract and the timing constants.
type Options struct {
	// Visibility loading.
	LazySelector string
	DeferredAttr string
	SourceAttr   string
	VisibleClass string
	RootMargin   float64
	Threshold    float64

	// Layout switching.
	ContainerSelector string
	Breakpoint        float64
	MobileClass       string
	DesktopClass      string

	// Touch handling.
	TouchSelector    string
	TouchActiveClass string
	DoubleTapWindow  time.Duration
	TouchLinger      time.Duration

	// Shortcuts.
	SaveShortcut       string
	SaveSelector       string
	PreviewShortcut    string
	PreviewSelector    string
	CloseShortcut      string
	ModalSelector      string
	ModalCloseSelector string
}

// DefaultOptions returns the admin page contract.
func DefaultOptions() Options {
	return Options{
		LazySelector: ".lazy-load",
		DeferredAttr: "data-src",
		SourceAttr:   "src",
		VisibleClass: "visible",
		RootMargin:   50,
		Threshold:    0.1,

		ContainerSelector: ".main-container",
		Breakpoint:        768,
		MobileClass:       "mobile-layout",
		DesktopClass:      "desktop-layout",

		TouchSelector:    "button, .btn, .nav-tab, .dynamic-list-item",
		TouchActiveClass: "touch-active",
		DoubleTapWindow:  300 * time.Millisecond,
		TouchLinger:      150 * time.Millisecond,

		SaveShortcut:       "Mod+s",
		SaveSelector:       "#save-all-btn",
		PreviewShortcut:    "Mod+p",
		PreviewSelector:    "#preview-btn",
		CloseShortcut:      "Escape",
		ModalSelector:      ".modal.active",
		ModalCloseSelector: ".modal-close",
	}
}

// Validate checks selectors, shortcut specs and numeric ranges.
func (o Options) Validate() error {
	selectors := map[string]string{
		"lazy selector":        o.LazySelector,
		"container selector":   o.ContainerSelector,
		"touch selector":       o.TouchSelector,
		"save selector":        o.SaveSelector,
		"preview selector":     o.PreviewSelector,
		"modal selector":       o.ModalSelector,
		"modal close selector": o.ModalCloseSelector,
	}
	for name, sel := range selectors {
		if !dom.ValidSelector(sel) {
			return fmt.Errorf("%w: %s %q", ErrInvalidOptions, name, sel)
		}
	}
	for _, spec := range []string{o.SaveShortcut, o.PreviewShortcut, o.CloseShortcut} {
		if _, err := key.ParseShortcut(spec); err != nil {
			return fmt.Errorf("%w: shortcut %q: %v", ErrInvalidOptions, spec, err)
		}
	}
	if o.DeferredAttr == "" || o.SourceAttr == "" {
		return fmt.Errorf("%w: empty source attribute", ErrInvalidOptions)
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidOptions, o.Threshold)
	}
	if o.Breakpoint <= 0 {
		return fmt.Errorf("%w: breakpoint %v", ErrInvalidOptions, o.Breakpoint)
	}
	if o.DoubleTapWindow < 0 || o.TouchLinger < 0 {
		return fmt.Errorf("%w: negative touch duration", ErrInvalidOptions)
	}
	return nil
}
