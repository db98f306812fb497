package perf

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/observe"
	"github.com/dshills/adminperf/internal/schedule"
)

// Ports are the capabilities a Coordinator needs from its host.
type Ports struct {
	Visibility observe.VisibilityPort // required
	Size       observe.SizePort       // required
	Frames     schedule.FramePort     // required
	Timers     schedule.TimerPort     // required
	Clock      schedule.Clock         // defaults to the system clock
	Prefetcher schedule.Prefetcher    // optional; PreloadImages is a no-op without it
}

// Coordinator owns the performance behaviors bound to one document.
type Coordinator struct {
	id     string
	doc    *dom.Document
	opts   Options
	ports  Ports
	logger *zap.Logger

	registry   *schedule.Registry
	visibility *visibilityLoader
	layout     *layoutResponder
	touch      *touchHandler
	shortcuts  *shortcutDispatcher
}

// New binds a Coordinator to doc. It fails only when doc is nil, a required
// port is missing, or opts does not validate. A nil logger disables logging.
func New(doc *dom.Document, ports Ports, opts Options, logger *zap.Logger) (*Coordinator, error) {
	if doc == nil {
		return nil, newComponentError("coordinator", "create", ErrNilDocument)
	}
	switch {
	case ports.Visibility == nil:
		return nil, newComponentError("visibility", "create", ErrMissingPort)
	case ports.Size == nil:
		return nil, newComponentError("layout", "create", ErrMissingPort)
	case ports.Frames == nil, ports.Timers == nil:
		return nil, newComponentError("coordinator", "create", ErrMissingPort)
	}
	if err := opts.Validate(); err != nil {
		return nil, newComponentError("coordinator", "validate", err)
	}
	if ports.Clock == nil {
		ports.Clock = schedule.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Coordinator{
		id:       uuid.NewString(),
		doc:      doc,
		opts:     opts,
		ports:    ports,
		registry: schedule.NewRegistry(ports.Timers, ports.Frames),
	}
	c.logger = logger.Named("perf").With(zap.String("coordinator", c.id))

	c.visibility = newVisibilityLoader(c)
	c.layout = newLayoutResponder(c)
	c.touch = newTouchHandler(c)

	shortcuts, err := newShortcutDispatcher(c)
	if err != nil {
		c.registry.Dispose()
		return nil, newComponentError("shortcuts", "create", err)
	}
	c.shortcuts = shortcuts

	c.logger.Info("coordinator started",
		zap.Int("lazy_roots", c.visibility.tracked()),
		zap.Bool("layout", c.layout.container != nil),
	)
	return c, nil
}

// ID returns the coordinator's instance identifier.
func (c *Coordinator) ID() string {
	return c.id
}

// Document returns the bound document.
func (c *Coordinator) Document() *dom.Document {
	return c.doc
}

// Options returns the options the coordinator was built with.
func (c *Coordinator) Options() Options {
	return c.opts
}

// Registry returns the shared timer registry for use with schedule.Debounce,
// schedule.Throttle and friends. Its timers are cleared on Dispose.
func (c *Coordinator) Registry() *schedule.Registry {
	return c.registry
}

// Rescan observes lazy roots added to the document since construction and
// returns how many were new.
func (c *Coordinator) Rescan() int {
	if c.Disposed() {
		return 0
	}
	n := c.visibility.scan()
	if n > 0 {
		c.logger.Debug("rescan", zap.Int("added", n))
	}
	return n
}

// OptimizeScroll coalesces scroll events on target into one fn call per frame.
func (c *Coordinator) OptimizeScroll(target schedule.EventTarget, fn func()) func() {
	return schedule.OptimizeScroll(c.registry, target, fn)
}

// PreloadImages warms urls through the Prefetcher port.
func (c *Coordinator) PreloadImages(urls []string) {
	if c.Disposed() {
		return
	}
	schedule.PreloadImages(c.ports.Prefetcher, urls)
}

// Dispose disconnects both observers, clears pending timers and removes
// every listener. Callbacks arriving later are ignored. Dispose may be
// called more than once.
func (c *Coordinator) Dispose() {
	if c.registry.Disposed() {
		return
	}
	c.registry.Dispose()
	c.logger.Info("coordinator disposed")
}

// Disposed reports whether Dispose has run.
func (c *Coordinator) Disposed() bool {
	return c.registry.Disposed()
}

// listen adds a document listener that is removed on disposal.
func (c *Coordinator) listen(typ string, fn dom.Listener, opts ...dom.ListenerOption) {
	remove := c.doc.AddEventListener(typ, func(ev *dom.Event) {
		if c.Disposed() {
			return
		}
		fn(ev)
	}, opts...)
	c.registry.OnDispose(remove)
}
