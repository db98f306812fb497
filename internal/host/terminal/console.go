// Package terminal hosts a document and its performance coordinator in a
// terminal. The document is drawn as an indented outline; keys become
// keydown events, mouse presses become touches, scrolling moves the
// viewport and terminal resizes feed the size observer.
package terminal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/input/key"
	"github.com/dshills/adminperf/internal/observe"
	"github.com/dshills/adminperf/internal/perf"
	"github.com/dshills/adminperf/internal/schedule"
)

// ErrNoScreen is returned when New is given a nil screen.
var ErrNoScreen = errors.New("terminal: nil screen")

var quitShortcut = key.MustParseShortcut("Ctrl+q")

// Ports are the scheduling capabilities the console runs on.
type Ports struct {
	Timers     schedule.TimerPort
	Frames     schedule.FramePort
	Clock      schedule.Clock
	Prefetcher schedule.Prefetcher
}

// Options configures a Console.
type Options struct {
	Perf perf.Options

	// CellWidth and CellHeight are the pixel size of one terminal cell.
	// Zero keeps the outline defaults.
	CellWidth  float64
	CellHeight float64

	// PreloadImages hands every deferred image to the Prefetcher at startup.
	// Otherwise images load only when their lazy root is revealed.
	PreloadImages bool

	Logger *zap.Logger
}

// Console draws a document on a tcell screen and feeds it input.
// All methods must be called from the goroutine that owns the ports.
type Console struct {
	screen tcell.Screen
	doc    *dom.Document
	ports  Ports
	logger *zap.Logger

	outline *observe.Outline
	inter   *observe.Intersector
	resizer *observe.Resizer
	coord   *perf.Coordinator

	pressed *dom.Element
	status  string
	quit    bool
	onQuit  func()

	dirty bool
}

// New lays doc out on screen and starts a coordinator for it. The screen
// must already be initialised.
func New(screen tcell.Screen, doc *dom.Document, ports Ports, opts Options) (*Console, error) {
	if screen == nil {
		return nil, ErrNoScreen
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if ports.Clock == nil {
		ports.Clock = schedule.SystemClock{}
	}

	c := &Console{
		screen: screen,
		doc:    doc,
		ports:  ports,
		logger: logger.Named("console"),
	}

	cols, rows := screen.Size()
	c.outline = observe.NewOutline(doc, cols, max(rows-1, 0))
	if opts.CellWidth > 0 {
		c.outline.CellWidth = opts.CellWidth
	}
	if opts.CellHeight > 0 {
		c.outline.CellHeight = opts.CellHeight
	}
	c.inter = observe.NewIntersector(c.outline, ports.Frames)
	c.resizer = observe.NewResizer(c.outline, ports.Frames)

	coord, err := perf.New(doc, perf.Ports{
		Visibility: c.inter,
		Size:       c.resizer,
		Frames:     ports.Frames,
		Timers:     ports.Timers,
		Clock:      ports.Clock,
		Prefetcher: ports.Prefetcher,
	}, opts.Perf, logger)
	if err != nil {
		return nil, fmt.Errorf("starting coordinator: %w", err)
	}
	c.coord = coord

	reg := coord.Registry()
	reg.OnDispose(doc.AddEventListener(dom.EventClick, c.recordClick, dom.Passive()))
	coord.OptimizeScroll(doc, c.invalidate)

	if opts.PreloadImages {
		coord.PreloadImages(deferredSources(doc, opts.Perf.DeferredAttr))
	}
	c.status = "Ctrl+Q quits"
	c.invalidate()
	return c, nil
}

// deferredSources lists the deferred image URLs in document order.
func deferredSources(doc *dom.Document, attr string) []string {
	var urls []string
	for _, el := range doc.QueryAll("[" + attr + "]") {
		if v, ok := el.Attr(attr); ok {
			urls = append(urls, v)
		}
	}
	return urls
}

// Coordinator returns the console's coordinator.
func (c *Console) Coordinator() *perf.Coordinator {
	return c.coord
}

// Outline returns the layout the console draws.
func (c *Console) Outline() *observe.Outline {
	return c.outline
}

// Status returns the message on the status line.
func (c *Console) Status() string {
	return c.status
}

// OnQuit registers fn to run when the user asks to quit.
func (c *Console) OnQuit(fn func()) {
	c.onQuit = fn
}

// Quit reports whether the user asked to quit.
func (c *Console) Quit() bool {
	return c.quit
}

// Close disposes the coordinator.
func (c *Console) Close() {
	c.coord.Dispose()
}

// HandleEvent applies one terminal event. It returns false once the console
// has been asked to quit.
func (c *Console) HandleEvent(ev tcell.Event) bool {
	if c.quit {
		return false
	}
	switch e := ev.(type) {
	case *tcell.EventKey:
		c.handleKey(e)
	case *tcell.EventMouse:
		c.handleMouse(e)
	case *tcell.EventResize:
		cols, rows := e.Size()
		c.outline.Resize(cols, max(rows-1, 0))
		c.resizer.Check()
		c.inter.Check()
		c.screen.Sync()
		c.invalidate()
	}
	return !c.quit
}

func (c *Console) handleKey(e *tcell.EventKey) {
	k, ok := convertKey(e)
	if !ok {
		return
	}
	if quitShortcut.Matches(k) {
		c.quit = true
		if c.onQuit != nil {
			c.onQuit()
		}
		return
	}

	if !c.doc.Dispatch(nil, dom.NewKeyEvent(k)) {
		c.logger.Debug("key handled", zap.Stringer("key", k))
		c.invalidate()
		return
	}

	rows := c.outline.Visible()
	page := max(len(rows)-1, 1)
	switch k.Key {
	case key.KeyUp:
		c.scroll(-1)
	case key.KeyDown:
		c.scroll(1)
	case key.KeyPageUp:
		c.scroll(-page)
	case key.KeyPageDown:
		c.scroll(page)
	case key.KeyHome:
		c.scrollTo(0)
	case key.KeyEnd:
		c.scrollTo(len(c.outline.Rows()))
	}
	c.invalidate()
}

func (c *Console) handleMouse(e *tcell.EventMouse) {
	_, y := e.Position()
	buttons := e.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		c.scroll(-1)
	case buttons&tcell.WheelDown != 0:
		c.scroll(1)
	case buttons&tcell.Button1 != 0:
		if c.pressed != nil {
			return
		}
		el := c.outline.ElementAt(y)
		if el == nil {
			return
		}
		c.pressed = el
		el.Dispatch(dom.NewEvent(dom.EventTouchStart, c.ports.Clock.Now()))
		c.invalidate()
	case buttons == tcell.ButtonNone && c.pressed != nil:
		el := c.pressed
		c.pressed = nil
		if el.Dispatch(dom.NewEvent(dom.EventTouchEnd, c.ports.Clock.Now())) {
			el.Click()
		} else {
			c.status = "double tap suppressed"
		}
		c.invalidate()
		// The active mark lingers after release; redraw once it is gone.
		c.coord.Registry().Timeout(c.coord.Options().TouchLinger+time.Millisecond, c.invalidate)
	}
}

func (c *Console) scroll(delta int) {
	c.scrollTo(c.outline.Scroll() + delta)
}

func (c *Console) scrollTo(top int) {
	if !c.outline.ScrollTo(top) {
		return
	}
	c.inter.Check()
	c.doc.Dispatch(nil, dom.NewScrollEvent(c.ports.Clock.Now()))
}

func (c *Console) recordClick(ev *dom.Event) {
	if ev.Target != nil {
		c.status = "clicked " + ev.Target.String()
	}
}

// invalidate schedules a redraw on the next frame.
func (c *Console) invalidate() {
	if c.dirty {
		return
	}
	c.dirty = true
	c.coord.Registry().Frame(c.Draw)
}

var (
	styleNormal  = tcell.StyleDefault
	styleHidden  = tcell.StyleDefault.Dim(true)
	styleVisible = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleActive  = tcell.StyleDefault.Reverse(true)
	styleStatus  = tcell.StyleDefault.Reverse(true)
)

// Draw renders the visible rows and the status line.
func (c *Console) Draw() {
	c.dirty = false
	c.screen.Clear()
	cols, rows := c.screen.Size()
	opts := c.coord.Options()

	for y, row := range c.outline.Visible() {
		el := row.Element
		style := styleNormal
		switch {
		case el.HasClass(opts.TouchActiveClass):
			style = styleActive
		case el.Matches(opts.LazySelector) && el.HasClass(opts.VisibleClass):
			style = styleVisible
		case el.Matches(opts.LazySelector):
			style = styleHidden
		}
		indent := strings.Repeat(" ", row.Indent*c.outline.IndentCells)
		drawText(c.screen, 0, y, cols, indent+label(el, opts), style)
	}

	if rows > 0 {
		line := fmt.Sprintf(" %s | row %d/%d | %s",
			c.coord.Layout(), c.outline.Scroll()+1, len(c.outline.Rows()), c.status)
		drawText(c.screen, 0, rows-1, cols, padRight(line, cols), styleStatus)
	}
	c.screen.Show()
}

// label describes an element on one line.
func label(el *dom.Element, opts perf.Options) string {
	var sb strings.Builder
	sb.WriteString(el.String())
	if src, ok := el.Attr(opts.SourceAttr); ok {
		sb.WriteString(" " + opts.SourceAttr + "=" + src)
	}
	if src, ok := el.Attr(opts.DeferredAttr); ok {
		sb.WriteString(" " + opts.DeferredAttr + "=" + src)
	}
	if text := ownText(el); text != "" {
		sb.WriteString(" \"" + text + "\"")
	}
	return sb.String()
}

// ownText returns el's text when it has no child elements.
func ownText(el *dom.Element) string {
	for n := el.Node().FirstChild; n != nil; n = n.NextSibling {
		if el.Document().Wrap(n) != nil {
			return ""
		}
	}
	return el.Text()
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= width {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
