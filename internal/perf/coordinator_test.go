package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/input/key"
	"github.com/dshills/adminperf/internal/observe"
	"github.com/dshills/adminperf/internal/schedule"
	"github.com/dshills/adminperf/internal/schedule/schedtest"
)

const adminPage = `<!DOCTYPE html>
<html><body>
<div class="main-container" id="main">
  <nav>
    <a class="nav-tab" id="tab-1"><span id="tab-label">General</span></a>
  </nav>
  <section class="lazy-load" id="s1">
    <img id="img-a" data-src="/img/a.png">
    <div><img id="img-b" data-src="/img/b.png"></div>
    <img id="img-c" src="/img/c.png">
  </section>
  <section class="lazy-load" id="s2"><img id="img-d" data-src="/img/d.png"></section>
  <ul><li class="dynamic-list-item" id="item-1">One</li></ul>
  <button id="save-all-btn" class="btn primary">Save</button>
  <button id="preview-btn" class="btn">Preview</button>
  <p id="plain">text</p>
  <div class="modal active" id="modal"><button class="modal-close" id="modal-close">x</button></div>
</div>
</body></html>`

// fakeObserver records registrations and lets tests deliver entries
// whenever they like, including after Disconnect.
type fakeObserver struct {
	observed     map[*dom.Element]bool
	disconnected bool
}

func (o *fakeObserver) Observe(el *dom.Element)   { o.observed[el] = true }
func (o *fakeObserver) Unobserve(el *dom.Element) { delete(o.observed, el) }
func (o *fakeObserver) Disconnect() {
	o.disconnected = true
	clear(o.observed)
}

type fakeVisibility struct {
	opts observe.VisibilityOptions
	cb   func([]observe.VisibilityEntry)
	obs  *fakeObserver
}

func (f *fakeVisibility) ObserveVisibility(opts observe.VisibilityOptions, cb func([]observe.VisibilityEntry)) observe.Observer {
	f.opts, f.cb = opts, cb
	f.obs = &fakeObserver{observed: make(map[*dom.Element]bool)}
	return f.obs
}

func (f *fakeVisibility) intersect(els ...*dom.Element) {
	entries := make([]observe.VisibilityEntry, 0, len(els))
	for _, el := range els {
		entries = append(entries, observe.VisibilityEntry{Target: el, Intersecting: true, Ratio: 1})
	}
	f.cb(entries)
}

type fakeSize struct {
	cb  func([]observe.SizeEntry)
	obs *fakeObserver
}

func (f *fakeSize) ObserveSize(cb func([]observe.SizeEntry)) observe.Observer {
	f.cb = cb
	f.obs = &fakeObserver{observed: make(map[*dom.Element]bool)}
	return f.obs
}

func (f *fakeSize) resize(el *dom.Element, width float64) {
	f.cb([]observe.SizeEntry{{Target: el, Width: width, Height: 600}})
}

type fixture struct {
	doc   *dom.Document
	clock *schedtest.Fake
	vis   *fakeVisibility
	size  *fakeSize
	pre   *schedtest.Prefetcher
	c     *Coordinator
}

func newFixture(t *testing.T, page string) *fixture {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	f := &fixture{
		doc:   doc,
		clock: schedtest.New(),
		vis:   &fakeVisibility{},
		size:  &fakeSize{},
		pre:   &schedtest.Prefetcher{},
	}
	f.c, err = New(doc, f.ports(), DefaultOptions(), nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) ports() Ports {
	return Ports{
		Visibility: f.vis,
		Size:       f.size,
		Frames:     f.clock,
		Timers:     f.clock,
		Clock:      f.clock,
		Prefetcher: f.pre,
	}
}

func (f *fixture) el(t *testing.T, sel string) *dom.Element {
	t.Helper()
	el := f.doc.Query(sel)
	require.NotNil(t, el, sel)
	return el
}

func (f *fixture) touch(target *dom.Element, typ string) *dom.Event {
	ev := dom.NewEvent(typ, f.clock.Now())
	target.Dispatch(ev)
	return ev
}

func (f *fixture) keydown(spec string) *dom.Event {
	ev := dom.NewKeyEvent(key.MustParse(spec))
	f.doc.Dispatch(nil, ev)
	return ev
}

func TestNewValidation(t *testing.T) {
	doc, err := dom.ParseString(adminPage)
	require.NoError(t, err)
	clock := schedtest.New()
	full := Ports{Visibility: &fakeVisibility{}, Size: &fakeSize{}, Frames: clock, Timers: clock}

	_, err = New(nil, full, DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrNilDocument)
	var ce *ComponentError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "coordinator", ce.Component)

	missing := full
	missing.Visibility = nil
	_, err = New(doc, missing, DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrMissingPort)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "visibility", ce.Component)

	missing = full
	missing.Timers = nil
	_, err = New(doc, missing, DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrMissingPort)

	bad := DefaultOptions()
	bad.SaveShortcut = "Mod+"
	_, err = New(doc, full, bad, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	bad = DefaultOptions()
	bad.TouchSelector = "["
	_, err = New(doc, full, bad, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	c, err := New(doc, full, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
	assert.Same(t, doc, c.Document())
}

func TestVisibilityRegistersLazyRoots(t *testing.T) {
	f := newFixture(t, adminPage)
	assert.Equal(t, observe.VisibilityOptions{RootMargin: 50, Threshold: 0.1}, f.vis.opts)
	assert.Len(t, f.vis.obs.observed, 2)
	assert.True(t, f.vis.obs.observed[f.el(t, "#s1")])

	state, ok := f.c.VisibilityOf(f.el(t, "#s1"))
	require.True(t, ok)
	assert.Equal(t, Hidden, state)
}

func TestVisibilityRevealMovesDeferredSources(t *testing.T) {
	f := newFixture(t, adminPage)
	s1 := f.el(t, "#s1")

	f.vis.intersect(s1)

	assert.True(t, s1.HasClass("visible"))
	for id, want := range map[string]string{"#img-a": "/img/a.png", "#img-b": "/img/b.png", "#img-c": "/img/c.png"} {
		img := f.el(t, id)
		src, ok := img.Attr("src")
		assert.True(t, ok, id)
		assert.Equal(t, want, src, id)
		assert.False(t, img.HasAttr("data-src"), id)
	}
	assert.False(t, f.vis.obs.observed[s1], "revealed root is unobserved")
	assert.True(t, f.vis.obs.observed[f.el(t, "#s2")])
	assert.False(t, f.el(t, "#img-d").HasAttr("src"))

	state, _ := f.c.VisibilityOf(s1)
	assert.Equal(t, Visible, state)
}

func TestVisibilityFiresOnce(t *testing.T) {
	f := newFixture(t, adminPage)
	s1 := f.el(t, "#s1")
	f.vis.intersect(s1)

	// Changes made after the first reveal must survive a repeated callback.
	s1.RemoveClass("visible")
	img := f.el(t, "#img-a")
	img.SetAttr("data-src", "/img/other.png")

	f.vis.intersect(s1)
	assert.False(t, s1.HasClass("visible"))
	src, _ := img.Attr("src")
	assert.Equal(t, "/img/a.png", src)
	assert.True(t, img.HasAttr("data-src"))
}

func TestVisibilityIgnoresLeavingEntries(t *testing.T) {
	f := newFixture(t, adminPage)
	s1 := f.el(t, "#s1")
	f.vis.cb([]observe.VisibilityEntry{{Target: s1, Intersecting: false}})
	assert.False(t, s1.HasClass("visible"))
	assert.True(t, f.vis.obs.observed[s1])
}

func TestRescan(t *testing.T) {
	f := newFixture(t, adminPage)
	assert.Zero(t, f.c.Rescan())

	added, err := f.doc.AppendHTML(f.el(t, "#main"), `<section class="lazy-load" id="s3"><img data-src="/img/e.png"></section>`)
	require.NoError(t, err)
	require.Len(t, added, 1)

	assert.False(t, f.vis.obs.observed[added[0]], "new roots are not picked up automatically")
	assert.Equal(t, 1, f.c.Rescan())
	assert.True(t, f.vis.obs.observed[added[0]])
	assert.Zero(t, f.c.Rescan())
}

func TestLayoutAllWidths(t *testing.T) {
	f := newFixture(t, adminPage)
	main := f.el(t, "#main")
	assert.True(t, f.size.obs.observed[main])
	assert.Equal(t, LayoutUnknown, f.c.Layout())

	widths := []float64{0, 320, 767, 767.9, 768, 768.1, 1024, 1920, 767, 768, 768, 100, 100}
	for _, w := range widths {
		f.size.resize(main, w)
		mobile := w < 768
		assert.Equal(t, mobile, main.HasClass("mobile-layout"), "width %v", w)
		assert.Equal(t, !mobile, main.HasClass("desktop-layout"), "width %v", w)
		if mobile {
			assert.Equal(t, LayoutMobile, f.c.Layout())
		} else {
			assert.Equal(t, LayoutDesktop, f.c.Layout())
		}
	}
	assert.Equal(t, []string{"main-container", "mobile-layout"}, main.Classes())
}

func TestLayoutWithoutContainer(t *testing.T) {
	f := newFixture(t, `<div id="x"></div>`)
	assert.Nil(t, f.size.cb, "no container, no observer")
	assert.Equal(t, LayoutUnknown, f.c.Layout())
}

func TestDoubleTapSuppression(t *testing.T) {
	f := newFixture(t, adminPage)
	btn := f.el(t, "#save-all-btn")

	first := f.touch(btn, dom.EventTouchEnd)
	assert.False(t, first.DefaultPrevented())

	f.clock.Advance(200 * time.Millisecond)
	second := f.touch(btn, dom.EventTouchEnd)
	assert.True(t, second.DefaultPrevented())

	f.clock.Advance(400 * time.Millisecond)
	third := f.touch(btn, dom.EventTouchEnd)
	assert.False(t, third.DefaultPrevented())

	f.clock.Advance(300 * time.Millisecond)
	fourth := f.touch(f.el(t, "#plain"), dom.EventTouchEnd)
	assert.True(t, fourth.DefaultPrevented(), "window is inclusive and spans all targets")
}

func TestTouchActiveMark(t *testing.T) {
	f := newFixture(t, adminPage)
	tab := f.el(t, "#tab-1")
	label := f.el(t, "#tab-label")

	f.touch(label, dom.EventTouchStart)
	assert.True(t, tab.HasClass("touch-active"), "closest control is marked")
	assert.False(t, label.HasClass("touch-active"))

	f.touch(label, dom.EventTouchEnd)
	f.clock.Advance(149 * time.Millisecond)
	assert.True(t, tab.HasClass("touch-active"))
	f.clock.Advance(time.Millisecond)
	assert.False(t, tab.HasClass("touch-active"))
}

func TestTouchRestartCancelsRelease(t *testing.T) {
	f := newFixture(t, adminPage)
	item := f.el(t, "#item-1")

	f.touch(item, dom.EventTouchStart)
	f.touch(item, dom.EventTouchEnd)
	f.clock.Advance(100 * time.Millisecond)
	f.touch(item, dom.EventTouchStart)
	f.clock.Advance(100 * time.Millisecond)
	assert.True(t, item.HasClass("touch-active"), "pending release was cancelled")

	f.touch(item, dom.EventTouchEnd)
	f.clock.Advance(150 * time.Millisecond)
	assert.False(t, item.HasClass("touch-active"))
}

func TestTouchIgnoresPlainElements(t *testing.T) {
	f := newFixture(t, adminPage)
	plain := f.el(t, "#plain")
	f.touch(plain, dom.EventTouchStart)
	f.touch(plain, dom.EventTouchEnd)
	assert.False(t, plain.HasClass("touch-active"))
	assert.Zero(t, f.c.Registry().Len())
}

func TestShortcutSave(t *testing.T) {
	f := newFixture(t, adminPage)
	saves, previews := 0, 0
	f.el(t, "#save-all-btn").AddEventListener(dom.EventClick, func(*dom.Event) { saves++ })
	f.el(t, "#preview-btn").AddEventListener(dom.EventClick, func(*dom.Event) { previews++ })

	ev := f.keydown("Ctrl+s")
	assert.Equal(t, 1, saves)
	assert.Zero(t, previews)
	assert.True(t, ev.DefaultPrevented())

	ev = f.keydown("Meta+s")
	assert.Equal(t, 2, saves)
	assert.True(t, ev.DefaultPrevented())

	ev = f.keydown("Ctrl+p")
	assert.Equal(t, 1, previews)
	assert.True(t, ev.DefaultPrevented())

	ev = f.keydown("s")
	assert.Equal(t, 2, saves)
	assert.False(t, ev.DefaultPrevented())

	ev = f.keydown("Alt+s")
	assert.Equal(t, 2, saves)
	assert.False(t, ev.DefaultPrevented())
}

func TestShortcutMissingTrigger(t *testing.T) {
	f := newFixture(t, `<div class="main-container"></div>`)
	ev := f.keydown("Ctrl+s")
	assert.True(t, ev.DefaultPrevented(), "matched combination is suppressed even without a trigger")
}

func TestShortcutEscapeClosesActiveModal(t *testing.T) {
	f := newFixture(t, adminPage)
	closes := 0
	f.el(t, "#modal-close").AddEventListener(dom.EventClick, func(*dom.Event) {
		closes++
		f.el(t, "#modal").RemoveClass("active")
	})

	ev := f.keydown("Escape")
	assert.Equal(t, 1, closes)
	assert.False(t, ev.DefaultPrevented())

	f.keydown("Escape")
	assert.Equal(t, 1, closes, "no active modal")

	f.el(t, "#modal").AddClass("active")
	f.keydown("Ctrl+Escape")
	assert.Equal(t, 1, closes, "modifiers disqualify escape")
}

func TestOptimizeScrollAndPreload(t *testing.T) {
	f := newFixture(t, adminPage)
	n := 0
	f.c.OptimizeScroll(f.doc, func() { n++ })
	f.doc.Dispatch(nil, dom.NewScrollEvent(f.clock.Now()))
	f.doc.Dispatch(nil, dom.NewScrollEvent(f.clock.Now()))
	f.clock.Flush()
	assert.Equal(t, 1, n)

	f.c.PreloadImages([]string{"/img/x.png"})
	assert.Equal(t, []string{"/img/x.png"}, f.pre.URLs())
}

func TestRegistryDebounceThroughCoordinator(t *testing.T) {
	f := newFixture(t, adminPage)
	var got []string
	search := schedule.Debounce(f.c.Registry(), func(q string) { got = append(got, q) }, 250*time.Millisecond)
	search("a")
	search("ad")
	search("adm")
	f.clock.Advance(250 * time.Millisecond)
	assert.Equal(t, []string{"adm"}, got)
}

func TestDispose(t *testing.T) {
	f := newFixture(t, adminPage)
	main := f.el(t, "#main")
	s1 := f.el(t, "#s1")
	btn := f.el(t, "#save-all-btn")
	saves := 0
	btn.AddEventListener(dom.EventClick, func(*dom.Event) { saves++ })

	f.touch(btn, dom.EventTouchStart)
	f.touch(btn, dom.EventTouchEnd)
	pending := 0
	debounced := schedule.Debounce(f.c.Registry(), func(int) { pending++ }, time.Second)
	debounced(1)
	require.Positive(t, f.c.Registry().Len())

	before := f.doc.ListenerCount()
	f.c.Dispose()
	f.c.Dispose()
	assert.True(t, f.c.Disposed())

	assert.True(t, f.vis.obs.disconnected)
	assert.True(t, f.size.obs.disconnected)
	assert.Zero(t, f.c.Registry().Len())
	assert.Zero(t, f.clock.PendingTimers())
	assert.Equal(t, before-4, f.doc.ListenerCount(), "touch and keydown listeners removed")

	// Late callbacks from ports and timers change nothing.
	html := f.doc.String()
	f.vis.intersect(s1)
	f.size.resize(main, 300)
	f.clock.Advance(time.Hour)
	debounced(2)
	f.clock.Advance(time.Hour)
	assert.Equal(t, html, f.doc.String())
	assert.Zero(t, pending)
	assert.True(t, btn.HasClass("touch-active"), "mark stays as it was at disposal")

	ev := f.keydown("Ctrl+s")
	assert.Zero(t, saves)
	assert.False(t, ev.DefaultPrevented())
	assert.Zero(t, f.c.Rescan())

	f.c.PreloadImages([]string{"/img/x.png"})
	assert.Empty(t, f.pre.URLs())
}
