package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/schedule"
	"github.com/dshills/adminperf/internal/schedule/schedtest"
)

func TestDebounceRunsLastCallOnce(t *testing.T) {
	for _, n := range []int{1, 2, 5, 20} {
		r, f := newRegistry()
		var got []int
		fn := schedule.Debounce(r, func(v int) { got = append(got, v) }, 100*time.Millisecond)

		for i := 1; i <= n; i++ {
			fn(i)
			f.Advance(10 * time.Millisecond)
		}
		assert.Empty(t, got, "n=%d fired inside the quiet window", n)

		f.Advance(100 * time.Millisecond)
		assert.Equal(t, []int{n}, got, "n=%d", n)
	}
}

func TestDebounceWrappersAreIndependent(t *testing.T) {
	r, f := newRegistry()
	var got []string
	a := schedule.Debounce(r, func(s string) { got = append(got, "a:"+s) }, 50*time.Millisecond)
	b := schedule.Debounce(r, func(s string) { got = append(got, "b:"+s) }, 50*time.Millisecond)

	a("1")
	b("1")
	f.Advance(50 * time.Millisecond)
	assert.ElementsMatch(t, []string{"a:1", "b:1"}, got)
}

func TestDebounceKeySharesIdentity(t *testing.T) {
	r, f := newRegistry()
	var got []string
	a := schedule.DebounceKey(r, "search", func(s string) { got = append(got, "a:"+s) }, 50*time.Millisecond)
	b := schedule.DebounceKey(r, "search", func(s string) { got = append(got, "b:"+s) }, 50*time.Millisecond)

	a("1")
	b("2")
	f.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"b:2"}, got)
}

func TestThrottle(t *testing.T) {
	const interval = 100 * time.Millisecond
	r, f := newRegistry()
	var got []int
	fn := schedule.Throttle(r, func(v int) { got = append(got, v) }, interval)

	fn(1)
	f.Advance(interval / 2)
	fn(2)
	f.Advance(interval / 2)
	assert.Equal(t, []int{1}, got)

	fn(3)
	assert.Equal(t, []int{1, 3}, got)

	f.Advance(interval)
	fn(4)
	assert.Equal(t, []int{1, 3, 4}, got)
}

func TestThrottleReopensAfterClear(t *testing.T) {
	r, f := newRegistry()
	var got []int
	fn := schedule.Throttle(r, func(v int) { got = append(got, v) }, 100*time.Millisecond)

	fn(1)
	r.Clear()
	f.Advance(time.Hour)
	fn(2)
	assert.Equal(t, []int{1, 2}, got)

	fn(3)
	assert.Equal(t, []int{1, 2}, got)
}

func TestThrottleAfterDispose(t *testing.T) {
	r, _ := newRegistry()
	n := 0
	fn := schedule.Throttle(r, func(struct{}) { n++ }, time.Second)
	r.Dispose()
	fn(struct{}{})
	assert.Zero(t, n)
}

func TestDebounceAfterDispose(t *testing.T) {
	r, f := newRegistry()
	n := 0
	fn := schedule.Debounce(r, func(int) { n++ }, time.Millisecond)
	fn(1)
	r.Dispose()
	fn(2)
	f.Advance(time.Second)
	assert.Zero(t, n)
}

func TestOptimizeScrollCoalescesPerFrame(t *testing.T) {
	r, f := newRegistry()
	doc, err := dom.ParseString(`<div id="pane"></div>`)
	require.NoError(t, err)
	pane := doc.Query("#pane")

	n := 0
	remove := schedule.OptimizeScroll(r, pane, func() { n++ })

	for i := 0; i < 5; i++ {
		pane.Dispatch(dom.NewScrollEvent(f.Now()))
	}
	assert.Equal(t, 1, f.PendingFrames())
	f.Flush()
	assert.Equal(t, 1, n)

	pane.Dispatch(dom.NewScrollEvent(f.Now()))
	f.Flush()
	assert.Equal(t, 2, n)

	remove()
	pane.Dispatch(dom.NewScrollEvent(f.Now()))
	assert.Zero(t, f.PendingFrames())
}

func TestOptimizeScrollRemovedOnDispose(t *testing.T) {
	r, f := newRegistry()
	doc, err := dom.ParseString(`<div id="pane"></div>`)
	require.NoError(t, err)

	before := doc.ListenerCount()
	schedule.OptimizeScroll(r, doc, func() {})
	assert.Equal(t, before+1, doc.ListenerCount())

	r.Dispose()
	assert.Equal(t, before, doc.ListenerCount())

	doc.Dispatch(nil, dom.NewScrollEvent(f.Now()))
	assert.Zero(t, f.PendingFrames())
}

func TestOptimizeScrollWithoutFrames(t *testing.T) {
	f := schedtest.New()
	r := schedule.NewRegistry(f, nil)
	doc, err := dom.ParseString(`<div id="pane"></div>`)
	require.NoError(t, err)

	before := doc.ListenerCount()
	remove := schedule.OptimizeScroll(r, doc, func() {})
	require.NotNil(t, remove)
	assert.Equal(t, before, doc.ListenerCount())
	remove()
}

func TestPreloadImages(t *testing.T) {
	p := &schedtest.Prefetcher{}
	schedule.PreloadImages(p, []string{"/a.png", "", "/b.png"})
	assert.Equal(t, []string{"/a.png", "/b.png"}, p.URLs())

	schedule.PreloadImages(nil, []string{"/c.png"})
}
