package prefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

type hits struct {
	mu    sync.Mutex
	paths []string
}

func (h *hits) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.paths = append(h.paths, r.URL.Path)
		h.mu.Unlock()
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("img"))
	})
}

func (h *hits) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func TestPoolFetchesRelativeAndAbsolute(t *testing.T) {
	h := &hits{}
	srv := httptest.NewServer(h.handler())
	defer srv.Close()

	p, err := New(Options{BaseURL: srv.URL + "/static/", Workers: 2})
	require.NoError(t, err)
	p.Start(context.Background())

	p.Prefetch("img/a.png")
	p.Prefetch("/b.png")
	p.Prefetch(srv.URL + "/c.png")
	p.Prefetch("/missing.png")

	require.NoError(t, p.Close())
	assert.ElementsMatch(t, []string{"/static/img/a.png", "/b.png", "/c.png", "/missing.png"}, h.list())

	st := p.Stats()
	assert.Equal(t, int64(4), st.Queued)
	assert.Equal(t, int64(3), st.Fetched)
	assert.Equal(t, int64(1), st.Failed)

	p.Prefetch("/late.png")
	assert.Equal(t, int64(1), p.Stats().Dropped)
	assert.NoError(t, p.Close())
}

func TestPoolRelativeWithoutBase(t *testing.T) {
	p, err := New(Options{})
	require.NoError(t, err)
	p.Start(context.Background())
	p.Prefetch("/a.png")
	require.NoError(t, p.Close())
	assert.Equal(t, Stats{Failed: 1}, p.Stats())
}

func TestPoolDropsWhenFull(t *testing.T) {
	p, err := New(Options{BaseURL: "http://example.invalid", QueueSize: 2})
	require.NoError(t, err)

	// Not started: nothing drains the queue.
	p.Prefetch("/1")
	p.Prefetch("/2")
	p.Prefetch("/3")
	st := p.Stats()
	assert.Equal(t, int64(2), st.Queued)
	assert.Equal(t, int64(1), st.Dropped)
	assert.ErrorIs(t, p.Close(), ErrNotStarted)
}

func TestNewRejectsRelativeBase(t *testing.T) {
	_, err := New(Options{BaseURL: "/static"})
	assert.Error(t, err)
}
