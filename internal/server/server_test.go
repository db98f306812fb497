package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/adminperf/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig(dir string) config.ServerConfig {
	cfg := config.Default().Server
	cfg.StaticDir = dir
	return cfg
}

func newTestServer(t *testing.T, cfg config.ServerConfig, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := New(cfg, nil, opts...)
	require.NoError(t, err)
	return s
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleTest(t *testing.T) {
	cfg := testConfig("")
	cfg.Environment = "staging"
	s := newTestServer(t, cfg)

	rec := do(t, s.Handler(), "/test")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, "staging", body["environment"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), body["timestamp"])
}

func TestHandleCheckFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"admin.html": "<html></html>",
		"extra.js":   "//",
	})
	s := newTestServer(t, testConfig(dir))

	rec := do(t, s.Handler(), "/check-files")
	require.Equal(t, http.StatusOK, rec.Code)

	var body checkFilesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, body.Directory)
	assert.Equal(t, []string{"admin.html", "extra.js"}, body.Files)
	assert.Equal(t, map[string]bool{"admin.html": true, "admin.css": false}, body.Expected)
}

func TestHandleCheckFilesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	s := newTestServer(t, testConfig(dir))

	rec := do(t, s.Handler(), "/check-files")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "filesystem_error", body["error"])
	assert.NotEmpty(t, body["message"])
}

func TestHandleAdmin(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"admin.html": "<div class=\"main-container\"></div>"})
	s := newTestServer(t, testConfig(dir))

	rec := do(t, s.Handler(), "/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "main-container")
}

func TestHandleAdminMissing(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(t, testConfig(dir))

	rec := do(t, s.Handler(), "/admin")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "missing_file", body["error"])
	assert.NotEmpty(t, body["message"])
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(abs, "admin.html"), body["path"])
}

func TestRootRedirects(t *testing.T) {
	s := newTestServer(t, testConfig(""))

	rec := do(t, s.Handler(), "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestUnknownPathNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(""))

	rec := do(t, s.Handler(), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmbeddedAssets(t *testing.T) {
	s := newTestServer(t, testConfig(""))
	h := s.Handler()

	rec := do(t, h, "/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, want := range []string{"main-container", "lazy-load", "data-src", "save-all-btn", "preview-btn", "modal-close"} {
		assert.Contains(t, rec.Body.String(), want)
	}

	rec = do(t, h, "/static/admin.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".touch-active")

	rec = do(t, h, "/check-files")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "embedded", body["directory"])
	assert.Equal(t, map[string]any{"admin.html": true, "admin.css": true}, body["expected"])
}

func TestWithFS(t *testing.T) {
	fsys := fstest.MapFS{"admin.html": {Data: []byte("from map")}}
	s := newTestServer(t, testConfig(""), WithFS(fsys))

	rec := do(t, s.Handler(), "/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from map", rec.Body.String())
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, testConfig(""))
	h := s.Handler()

	rec := do(t, h, "/test")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t, testConfig(""))
	h := withRequestID(withRecovery(s.logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := do(t, h, "/anything")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal_error", body["error"])
}

func TestErrorCodeForStatus(t *testing.T) {
	assert.Equal(t, "not_found", errorCodeForStatus(http.StatusNotFound))
	assert.Equal(t, "invalid_request", errorCodeForStatus(http.StatusBadRequest))
	assert.Equal(t, "internal_error", errorCodeForStatus(http.StatusBadGateway))
	assert.Equal(t, "", errorCodeForStatus(http.StatusOK))
}

func TestSameOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://localhost:3000/ws/reload", nil)
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, sameOrigin(req))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws/reload"
}

func waitForClients(t *testing.T, hub *ReloadHub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestReloadHubBroadcast(t *testing.T) {
	s := newTestServer(t, testConfig(""))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Hub().Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	waitForClients(t, s.Hub(), 1)
	assert.Equal(t, 1, s.Hub().Broadcast("admin.css"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg reloadMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, "admin.css", msg.Path)

	require.NoError(t, conn.Close())
	waitForClients(t, s.Hub(), 0)
}

func TestReloadHubRejectsAfterClose(t *testing.T) {
	s := newTestServer(t, testConfig(""))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	s.Hub().Close()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, s.Hub().Clients())
}

func TestServeLiveReload(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"admin.html": "v1", "admin.css": "body{}"})

	cfg := testConfig(dir)
	cfg.LiveReload = true
	cfg.ReloadDebounce = 20 * time.Millisecond
	s := newTestServer(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/test")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(base), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, s.Hub(), 1)

	writeFiles(t, dir, map[string]string{"admin.css": "body{color:red}"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg reloadMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, "admin.css", msg.Path)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	http.DefaultClient.CloseIdleConnections()
}
