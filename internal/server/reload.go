package server

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/watch"
)

const reloadWriteTimeout = 10 * time.Second

type reloadMessage struct {
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type reloadClient struct {
	conn *websocket.Conn
	send chan reloadMessage
}

// ReloadHub pushes change notices to connected pages over websockets.
type ReloadHub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*reloadClient]struct{}
	closed  bool
}

// NewReloadHub creates an empty hub.
func NewReloadHub(logger *zap.Logger) *ReloadHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReloadHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
		clients: make(map[*reloadClient]struct{}),
	}
}

// sameOrigin accepts requests without an Origin header and those whose
// origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &reloadClient{conn: conn, send: make(chan reloadMessage, 16)}
	if !h.add(c) {
		return
	}
	defer h.remove(c)

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case msg := <-c.send:
				if err := conn.SetWriteDeadline(time.Now().Add(reloadWriteTimeout)); err != nil {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ReloadHub) add(c *reloadClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *ReloadHub) remove(c *reloadClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Clients returns the number of connected pages.
func (h *ReloadHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues a reload notice for every client. Slow clients miss it.
func (h *ReloadHub) Broadcast(path string) int {
	msg := reloadMessage{Type: "reload", Path: path, Timestamp: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			sent++
		default:
			h.logger.Debug("reload notice dropped", zap.String("path", path))
		}
	}
	return sent
}

// Close disconnects every client and rejects new ones.
func (h *ReloadHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		_ = c.conn.Close()
	}
}

// Pump broadcasts watcher events, relative to root, until ctx is done or
// the watcher is closed.
func (h *ReloadHub) Pump(ctx context.Context, w *watch.Watcher, root string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			rel, err := filepath.Rel(root, ev.Path)
			if err != nil {
				rel = ev.Path
			}
			rel = filepath.ToSlash(rel)
			n := h.Broadcast(rel)
			h.logger.Debug("static file changed",
				zap.String("path", rel),
				zap.Stringer("op", ev.Op),
				zap.Int("clients", n),
			)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			h.logger.Warn("static watcher error", zap.Error(err))
		}
	}
}
