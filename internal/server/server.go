// Package server serves the admin page, its static assets and a few
// diagnostic endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/adminperf/internal/config"
	"github.com/dshills/adminperf/internal/watch"
	"github.com/dshills/adminperf/web"
)

// Server is the static admin server.
type Server struct {
	cfg    config.ServerConfig
	logger *zap.Logger
	files  fs.FS
	root   string // absolute static dir, empty when serving embedded assets
	hub    *ReloadHub
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithFS serves files from fsys instead of the configured directory.
func WithFS(fsys fs.FS) Option {
	return func(s *Server) { s.files = fsys }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a server. An empty StaticDir serves the embedded assets.
func New(cfg config.ServerConfig, logger *zap.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.Named("server"),
		now:    time.Now,
	}
	if cfg.StaticDir != "" {
		abs, err := filepath.Abs(cfg.StaticDir)
		if err != nil {
			return nil, fmt.Errorf("resolving static dir: %w", err)
		}
		s.root = abs
		s.files = os.DirFS(abs)
	} else {
		s.files = web.Static()
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewReloadHub(s.logger)
	return s, nil
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *ReloadHub {
	return s.hub
}

func (s *Server) directory() string {
	if s.root == "" {
		return "embedded"
	}
	return s.root
}

func (s *Server) adminPath() string {
	if s.root == "" {
		return s.cfg.AdminFile
	}
	return filepath.Join(s.root, s.cfg.AdminFile)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /test", s.handleTest)
	mux.HandleFunc("GET /check-files", s.handleCheckFiles)
	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.files)))
	mux.Handle("GET /ws/reload", s.hub)

	var h http.Handler = mux
	h = withRecovery(s.logger, h)
	h = withAccessLog(s.logger, h)
	h = withRequestID(h)
	return h
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
// The static directory is watched for live reload when enabled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.cfg.LiveReload && s.root != "" {
		w, err := watch.New(watch.Options{
			Debounce:     s.cfg.ReloadDebounce,
			IgnoreHidden: true,
		})
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("starting static watcher: %w", err)
		}
		if err := w.AddRecursive(s.root); err != nil {
			_ = w.Close()
			_ = ln.Close()
			return fmt.Errorf("watching %s: %w", s.root, err)
		}
		g.Go(func() error {
			defer w.Close()
			s.hub.Pump(gctx, w, s.root)
			return nil
		})
	}

	g.Go(func() error {
		s.logger.Info("listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("static", s.directory()),
			zap.String("environment", s.cfg.Environment),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.hub.Close()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		s.logger.Info("stopped")
		return nil
	})

	return g.Wait()
}
