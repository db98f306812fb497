// Package prefetch warms HTTP resources in the background.
//
// A Pool resolves URLs against a base, queues them without blocking the
// caller, and fetches them on a fixed set of workers. Bodies are read and
// discarded so the responses land in any intermediate cache. When the queue
// is full new requests are dropped.
package prefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNotStarted is returned by Close when Start was never called.
var ErrNotStarted = errors.New("prefetch: pool not started")

// Options configures a Pool.
type Options struct {
	BaseURL   string
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Client    *http.Client
	Logger    *zap.Logger
}

// DefaultOptions returns four workers with a 64-entry queue.
func DefaultOptions() Options {
	return Options{
		Workers:   4,
		QueueSize: 64,
		Timeout:   10 * time.Second,
	}
}

// Stats counts pool outcomes.
type Stats struct {
	Queued  int64
	Fetched int64
	Failed  int64
	Dropped int64
}

// Pool is a background fetcher. Prefetch is safe for concurrent use.
type Pool struct {
	base   *url.URL
	client *http.Client
	logger *zap.Logger
	opts   Options

	mu     sync.RWMutex
	queue  chan string
	closed bool

	g      *errgroup.Group
	cancel context.CancelFunc

	queued, fetched, failed, dropped atomic.Int64
}

// New creates a Pool. Zero option fields take their defaults.
func New(opts Options) (*Pool, error) {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}

	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("prefetch: base url: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("prefetch: base url %q is not absolute", opts.BaseURL)
		}
		base = u
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout:   opts.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		base:   base,
		client: client,
		logger: logger.Named("prefetch"),
		opts:   opts,
		queue:  make(chan string, opts.QueueSize),
	}, nil
}

// Start launches the workers. They stop when ctx is cancelled or Close is called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	p.g = g
	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error {
			p.work(gctx)
			return nil
		})
	}
}

// Prefetch queues raw for fetching. It never blocks.
func (p *Pool) Prefetch(raw string) {
	target, err := p.resolve(raw)
	if err != nil {
		p.failed.Add(1)
		p.logger.Debug("prefetch rejected", zap.String("url", raw), zap.Error(err))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.queue <- target:
		p.queued.Add(1)
	default:
		p.dropped.Add(1)
		p.logger.Debug("prefetch queue full", zap.String("url", target))
	}
}

func (p *Pool) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if p.base == nil {
		return "", fmt.Errorf("relative url %q without base", raw)
	}
	return p.base.ResolveReference(ref).String(), nil
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case target, ok := <-p.queue:
			if !ok {
				return
			}
			if err := p.fetch(ctx, target); err != nil {
				p.failed.Add(1)
				p.logger.Debug("prefetch failed", zap.String("url", target), zap.Error(err))
				continue
			}
			p.fetched.Add(1)
		}
	}
}

func (p *Pool) fetch(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// Close stops accepting URLs, lets the workers drain the queue and waits
// for them to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	if p.g == nil {
		return ErrNotStarted
	}
	err := p.g.Wait()
	p.cancel()
	p.client.CloseIdleConnections()
	return err
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Queued:  p.queued.Load(),
		Fetched: p.fetched.Load(),
		Failed:  p.failed.Load(),
		Dropped: p.dropped.Load(),
	}
}
