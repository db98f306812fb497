package config

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/watch"
)

// ChangeHandler receives the previous and the newly loaded configuration.
type ChangeHandler func(old, new *Config)

// Watcher reloads a config file when it changes on disk.
//
// The file's directory is watched so editors that replace the file by
// rename are handled. Reloads that fail validation keep the current
// configuration and are reported to error handlers.
type Watcher struct {
	path   string
	opts   []Option
	logger *zap.Logger
	fw     *watch.Watcher

	mu       sync.RWMutex
	current  *Config
	handlers []ChangeHandler
	errs     []func(error)

	wg sync.WaitGroup
}

// NewWatcher starts watching path. current is the configuration already in
// effect; opts are passed to every reload.
func NewWatcher(path string, current *Config, debounce time.Duration, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := filepath.Base(abs)
	fw, err := watch.New(watch.Options{
		Debounce: debounce,
		Filter: func(ev watch.Event) bool {
			return filepath.Base(ev.Path) == base
		},
	})
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    abs,
		opts:    append([]Option{WithLogger(logger.Named("config"))}, opts...),
		logger:  logger.Named("config"),
		fw:      fw,
		current: current,
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// OnChange registers fn to run after each successful reload.
func (w *Watcher) OnChange(fn ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// OnError registers fn to receive reload and watch errors.
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errs = append(w.errs, fn)
}

// Current returns the configuration in effect.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops watching and waits for in-flight handlers.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	events, errs := w.fw.Events(), w.fw.Errors()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.reload(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.fail(err)
		}
	}
}

func (w *Watcher) reload(ev watch.Event) {
	if _, err := os.Stat(w.path); err != nil {
		// Removed or mid-rename; the next create event reloads.
		w.logger.Debug("config file unavailable", zap.String("op", ev.Op.String()))
		return
	}
	next, err := Load(w.path, w.opts...)
	if err != nil {
		w.fail(err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = next
	handlers := slices.Clone(w.handlers)
	w.mu.Unlock()

	w.logger.Info("config reloaded", zap.String("path", w.path))
	for _, h := range handlers {
		h(old, next)
	}
}

func (w *Watcher) fail(err error) {
	w.logger.Warn("config reload failed", zap.Error(err))
	w.mu.RLock()
	errs := slices.Clone(w.errs)
	w.mu.RUnlock()
	for _, fn := range errs {
		fn(err)
	}
}
