package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sync"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/adminperf/internal/config"
	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/host/terminal"
	"github.com/dshills/adminperf/internal/perf"
	"github.com/dshills/adminperf/internal/prefetch"
	"github.com/dshills/adminperf/internal/schedule"
	"github.com/dshills/adminperf/internal/server"
	"github.com/dshills/adminperf/web"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses defaults.
	ConfigPath string

	// LogLevel overrides the configured level and pins it across reloads.
	LogLevel string

	// Console sends logs to console.log_file instead of the terminal.
	Console bool

	// Page overrides console.page.
	Page string

	// ConfigOptions are passed to every config load.
	ConfigOptions []config.Option
}

// Application holds the loaded configuration and logger shared by the
// serve and console commands.
type Application struct {
	opts    Options
	logging *Logging
	logger  *zap.Logger

	mu  sync.RWMutex
	cfg *config.Config
}

// New loads configuration and builds the logger.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.ConfigOptions...)
	if err != nil {
		return nil, NewOperationError("load config", opts.ConfigPath, err)
	}
	if opts.LogLevel != "" {
		if _, err := ParseLogLevel(opts.LogLevel); err != nil {
			return nil, NewOperationError("parse", "log level", err)
		}
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Page != "" {
		cfg.Console.Page = opts.Page
	}

	logCfg := cfg.Log
	if opts.Console {
		logCfg.Output = cfg.Console.LogFile
		if logCfg.Output == "" {
			logCfg.Output = OutputDiscard
		}
	}
	logging, err := NewLogging(logCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	return &Application{
		opts:    opts,
		logging: logging,
		logger:  logging.Logger,
		cfg:     cfg,
	}, nil
}

// Config returns the configuration in effect.
func (a *Application) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger {
	return a.logger
}

// Close flushes and closes the logger.
func (a *Application) Close() error {
	var errs ErrorList
	errs.Add(a.logging.Close())
	return errs.AsError()
}

// Serve runs the static server until ctx is cancelled. A config file, when
// given, is watched and reloads adjust the log level.
func (a *Application) Serve(ctx context.Context) error {
	cfg := a.Config()
	srv, err := server.New(cfg.Server, a.logger)
	if err != nil {
		return NewOperationError("create", "server", err)
	}

	if a.opts.ConfigPath != "" {
		w, err := a.watchConfig()
		if err != nil {
			a.logger.Warn("config watch disabled", zap.String("path", a.opts.ConfigPath), zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	return srv.Run(ctx)
}

func (a *Application) watchConfig() (*config.Watcher, error) {
	cfg := a.Config()
	w, err := config.NewWatcher(a.opts.ConfigPath, cfg, cfg.Server.ReloadDebounce, a.logger, a.opts.ConfigOptions...)
	if err != nil {
		return nil, err
	}
	w.OnChange(a.applyConfig)
	w.OnError(func(err error) {
		a.logger.Warn("config reload failed", zap.Error(err))
	})
	return w, nil
}

func (a *Application) applyConfig(old, next *config.Config) {
	if a.opts.LogLevel != "" {
		next.Log.Level = a.opts.LogLevel
	}

	a.mu.Lock()
	a.cfg = next
	a.mu.Unlock()

	if old.Log.Level != next.Log.Level {
		if err := a.logging.SetLevel(next.Log.Level); err != nil {
			a.logger.Warn("log level not changed", zap.String("level", next.Log.Level), zap.Error(err))
		}
	}
	if !reflect.DeepEqual(old.Server, next.Server) {
		a.logger.Info("server settings changed; restart to apply")
	}
	a.logger.Info("config reloaded", zap.String("log_level", next.Log.Level))
}

// Console hosts the admin page in the terminal until the user quits or ctx
// is cancelled.
func (a *Application) Console(ctx context.Context, screen tcell.Screen) error {
	cfg := a.Config()
	doc, err := LoadPage(cfg.Console.Page)
	if err != nil {
		return err
	}
	perfOpts := PerfOptions(cfg.Perf)
	if err := perfOpts.Validate(); err != nil {
		return NewOperationError("validate", "perf options", err)
	}

	var prefetcher schedule.Prefetcher
	if cfg.Console.PreloadImages && cfg.Prefetch.BaseURL != "" {
		pool, err := prefetch.New(prefetch.Options{
			BaseURL:   cfg.Prefetch.BaseURL,
			Workers:   cfg.Prefetch.Workers,
			QueueSize: cfg.Prefetch.QueueSize,
			Timeout:   cfg.Prefetch.Timeout,
			Logger:    a.logger,
		})
		if err != nil {
			return NewOperationError("create", "prefetch pool", err)
		}
		pool.Start(ctx)
		defer func() {
			_ = pool.Close()
			s := pool.Stats()
			a.logger.Info("prefetch finished",
				zap.Int64("fetched", s.Fetched),
				zap.Int64("failed", s.Failed),
				zap.Int64("dropped", s.Dropped),
			)
		}()
		prefetcher = pool
	}

	return terminal.Run(ctx, screen, doc, prefetcher, terminal.Options{
		Perf:       perfOpts,
		CellWidth:  cfg.Console.CellWidth,
		CellHeight: cfg.Console.CellHeight,

		PreloadImages: cfg.Console.PreloadImages,
		Logger:        a.logger,
	})
}

// LoadPage parses the HTML file at path, or the embedded admin page when
// path is empty.
func LoadPage(path string) (*dom.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = fs.ReadFile(web.Static(), "admin.html")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, NewOperationError("read", path, fmt.Errorf("%w: %w", ErrNoPage, err))
	}
	doc, err := dom.ParseString(string(data))
	if err != nil {
		return nil, NewOperationError("parse", path, err)
	}
	return doc, nil
}

// PerfOptions maps configuration onto coordinator options. Zero values keep
// the coordinator defaults.
func PerfOptions(pc config.PerfConfig) perf.Options {
	o := perf.DefaultOptions()
	if pc.RootMargin != 0 {
		o.RootMargin = pc.RootMargin
	}
	if pc.Threshold != 0 {
		o.Threshold = pc.Threshold
	}
	if pc.Breakpoint != 0 {
		o.Breakpoint = pc.Breakpoint
	}
	if pc.DoubleTapWindow != 0 {
		o.DoubleTapWindow = pc.DoubleTapWindow
	}
	if pc.TouchLinger != 0 {
		o.TouchLinger = pc.TouchLinger
	}
	if pc.LazySelector != "" {
		o.LazySelector = pc.LazySelector
	}
	if pc.ContainerSelector != "" {
		o.ContainerSelector = pc.ContainerSelector
	}
	if pc.TouchSelector != "" {
		o.TouchSelector = pc.TouchSelector
	}
	if pc.SaveShortcut != "" {
		o.SaveShortcut = pc.SaveShortcut
	}
	if pc.PreviewShortcut != "" {
		o.PreviewShortcut = pc.PreviewShortcut
	}
	if pc.CloseShortcut != "" {
		o.CloseShortcut = pc.CloseShortcut
	}
	return o
}
