// Package config defines the adminperf configuration and loads it from
// TOML or YAML files and the environment.
//
// Precedence, lowest first: built-in defaults, the config file, environment
// variables. PORT is honoured for the listening port alongside
// ADMINPERF_SERVER_PORT, which wins when both are set.
package config

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/adminperf/internal/config/loader"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ADMINPERF_"

// Config is the complete adminperf configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Perf     PerfConfig     `yaml:"perf" toml:"perf"`
	Prefetch PrefetchConfig `yaml:"prefetch" toml:"prefetch"`
	Console  ConsoleConfig  `yaml:"console" toml:"console"`
}

// ServerConfig configures the static file server.
type ServerConfig struct {
	Host              string        `yaml:"host" toml:"host"`
	Port              int           `yaml:"port" toml:"port"`
	StaticDir         string        `yaml:"static_dir" toml:"static_dir"`
	AdminFile         string        `yaml:"admin_file" toml:"admin_file"`
	ExpectedFiles     []string      `yaml:"expected_files" toml:"expected_files"`
	Environment       string        `yaml:"environment" toml:"environment"`
	LiveReload        bool          `yaml:"live_reload" toml:"live_reload"`
	ReloadDebounce    time.Duration `yaml:"reload_debounce" toml:"reload_debounce"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" toml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // json or console
	Output string `yaml:"output" toml:"output"` // stderr, stdout or a file path
}

// PerfConfig overrides the coordinator's DOM contract and timings.
type PerfConfig struct {
	RootMargin        float64       `yaml:"root_margin" toml:"root_margin"`
	Threshold         float64       `yaml:"threshold" toml:"threshold"`
	Breakpoint        float64       `yaml:"breakpoint" toml:"breakpoint"`
	DoubleTapWindow   time.Duration `yaml:"double_tap_window" toml:"double_tap_window"`
	TouchLinger       time.Duration `yaml:"touch_linger" toml:"touch_linger"`
	LazySelector      string        `yaml:"lazy_selector" toml:"lazy_selector"`
	ContainerSelector string        `yaml:"container_selector" toml:"container_selector"`
	TouchSelector     string        `yaml:"touch_selector" toml:"touch_selector"`
	SaveShortcut      string        `yaml:"save_shortcut" toml:"save_shortcut"`
	PreviewShortcut   string        `yaml:"preview_shortcut" toml:"preview_shortcut"`
	CloseShortcut     string        `yaml:"close_shortcut" toml:"close_shortcut"`
}

// PrefetchConfig configures the image warm-up pool. An empty BaseURL
// disables prefetching of relative URLs.
type PrefetchConfig struct {
	BaseURL   string        `yaml:"base_url" toml:"base_url"`
	Workers   int           `yaml:"workers" toml:"workers"`
	QueueSize int           `yaml:"queue_size" toml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout" toml:"timeout"`
}

// ConsoleConfig configures the terminal host.
type ConsoleConfig struct {
	// Page is an HTML file to load; empty means the embedded admin page.
	Page string `yaml:"page" toml:"page"`

	// LogFile receives logs while the terminal is in use. Empty discards them.
	LogFile string `yaml:"log_file" toml:"log_file"`

	// PreloadImages warms every deferred image at startup instead of
	// waiting for its section to scroll into view.
	PreloadImages bool `yaml:"preload_images" toml:"preload_images"`

	CellWidth  float64 `yaml:"cell_width" toml:"cell_width"`
	CellHeight float64 `yaml:"cell_height" toml:"cell_height"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              3000,
			AdminFile:         "admin.html",
			ExpectedFiles:     []string{"admin.html", "admin.css"},
			Environment:       "development",
			ReloadDebounce:    100 * time.Millisecond,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Perf: PerfConfig{
			RootMargin:        50,
			Threshold:         0.1,
			Breakpoint:        768,
			DoubleTapWindow:   300 * time.Millisecond,
			TouchLinger:       150 * time.Millisecond,
			LazySelector:      ".lazy-load",
			ContainerSelector: ".main-container",
			TouchSelector:     "button, .btn, .nav-tab, .dynamic-list-item",
			SaveShortcut:      "Mod+s",
			PreviewShortcut:   "Mod+p",
			CloseShortcut:     "Escape",
		},
		Prefetch: PrefetchConfig{
			Workers:   4,
			QueueSize: 64,
			Timeout:   10 * time.Second,
		},
		Console: ConsoleConfig{
			CellWidth:  8,
			CellHeight: 16,
		},
	}
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	fs     loader.FileSystem
	env    bool
	logger *zap.Logger
}

// WithFS reads the config file from fsys.
func WithFS(fsys loader.FileSystem) Option {
	return func(o *loadOptions) { o.fs = fsys }
}

// WithoutEnv ignores environment overrides.
func WithoutEnv() Option {
	return func(o *loadOptions) { o.env = false }
}

// WithLogger reports skipped environment variables to logger at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *loadOptions) { o.logger = logger }
}

// Load builds a Config from defaults, the file at path (if any) and the
// environment, then validates it. An empty path or a missing file yields
// the defaults with environment overrides applied. Prefixed variables that
// name no config key are skipped.
func Load(path string, opts ...Option) (*Config, error) {
	lo := loadOptions{fs: loader.DefaultFS(), env: true, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&lo)
	}

	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	known := loader.LeafPaths(merged)
	if path != "" {
		fileCfg, err := loader.NewFileLoaderWithFS(lo.fs, path).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, fileCfg)
	}
	if lo.env {
		env := loader.NewEnvLoader(EnvPrefix)
		env.AddMapping("PORT", "server.port")
		env.Restrict(known)
		envCfg, err := env.Load()
		if err != nil {
			return nil, err
		}
		for _, name := range env.Ignored() {
			lo.logger.Debug("ignoring unknown environment variable", zap.String("name", name))
		}
		merged = loader.DeepMerge(merged, envCfg)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes c as TOML or YAML.
func (c *Config) Marshal(format loader.Format) ([]byte, error) {
	switch format {
	case loader.FormatYAML:
		return yaml.Marshal(c)
	case loader.FormatTOML:
		// Round-trip through a map so durations are written as strings.
		m, err := toMap(c)
		if err != nil {
			return nil, err
		}
		return toml.Marshal(m)
	default:
		return nil, fmt.Errorf("%w: %q", loader.ErrUnknownFormat, format)
	}
}

func toMap(c *Config) (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
