package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ValidationError lists every problem found in a Config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks ranges and enumerations. Selectors and shortcut specs are
// checked when the coordinator is built.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}
	if c.Server.AdminFile == "" {
		add("server.admin_file is empty")
	}
	if c.Server.ReloadDebounce < 0 || c.Server.ShutdownTimeout < 0 || c.Server.ReadHeaderTimeout < 0 {
		add("server durations must not be negative")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		add("log.level %q unknown", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		add("log.format %q must be json or console", c.Log.Format)
	}

	if c.Perf.Threshold < 0 || c.Perf.Threshold > 1 {
		add("perf.threshold %v outside [0,1]", c.Perf.Threshold)
	}
	if c.Perf.Breakpoint <= 0 {
		add("perf.breakpoint must be positive")
	}
	if c.Perf.DoubleTapWindow < 0 || c.Perf.TouchLinger < 0 {
		add("perf durations must not be negative")
	}

	if c.Prefetch.BaseURL != "" {
		if u, err := url.Parse(c.Prefetch.BaseURL); err != nil || !u.IsAbs() {
			add("prefetch.base_url %q is not an absolute URL", c.Prefetch.BaseURL)
		}
	}
	if c.Prefetch.Workers < 0 || c.Prefetch.QueueSize < 0 {
		add("prefetch sizes must not be negative")
	}

	if c.Console.CellWidth <= 0 || c.Console.CellHeight <= 0 {
		add("console cell size must be positive")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
