package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/adminperf/internal/config"
)

// Log outputs with special meaning. Anything else is a file path.
const (
	OutputStderr  = "stderr"
	OutputStdout  = "stdout"
	OutputDiscard = "discard"
)

// ParseLogLevel parses a level name. "warning" is accepted for "warn".
func ParseLogLevel(s string) (zapcore.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(name)
}

// Logging is a built logger and the handles needed to adjust and close it.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel

	closer io.Closer
}

// NewLogging builds a logger from cfg.
func NewLogging(cfg config.LogConfig) (*Logging, error) {
	var ws zapcore.WriteSyncer
	var closer io.Closer

	switch cfg.Output {
	case "", OutputStderr:
		ws = zapcore.Lock(os.Stderr)
	case OutputStdout:
		ws = zapcore.Lock(os.Stdout)
	case OutputDiscard:
		ws = zapcore.AddSync(io.Discard)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		ws = zapcore.Lock(f)
		closer = f
	}

	l, err := newLogging(cfg, ws)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	l.closer = closer
	return l, nil
}

func newLogging(cfg config.LogConfig, ws zapcore.WriteSyncer) (*Logging, error) {
	lvl, err := ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, ws, level)
	return &Logging{
		Logger: zap.New(core, zap.AddCaller(), zap.ErrorOutput(ws)),
		Level:  level,
	}, nil
}

// SetLevel changes the level of every logger derived from l.
func (l *Logging) SetLevel(s string) error {
	lvl, err := ParseLogLevel(s)
	if err != nil {
		return err
	}
	l.Level.SetLevel(lvl)
	return nil
}

// Close flushes the logger and closes a log file if one was opened.
func (l *Logging) Close() error {
	_ = l.Logger.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
