// Package watch reports file system changes with per-path coalescing.
//
// A Watcher wraps fsnotify. Rapid changes to the same path inside the
// debounce window are merged into a single Event carrying every operation
// seen. Hidden files can be skipped and callers can filter events before
// they are queued.
package watch

import (
	"errors"
	"strings"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrClosed          = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrPathNotExist    = errors.New("path does not exist")
)

// Op is a set of file system operations.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String joins the names of the operations in the set, e.g. "CREATE|WRITE".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has reports whether op includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is a coalesced change to one path.
type Event struct {
	Path      string
	Op        Op
	Timestamp time.Time
}

// Filter keeps an event when it returns true.
type Filter func(Event) bool

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a path's event is delivered.
	Debounce time.Duration

	// BufferSize bounds the event and error channels. Events are dropped
	// when the consumer falls behind.
	BufferSize int

	// IgnoreHidden skips paths whose base name starts with a dot.
	IgnoreHidden bool

	// Filter, when set, runs before an event is debounced.
	Filter Filter
}

// DefaultOptions returns a 100ms debounce and 100-entry buffers.
func DefaultOptions() Options {
	return Options{
		Debounce:   100 * time.Millisecond,
		BufferSize: 100,
	}
}
