// Package loader reads configuration sources into nested maps.
//
// File sources are TOML or YAML, chosen by extension. Environment variables
// map onto the same dotted paths. Sources are combined with DeepMerge, later
// sources winning.
package loader

import (
	"io/fs"
	"os"
)

// Loader is the interface for configuration sources.
type Loader interface {
	// Load returns the source as a map. It returns nil, nil if the source
	// does not exist.
	Load() (map[string]any, error)
}

// FileSystem abstracts file reads so tests can use memory-backed files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the OS file system.
func DefaultFS() FileSystem {
	return OSFS{}
}
