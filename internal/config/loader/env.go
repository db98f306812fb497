package loader

import (
	"encoding/json"
	"os"
	"slices"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// Prefixed variables map onto section.key paths: with prefix "ADMINPERF_",
// ADMINPERF_SERVER_STATIC_DIR becomes server.static_dir. Explicit mappings
// bind unprefixed names such as PORT. After Restrict, prefixed variables
// whose path is not known are skipped and reported by Ignored.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	known   map[string]bool
	ignored []string
	environ func() []string
}

// NewEnvLoader creates a loader for prefix, which should end in "_".
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix, mapping: make(map[string]string), environ: os.Environ}
}

// AddMapping binds envVar to a dotted config path.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// Restrict limits prefixed variables to the given dotted paths.
func (l *EnvLoader) Restrict(paths []string) {
	l.known = make(map[string]bool, len(paths))
	for _, p := range paths {
		l.known[p] = true
	}
}

// Ignored returns the prefixed variables the last Load skipped, sorted.
func (l *EnvLoader) Ignored() []string {
	return slices.Clone(l.ignored)
}

// Load reads the environment. Prefixed variables override mapped ones
// that target the same path. Empty values count as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	env := make(map[string]string)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok {
			env[name] = value
		}
	}

	l.ignored = l.ignored[:0]
	config := make(map[string]any)
	for name, path := range l.mapping {
		if val, ok := env[name]; ok {
			setByPath(config, path, parseValue(val))
		}
	}
	for name, val := range env {
		if !strings.HasPrefix(name, l.prefix) || len(name) == len(l.prefix) {
			continue
		}
		if _, ok := l.mapping[name]; ok {
			continue
		}
		path := l.envToPath(name)
		if l.known != nil && !l.known[path] {
			l.ignored = append(l.ignored, name)
			continue
		}
		setByPath(config, path, parseValue(val))
	}
	slices.Sort(l.ignored)
	return config, nil
}

// envToPath converts ADMINPERF_SERVER_STATIC_DIR to server.static_dir.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return section
	}
	return section + "." + key
}

// parseValue converts an environment string into a bool, number, JSON
// array or object, or leaves it as a string. Durations stay strings and
// are parsed by the decoder.
func parseValue(s string) any {
	if s == "" {
		return s
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// LeafPaths returns the dotted path of every non-map value in data, sorted.
func LeafPaths(data map[string]any) []string {
	var paths []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(path, sub)
				continue
			}
			paths = append(paths, path)
		}
	}
	walk("", data)
	slices.Sort(paths)
	return paths
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
