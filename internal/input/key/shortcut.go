package key

import (
	"fmt"
	"strings"
)

// Shortcut is a parsed key specification used to match incoming events.
type Shortcut struct {
	// Spec is the specification the shortcut was parsed from.
	Spec string

	// Event holds the key and the modifiers that must be present.
	Event Event

	// Primary requires Ctrl or Meta in addition to Event.Modifiers.
	// Other modifiers on the incoming event are then ignored.
	Primary bool
}

// ParseShortcut parses a specification that may name the primary modifier
// as "Mod" or "Primary" (e.g. "Mod+s"). Everything else follows Parse.
func ParseShortcut(spec string) (Shortcut, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return Shortcut{}, ErrEmptySpec
	}

	primary := false
	explicit := false
	var rest []string
	parts := strings.Split(trimmed, "+")
	if len(parts) > 1 {
		for _, p := range parts[:len(parts)-1] {
			switch strings.ToLower(strings.TrimSpace(p)) {
			case "mod", "primary":
				primary = true
			default:
				explicit = true
				rest = append(rest, p)
			}
		}
		rest = append(rest, parts[len(parts)-1])
		trimmed = strings.Join(rest, "+")
	}

	ev, err := Parse(trimmed)
	if err != nil {
		return Shortcut{}, fmt.Errorf("shortcut %q: %w", spec, err)
	}
	if primary && ev.Key == KeyRune && !explicit {
		// "Mod+S" means the S key, not Shift+S.
		ev.Rune = lowerRune(ev.Rune)
		ev.Modifiers = ev.Modifiers.Without(ModShift)
	}

	return Shortcut{Spec: spec, Event: ev, Primary: primary}, nil
}

// MustParseShortcut is ParseShortcut for known-valid specs; it panics on error.
func MustParseShortcut(spec string) Shortcut {
	s, err := ParseShortcut(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// Matches reports whether ev triggers the shortcut.
//
// Without Primary the modifiers must match exactly. With Primary, ev must
// carry Ctrl or Meta plus every modifier named in the specification.
func (s Shortcut) Matches(ev Event) bool {
	if ev.Key != s.Event.Key {
		return false
	}
	if ev.Key == KeyRune && ev.Rune != s.Event.Rune {
		return false
	}
	if !s.Primary {
		return ev.Modifiers == s.Event.Modifiers
	}
	return ev.Modifiers.HasPrimary() && ev.Modifiers&s.Event.Modifiers == s.Event.Modifiers
}

// String returns the original specification.
func (s Shortcut) String() string {
	return s.Spec
}
