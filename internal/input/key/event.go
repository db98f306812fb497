package key

import (
	"strings"
	"time"
	"unicode"
)

// Event is one key press as delivered to keydown listeners.
type Event struct {
	Key       Key
	Rune      rune // set when Key is KeyRune
	Modifiers Modifier
	Timestamp time.Time
}

// NewRuneEvent returns a character key press stamped with the current time.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods, Timestamp: time.Now()}
}

// NewSpecialEvent returns a named key press stamped with the current time.
func NewSpecialEvent(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods, Timestamp: time.Now()}
}

// IsRune reports whether the event carries a character.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// Equals compares key, character and modifiers, ignoring the timestamp.
func (e Event) Equals(other Event) bool {
	return e.Key == other.Key && e.Rune == other.Rune && e.Modifiers == other.Modifiers
}

// String renders the event in specification form, e.g. "Ctrl+s" or
// "Shift+Tab". Shift is left implicit on characters.
func (e Event) String() string {
	mods := e.Modifiers
	if e.IsRune() {
		mods = mods.Without(ModShift)
	}

	var name string
	switch {
	case e.Key == KeyRune && e.Rune == ' ':
		name = "Space"
	case e.Key == KeyRune:
		name = string(e.Rune)
	default:
		name = e.Key.String()
	}
	if mods == ModNone {
		return name
	}
	return strings.Join([]string{mods.String(), name}, "+")
}

// lowerRune folds a character for Ctrl combinations, where terminals and
// browsers disagree on case.
func lowerRune(r rune) rune {
	return unicode.ToLower(r)
}
