// Package key provides key event types and shortcut parsing.
//
// This package defines the types used to describe keyboard input independently
// of the host that produced it (a terminal, a browser bridge, a test):
//
//   - Key: identifies a special key or marks a character key (KeyRune)
//   - Modifier: the Ctrl, Alt, Shift and Meta modifier set
//   - Event: a single key press with modifiers and timestamp
//   - Shortcut: a parsed key specification that an Event can be matched against
//
// # Key Specifications
//
// Specifications accept the usual spellings:
//
//   - Simple keys: "s", "S", "Enter", "Escape"
//   - With modifiers: "Ctrl+S", "Meta+p", "Ctrl+Shift+P"
//   - Primary modifier: "Mod+s" matches Ctrl+s or Meta+s
//
// Host adapters build an Event from their native key events; the terminal
// host does this for tcell.
package key
