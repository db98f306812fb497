package key

import "strings"

// Modifier is a set of held modifier keys.
type Modifier uint8

const (
	ModNone  Modifier = 0
	ModShift Modifier = 1 << (iota - 1)
	ModCtrl
	ModAlt
	ModMeta // Cmd on macOS
)

// ModPrimary is the platform shortcut modifier: Ctrl or Meta, either one
// satisfies a "Mod+" specification.
const ModPrimary = ModCtrl | ModMeta

// Has reports whether m shares any modifier with mod.
func (m Modifier) Has(mod Modifier) bool { return m&mod != 0 }

// HasCtrl reports whether Ctrl is held.
func (m Modifier) HasCtrl() bool { return m.Has(ModCtrl) }

// HasPrimary reports whether Ctrl or Meta is held.
func (m Modifier) HasPrimary() bool { return m.Has(ModPrimary) }

func (m Modifier) With(mod Modifier) Modifier { return m | mod }
func (m Modifier) Without(mod Modifier) Modifier { return m &^ mod }

var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModMeta, "Meta"},
}

// String joins the held modifiers with "+", e.g. "Ctrl+Shift".
func (m Modifier) String() string {
	var names []string
	for _, o := range modifierOrder {
		if m.Has(o.mod) {
			names = append(names, o.name)
		}
	}
	return strings.Join(names, "+")
}

// modifierAliases maps the accepted lowercase spellings in a specification.
var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
	"super":   ModMeta,
	"win":     ModMeta,
}

// ModifierFromName returns the modifier spelled name, or ModNone.
func ModifierFromName(name string) Modifier {
	return modifierAliases[strings.ToLower(strings.TrimSpace(name))]
}
