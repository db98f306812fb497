package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/adminperf/internal/input/key"
)

// convertKey translates a tcell key event into a key.Event. Control
// letters arrive either as KeyRune with ModCtrl or as the legacy
// KeyCtrlA..KeyCtrlZ codes; both become a lowercase rune with ModCtrl.
func convertKey(ev *tcell.EventKey) (key.Event, bool) {
	mods := convertMod(ev.Modifiers())

	switch ev.Key() {
	case tcell.KeyRune:
		return withTime(key.NewRuneEvent(ev.Rune(), mods), ev), true
	case tcell.KeyEscape:
		return withTime(key.NewSpecialEvent(key.KeyEscape, mods), ev), true
	case tcell.KeyEnter:
		return withTime(key.NewSpecialEvent(key.KeyEnter, mods), ev), true
	case tcell.KeyTab:
		return withTime(key.NewSpecialEvent(key.KeyTab, mods), ev), true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return withTime(key.NewSpecialEvent(key.KeyBackspace, mods), ev), true
	case tcell.KeyDelete:
		return withTime(key.NewSpecialEvent(key.KeyDelete, mods), ev), true
	case tcell.KeyHome:
		return withTime(key.NewSpecialEvent(key.KeyHome, mods), ev), true
	case tcell.KeyEnd:
		return withTime(key.NewSpecialEvent(key.KeyEnd, mods), ev), true
	case tcell.KeyPgUp:
		return withTime(key.NewSpecialEvent(key.KeyPageUp, mods), ev), true
	case tcell.KeyPgDn:
		return withTime(key.NewSpecialEvent(key.KeyPageDown, mods), ev), true
	case tcell.KeyUp:
		return withTime(key.NewSpecialEvent(key.KeyUp, mods), ev), true
	case tcell.KeyDown:
		return withTime(key.NewSpecialEvent(key.KeyDown, mods), ev), true
	case tcell.KeyLeft:
		return withTime(key.NewSpecialEvent(key.KeyLeft, mods), ev), true
	case tcell.KeyRight:
		return withTime(key.NewSpecialEvent(key.KeyRight, mods), ev), true
	}

	if k := ev.Key(); k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		r := 'a' + rune(k-tcell.KeyCtrlA)
		return withTime(key.NewRuneEvent(r, mods|key.ModCtrl), ev), true
	}
	return key.Event{}, false
}

func withTime(k key.Event, ev *tcell.EventKey) key.Event {
	k.Timestamp = ev.When()
	return k
}

func convertMod(m tcell.ModMask) key.Modifier {
	var mods key.Modifier
	if m&tcell.ModShift != 0 {
		mods |= key.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		mods |= key.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		mods |= key.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		mods |= key.ModMeta
	}
	return mods
}
