package keybind

// hostShortcuts is the fixed table of chords the host application already
// uses. Binding one of these requires explicit user acknowledgement, which
// is then persisted in the allow-list.
var hostShortcuts = map[string]string{
	Chord{Code: CodeEscape}.Key():             "close menus",
	Chord{Code: CodeEnter}.Key():              "chat input",
	Chord{Code: CodeF1, Ctrl: true}.Key():     "party member 1",
	Chord{Code: CodeF2, Ctrl: true}.Key():     "party member 2",
	Chord{Code: CodeF3, Ctrl: true}.Key():     "party member 3",
	Chord{Code: CodeF4, Ctrl: true}.Key():     "party member 4",
	Chord{Code: CodeF5, Ctrl: true}.Key():     "party member 5",
	Chord{Code: CodeF6, Ctrl: true}.Key():     "party member 6",
	Chord{Code: CodeF8, Alt: true}.Key():      "toggle window mode",
	Chord{Code: CodeF10}.Key():                "screenshot",
	Chord{Code: CodeF11}.Key():                "hide interface",
	Chord{Code: CodeF12, Shift: true}.Key():   "macro palette",
	Chord{Code: CodeDigit1, Alt: true}.Key():  "ability bar 1",
}

// HostShortcut returns the host feature name owning the chord, if any.
func HostShortcut(c Chord) (string, bool) {
	name, ok := hostShortcuts[c.Key()]
	return name, ok
}
