// Package keybind captures keyboard chords for hotbar slots, detects
// conflicts against host-application shortcuts and existing bindings, and
// keeps the explicitly-accepted conflict allow-list.
package keybind

import (
	"fmt"
	"strings"
)

// Chord is a key plus its modifier set. Code is the host key code; the
// package does not interpret it beyond equality.
type Chord struct {
	Code  int  `json:"code"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Alt   bool `json:"alt,omitempty"`
	Shift bool `json:"shift,omitempty"`
}

// IsZero returns true for the empty chord.
func (c Chord) IsZero() bool {
	return c == Chord{}
}

// Key returns the canonical map key for the chord.
func (c Chord) Key() string {
	return fmt.Sprintf("%d/%t/%t/%t", c.Code, c.Ctrl, c.Alt, c.Shift)
}

// String returns the display form, e.g. "Ctrl+Alt+F1".
func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Alt {
		parts = append(parts, "Alt")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	parts = append(parts, KeyName(c.Code))
	return strings.Join(parts, "+")
}

// Common host key codes. The values follow the host virtual-key table; only
// the codes the conflict table and display names need are enumerated.
const (
	CodeEscape    = 0x01
	CodeEnter     = 0x1C
	CodeF1        = 0x3B
	CodeF2        = 0x3C
	CodeF3        = 0x3D
	CodeF4        = 0x3E
	CodeF5        = 0x3F
	CodeF6        = 0x40
	CodeF7        = 0x41
	CodeF8        = 0x42
	CodeF9        = 0x43
	CodeF10       = 0x44
	CodeF11       = 0x57
	CodeF12       = 0x58
	CodeCtrlLeft  = 0x1D
	CodeShiftLeft = 0x2A
	CodeAltLeft   = 0x38
	CodeDigit0    = 0x0B
	CodeDigit1    = 0x02
)

// modifierCodes are key codes that are themselves modifiers; a chord cannot
// be built from a bare modifier.
var modifierCodes = map[int]bool{
	CodeCtrlLeft:  true,
	CodeShiftLeft: true,
	CodeAltLeft:   true,
}

// IsModifierCode returns true if the code is a bare modifier key.
func IsModifierCode(code int) bool {
	return modifierCodes[code]
}

// keyNames maps known codes to display names.
var keyNames = map[int]string{
	CodeEscape: "Esc",
	CodeEnter:  "Enter",
	CodeF1:     "F1",
	CodeF2:     "F2",
	CodeF3:     "F3",
	CodeF4:     "F4",
	CodeF5:     "F5",
	CodeF6:     "F6",
	CodeF7:     "F7",
	CodeF8:     "F8",
	CodeF9:     "F9",
	CodeF10:    "F10",
	CodeF11:    "F11",
	CodeF12:    "F12",
	CodeDigit1: "1",
	CodeDigit0: "0",
}

// KeyName returns the display name for a key code.
func KeyName(code int) string {
	if name, ok := keyNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Key%d", code)
}
