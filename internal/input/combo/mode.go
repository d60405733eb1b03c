// Package combo resolves discrete trigger transitions into the single
// active combo mode that selects which crossbar slot bank is addressable.
package combo

import "fmt"

// Mode is the trigger-derived input context. Exactly one mode is active at
// any instant (or None).
type Mode uint8

const (
	// None means no trigger is engaged.
	None Mode = iota
	// Primary means only the primary trigger is held.
	Primary
	// Secondary means only the secondary trigger is held.
	Secondary
	// PrimaryThenSecondary means secondary was pressed while primary held.
	PrimaryThenSecondary
	// SecondaryThenPrimary means primary was pressed while secondary held.
	SecondaryThenPrimary
	// PrimaryDoubleTap means the primary trigger is held after a double-tap.
	PrimaryDoubleTap
	// SecondaryDoubleTap means the secondary trigger is held after a double-tap.
	SecondaryDoubleTap
	// SharedExpanded is the collapsed lookup target for both expanded
	// sequences when the shared-expanded configuration is set.
	SharedExpanded

	// NumModes is the count of combo modes, None included.
	NumModes = 8
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case PrimaryThenSecondary:
		return "primary-then-secondary"
	case SecondaryThenPrimary:
		return "secondary-then-primary"
	case PrimaryDoubleTap:
		return "primary-double-tap"
	case SecondaryDoubleTap:
		return "secondary-double-tap"
	case SharedExpanded:
		return "shared-expanded"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// modeNameMap maps mode names to Mode values.
var modeNameMap = map[string]Mode{
	"none":                   None,
	"primary":                Primary,
	"secondary":              Secondary,
	"primary-then-secondary": PrimaryThenSecondary,
	"secondary-then-primary": SecondaryThenPrimary,
	"primary-double-tap":     PrimaryDoubleTap,
	"secondary-double-tap":   SecondaryDoubleTap,
	"shared-expanded":        SharedExpanded,
}

// ModeFromName returns the Mode for a given name.
// Returns None and false if the name is not recognized.
func ModeFromName(name string) (Mode, bool) {
	m, ok := modeNameMap[name]
	return m, ok
}

// IsExpanded returns true for the two sequence modes and their collapsed form.
func (m Mode) IsExpanded() bool {
	return m == PrimaryThenSecondary || m == SecondaryThenPrimary || m == SharedExpanded
}

// IsDoubleTap returns true for the double-tap modes.
func (m Mode) IsDoubleTap() bool {
	return m == PrimaryDoubleTap || m == SecondaryDoubleTap
}
