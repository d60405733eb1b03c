// Package adapter normalizes heterogeneous controller protocols into a
// uniform per-tick sample stream. Protocol-specific mapping tables (button
// layout schemes) live here; the engine consumes only logical controls.
package adapter

import (
	"fmt"
	"time"
)

// Control is a logical control identity, independent of device protocol.
type Control uint8

const (
	// ControlNone is an unmapped control.
	ControlNone Control = iota
	// ControlTriggerPrimary is the primary combo trigger.
	ControlTriggerPrimary
	// ControlTriggerSecondary is the secondary combo trigger.
	ControlTriggerSecondary
	// ControlDPadUp through ControlDPadRight are the POV hat directions.
	ControlDPadUp
	ControlDPadDown
	ControlDPadLeft
	ControlDPadRight
	// ControlFaceNorth through ControlFaceWest are the four face buttons.
	ControlFaceNorth
	ControlFaceEast
	ControlFaceSouth
	ControlFaceWest
	// ControlStart and ControlSelect are the menu buttons.
	ControlStart
	ControlSelect
)

// String returns a human-readable name for the control.
func (c Control) String() string {
	if name, ok := controlNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Control(%d)", c)
}

var controlNames = map[Control]string{
	ControlNone:             "none",
	ControlTriggerPrimary:   "trigger-primary",
	ControlTriggerSecondary: "trigger-secondary",
	ControlDPadUp:           "dpad-up",
	ControlDPadDown:         "dpad-down",
	ControlDPadLeft:         "dpad-left",
	ControlDPadRight:        "dpad-right",
	ControlFaceNorth:        "face-north",
	ControlFaceEast:         "face-east",
	ControlFaceSouth:        "face-south",
	ControlFaceWest:         "face-west",
	ControlStart:            "start",
	ControlSelect:           "select",
}

// controlNameMap is the inverse of controlNames.
var controlNameMap = func() map[string]Control {
	m := make(map[string]Control, len(controlNames))
	for c, name := range controlNames {
		m[name] = c
	}
	return m
}()

// ControlFromName returns the Control for a given name.
// Returns ControlNone and false if the name is not recognized.
func ControlFromName(name string) (Control, bool) {
	c, ok := controlNameMap[name]
	return c, ok
}

// Sample is one normalized input reading. Value is 0..1 for analog
// controls and exactly 0 or 1 for digital ones.
type Sample struct {
	Control   Control
	Value     float64
	Timestamp time.Time
}

// Adapter is a swappable input source polled once per tick.
type Adapter interface {
	// Name identifies the adapter for logging.
	Name() string

	// Poll returns the samples observed since the previous tick. The
	// returned slice is valid until the next Poll call.
	Poll(now time.Time) []Sample
}
