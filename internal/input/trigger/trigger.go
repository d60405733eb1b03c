// Package trigger turns per-tick analog trigger samples into discrete
// press/release transitions with hysteresis and double-tap detection.
package trigger

import (
	"fmt"
	"time"
)

// Channel identifies one of the two combo-mode triggers.
type Channel uint8

const (
	// Primary is the first combo trigger (left trigger on most pads).
	Primary Channel = iota
	// Secondary is the second combo trigger.
	Secondary

	// NumChannels is the number of trigger channels.
	NumChannels = 2
)

// String returns a human-readable name for the channel.
func (c Channel) String() string {
	switch c {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("Channel(%d)", c)
	}
}

// Valid returns true for the two defined channels.
func (c Channel) Valid() bool {
	return c < NumChannels
}

// TransitionKind classifies a state transition.
type TransitionKind uint8

const (
	// Pressed is a Released -> Pressed transition.
	Pressed TransitionKind = iota
	// DoubleTapPressed is a press completing a double-tap: the previous
	// press-release cycle was held at least MinHold and this press arrived
	// within DoubleTapWindow of that release.
	DoubleTapPressed
	// Released is a Pressed -> Released transition.
	Released
	// TapReleased is a release completing the second qualifying tap of a
	// cycle pair inside the window; reported distinctly from Released so
	// consumers counting taps need no timing state of their own.
	TapReleased
)

// String returns a human-readable name for the transition kind.
func (k TransitionKind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case DoubleTapPressed:
		return "double-tap-pressed"
	case Released:
		return "released"
	case TapReleased:
		return "tap-released"
	default:
		return fmt.Sprintf("TransitionKind(%d)", k)
	}
}

// IsPress returns true for either press transition kind.
func (k TransitionKind) IsPress() bool {
	return k == Pressed || k == DoubleTapPressed
}

// IsRelease returns true for either release transition kind.
func (k TransitionKind) IsRelease() bool {
	return k == Released || k == TapReleased
}

// Transition is a discrete state change emitted by the tracker.
type Transition struct {
	Channel Channel
	Kind    TransitionKind
	At      time.Time
}

// Config holds the timing and threshold parameters for both channels.
type Config struct {
	// PressThreshold enters the pressed state when crossed from below.
	PressThreshold float64

	// ReleaseThreshold leaves the pressed state when crossed from above.
	// Must be strictly below PressThreshold; values between the two leave
	// the state unchanged (the hysteresis band).
	ReleaseThreshold float64

	// MinHold is the minimum held duration for a press-release cycle to
	// count as a tap. Must be below DoubleTapWindow or a double-tap can
	// never fire; configuration validation enforces this.
	MinHold time.Duration

	// DoubleTapWindow is the maximum gap between a qualifying release and
	// the next press for that press to be a double-tap.
	DoubleTapWindow time.Duration
}

// DefaultConfig returns the stock trigger tuning.
func DefaultConfig() Config {
	return Config{
		PressThreshold:   0.30,
		ReleaseThreshold: 0.15,
		MinHold:          50 * time.Millisecond,
		DoubleTapWindow:  300 * time.Millisecond,
	}
}

// DigitalConfig returns a configuration for digital-only channels: press
// and release thresholds collapse to one boolean cut at 0.5, disabling the
// hysteresis band.
func DigitalConfig() Config {
	cfg := DefaultConfig()
	cfg.PressThreshold = 0.5
	cfg.ReleaseThreshold = 0.5
	return cfg
}

// channelState is the runtime state of one channel.
type channelState struct {
	pressed     bool
	pressedAt   time.Time
	lastRelease time.Time
	lastWasTap  bool // last completed cycle held >= MinHold
}

// Tracker consumes per-tick samples for both channels and emits
// deduplicated transitions: the same logical state is never reported twice
// in a row.
type Tracker struct {
	cfg      Config
	channels [NumChannels]channelState
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Pressed reports the current state of a channel.
func (t *Tracker) Pressed(ch Channel) bool {
	if !ch.Valid() {
		return false
	}
	return t.channels[ch].pressed
}

// Process consumes one sample for the channel and returns the transition it
// caused, if any. Samples arrive once per polling tick; intensities inside
// the hysteresis band never cause a transition.
func (t *Tracker) Process(ch Channel, value float64, now time.Time) (Transition, bool) {
	if !ch.Valid() {
		return Transition{}, false
	}
	st := &t.channels[ch]

	if !st.pressed {
		if value < t.cfg.PressThreshold {
			return Transition{}, false
		}
		st.pressed = true
		st.pressedAt = now

		kind := Pressed
		if st.lastWasTap && !st.lastRelease.IsZero() && now.Sub(st.lastRelease) <= t.cfg.DoubleTapWindow {
			kind = DoubleTapPressed
		}
		return Transition{Channel: ch, Kind: kind, At: now}, true
	}

	if value > t.cfg.ReleaseThreshold {
		return Transition{}, false
	}

	held := now.Sub(st.pressedAt)
	withinWindow := !st.lastRelease.IsZero() && now.Sub(st.lastRelease) <= t.cfg.DoubleTapWindow
	wasTap := held >= t.cfg.MinHold

	kind := Released
	if wasTap && withinWindow && st.lastWasTap {
		kind = TapReleased
	}

	st.pressed = false
	st.lastWasTap = wasTap
	st.lastRelease = now
	return Transition{Channel: ch, Kind: kind, At: now}, true
}

// Reset returns all channels to the released state with no tap history.
func (t *Tracker) Reset() {
	for i := range t.channels {
		t.channels[i] = channelState{}
	}
}
