package combo

import (
	"sort"

	"github.com/tirem/crossbar/internal/input/trigger"
)

// Config selects which optional combo modes participate.
type Config struct {
	// Expanded enables PrimaryThenSecondary / SecondaryThenPrimary.
	Expanded bool

	// DoubleTap enables PrimaryDoubleTap / SecondaryDoubleTap.
	DoubleTap bool

	// SharedExpanded collapses both expanded sequences to the single
	// SharedExpanded mode for palette lookup. The distinct sequences are
	// still tracked for display.
	SharedExpanded bool
}

// Resolver is the combo-mode state machine. It consumes the trigger
// tracker's transitions once per tick; transitions are the only observable
// events, and because the poll runs every tick none are ever missed.
type Resolver struct {
	cfg     Config
	held    [trigger.NumChannels]bool
	current Mode
}

// NewResolver creates a resolver in the None state.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// SetConfig replaces the feature configuration. The current mode is
// re-derived from the held channels so a disabled feature ends immediately.
func (r *Resolver) SetConfig(cfg Config) {
	r.cfg = cfg
	r.current = r.rederive()
}

// Current returns the active combo mode as tracked, with expanded
// sequences kept distinct. Use LookupMode for palette resolution.
func (r *Resolver) Current() Mode {
	return r.current
}

// LookupMode returns the mode downstream palette lookup should use: the
// current mode, with both expanded sequences collapsed to SharedExpanded
// when that configuration is set.
func (r *Resolver) LookupMode() Mode {
	if r.cfg.SharedExpanded && (r.current == PrimaryThenSecondary || r.current == SecondaryThenPrimary) {
		return SharedExpanded
	}
	return r.current
}

// Apply consumes one tick's transitions and returns the resulting mode.
// When both channels cross their press threshold in the same tick, Primary
// takes precedence: transitions are ordered so the primary press is seen
// first, which yields Primary for single-mode resolution and
// PrimaryThenSecondary when expanded modes are enabled.
func (r *Resolver) Apply(transitions []Transition) Mode {
	if len(transitions) > 1 {
		ordered := make([]Transition, len(transitions))
		copy(ordered, transitions)
		sort.SliceStable(ordered, func(i, j int) bool {
			ti, tj := ordered[i], ordered[j]
			if ti.Kind.IsPress() != tj.Kind.IsPress() {
				// Releases first so a same-tick release+press settles cleanly.
				return !ti.Kind.IsPress()
			}
			return ti.Channel < tj.Channel
		})
		transitions = ordered
	}

	for _, tr := range transitions {
		r.step(tr)
	}
	return r.current
}

// Transition aliases the trigger package's transition for callers.
type Transition = trigger.Transition

// step advances the state machine by one transition.
func (r *Resolver) step(tr Transition) {
	ch := tr.Channel
	other := otherChannel(ch)

	switch {
	case tr.Kind == trigger.DoubleTapPressed:
		r.held[ch] = true
		if r.cfg.DoubleTap && !r.held[other] {
			r.current = doubleTapMode(ch)
			return
		}
		r.pressed(ch)

	case tr.Kind == trigger.Pressed:
		r.held[ch] = true
		r.pressed(ch)

	case tr.Kind.IsRelease():
		r.held[ch] = false
		if r.held[other] {
			r.current = singleMode(other)
		} else {
			r.current = None
		}
	}
}

// pressed applies the press rules for a channel already marked held.
func (r *Resolver) pressed(ch Channel) {
	other := otherChannel(ch)
	if r.held[other] {
		if r.cfg.Expanded {
			r.current = sequenceMode(other, ch)
		}
		// Without expanded modes the earlier single mode stays in effect.
		return
	}
	r.current = singleMode(ch)
}

// rederive recomputes the mode from held channels alone, used after a
// configuration change. Sequence ordering is unknowable here, so both-held
// resolves with primary precedence.
func (r *Resolver) rederive() Mode {
	p, s := r.held[trigger.Primary], r.held[trigger.Secondary]
	switch {
	case p && s && r.cfg.Expanded:
		return PrimaryThenSecondary
	case p:
		return Primary
	case s:
		return Secondary
	default:
		return None
	}
}

// Channel aliases the trigger channel type for callers.
type Channel = trigger.Channel

func otherChannel(ch Channel) Channel {
	if ch == trigger.Primary {
		return trigger.Secondary
	}
	return trigger.Primary
}

func singleMode(ch Channel) Mode {
	if ch == trigger.Primary {
		return Primary
	}
	return Secondary
}

func doubleTapMode(ch Channel) Mode {
	if ch == trigger.Primary {
		return PrimaryDoubleTap
	}
	return SecondaryDoubleTap
}

func sequenceMode(first, second Channel) Mode {
	if first == trigger.Primary && second == trigger.Secondary {
		return PrimaryThenSecondary
	}
	return SecondaryThenPrimary
}

// Reset returns the resolver to the None state.
func (r *Resolver) Reset() {
	r.held = [trigger.NumChannels]bool{}
	r.current = None
}
