// Package engine drives the per-tick input pipeline and resolves bar slots
// against the palette, slot, and keybind stores.
//
// The engine is owned by a single goroutine: the host calls ProcessFrame
// once per tick and all mutations between ticks happen on that goroutine.
// The stores it composes are independently safe for concurrent use.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tirem/crossbar/internal/bar/keybind"
	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
	"github.com/tirem/crossbar/internal/config"
	"github.com/tirem/crossbar/internal/input/adapter"
	"github.com/tirem/crossbar/internal/input/combo"
	"github.com/tirem/crossbar/internal/input/trigger"
	"github.com/tirem/crossbar/internal/macro"
)

// Logger is the logging surface the engine needs. *app.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Dispatcher receives activated actions. The game integration implements
// it; the simulator uses a recording fake.
type Dispatcher interface {
	Dispatch(b slot.Binding, mode combo.Mode) error
}

// Activation records one action fired during a frame.
type Activation struct {
	Binding  slot.Binding
	Mode     combo.Mode
	Position int
	Err      error
}

// Frame is the result of one ProcessFrame call.
type Frame struct {
	// Mode is the precise combo mode, for display.
	Mode combo.Mode

	// LookupMode is the mode used for slot addressing; it differs from
	// Mode only under the shared-expanded configuration.
	LookupMode combo.Mode

	// Transitions are the trigger edges observed this frame.
	Transitions []combo.Transition

	// Activations are the actions fired this frame.
	Activations []Activation
}

// Options wires an Engine.
type Options struct {
	Settings   config.Settings
	Adapter    adapter.Adapter
	Palettes   *palette.Store
	Slots      *slot.Registry
	Keybinds   *keybind.Manager
	Dispatcher Dispatcher
	Log        Logger
}

// Engine composes the input pipeline with the bar stores.
type Engine struct {
	cfg config.Settings

	adapter    adapter.Adapter
	tracker    *trigger.Tracker
	resolver   *combo.Resolver
	palettes   *palette.Store
	slots      *slot.Registry
	keys       *keybind.Manager
	dispatcher Dispatcher
	macros     *macro.Runner
	log        Logger

	job    palette.JobID
	subJob palette.SubJobID
	pet    string

	// held tracks digital button edges for activation controls.
	held map[adapter.Control]bool
}

// New creates an engine from wired components.
func New(opts Options) (*Engine, error) {
	if opts.Adapter == nil || opts.Palettes == nil || opts.Slots == nil ||
		opts.Keybinds == nil || opts.Dispatcher == nil || opts.Log == nil {
		return nil, ErrMissingComponent
	}

	e := &Engine{
		cfg:        opts.Settings,
		adapter:    opts.Adapter,
		tracker:    trigger.NewTracker(triggerConfig(opts.Settings.Triggers)),
		resolver:   combo.NewResolver(comboConfig(opts.Settings.Crossbar)),
		palettes:   opts.Palettes,
		slots:      opts.Slots,
		keys:       opts.Keybinds,
		dispatcher: opts.Dispatcher,
		log:        opts.Log,
		held:       make(map[adapter.Control]bool),
	}
	e.macros = macro.NewRunner(macroHost{e})
	return e, nil
}

func triggerConfig(t config.TriggerSettings) trigger.Config {
	if t.Digital {
		cfg := trigger.DigitalConfig()
		cfg.MinHold = t.MinHold()
		cfg.DoubleTapWindow = t.DoubleTapWindow()
		return cfg
	}
	return trigger.Config{
		PressThreshold:   t.PressThreshold,
		ReleaseThreshold: t.ReleaseThreshold,
		MinHold:          t.MinHold(),
		DoubleTapWindow:  t.DoubleTapWindow(),
	}
}

func comboConfig(c config.CrossbarSettings) combo.Config {
	return combo.Config{
		Expanded:       c.Expanded,
		DoubleTap:      c.DoubleTap,
		SharedExpanded: c.SharedExpanded,
	}
}

// SetContext switches the job context. The job identifier may arrive in
// any form NormalizeJob accepts. Default palettes are ensured for the new
// scopes so lookups never hit an uninitialized scope.
func (e *Engine) SetContext(job any, sub palette.SubJobID) error {
	j, err := palette.NormalizeJob(job)
	if err != nil {
		return err
	}
	if !sub.Valid() {
		return fmt.Errorf("%w: subjob %d", palette.ErrInvalidScope, int(sub))
	}

	e.job = j
	e.subJob = sub
	e.tracker.Reset()
	e.resolver.Reset()

	for _, bar := range []palette.BarType{palette.Hotbar(1), palette.Crossbar()} {
		scope := palette.NewScope(bar, j, sub)
		if err := e.palettes.EnsureDefault(scope.Shared()); err != nil {
			return err
		}
	}
	e.log.Info("job context changed: %s/s%d", j, int(sub))
	return nil
}

// Job returns the current job context.
func (e *Engine) Job() palette.JobID { return e.job }

// SubJob returns the current subjob context.
func (e *Engine) SubJob() palette.SubJobID { return e.subJob }

// SetPet updates the active pet identity used by pet-aware bars.
func (e *Engine) SetPet(name string) {
	e.pet = name
}

// ScopeFor builds the palette scope for a bar under the current context.
func (e *Engine) ScopeFor(bar palette.BarType) palette.Scope {
	return palette.NewScope(bar, e.job, e.subJob)
}

// ProcessFrame polls the adapter, advances the trigger and combo state,
// and fires activations for pressed action buttons.
func (e *Engine) ProcessFrame(now time.Time) Frame {
	var frame Frame
	var transitions []combo.Transition

	for _, s := range e.adapter.Poll(now) {
		switch s.Control {
		case adapter.ControlTriggerPrimary:
			if tr, ok := e.tracker.Process(trigger.Primary, s.Value, s.Timestamp); ok {
				transitions = append(transitions, tr)
			}
		case adapter.ControlTriggerSecondary:
			if tr, ok := e.tracker.Process(trigger.Secondary, s.Value, s.Timestamp); ok {
				transitions = append(transitions, tr)
			}
		default:
			if act, ok := e.buttonEdge(s); ok {
				frame.Activations = append(frame.Activations, act)
			}
		}
	}

	if len(transitions) > 0 {
		e.resolver.Apply(transitions)
	}
	frame.Transitions = transitions
	frame.Mode = e.resolver.Current()
	frame.LookupMode = e.resolver.LookupMode()
	return frame
}

// buttonEdge edge-detects an activation control and fires its slot on the
// press edge.
func (e *Engine) buttonEdge(s adapter.Sample) (Activation, bool) {
	pos, ok := crossbarPosition(s.Control)
	if !ok {
		return Activation{}, false
	}

	pressed := s.Value >= 0.5
	was := e.held[s.Control]
	e.held[s.Control] = pressed
	if !pressed || was {
		return Activation{}, false
	}

	mode := e.resolver.LookupMode()
	if mode == combo.None {
		return Activation{}, false
	}

	sl, err := e.ResolveCrossbar(pos)
	if err != nil || !sl.IsBound() {
		return Activation{}, false
	}

	act := Activation{Binding: sl.Binding, Mode: mode, Position: pos}
	act.Err = e.activate(sl.Binding, mode)
	if act.Err != nil {
		e.log.Warn("activation failed at %s position %d: %v", mode, pos, act.Err)
	}
	return act, true
}

// activate routes a binding to the macro runner or the dispatcher.
func (e *Engine) activate(b slot.Binding, mode combo.Mode) error {
	if b.Kind == slot.KindMacro {
		return e.macros.Run(context.Background(), b.Script)
	}
	return e.dispatcher.Dispatch(b, mode)
}

// crossbarPosition maps activation controls to crossbar positions 1..8:
// the four d-pad directions then the four face buttons.
func crossbarPosition(c adapter.Control) (int, bool) {
	switch c {
	case adapter.ControlDPadUp:
		return 1, true
	case adapter.ControlDPadRight:
		return 2, true
	case adapter.ControlDPadDown:
		return 3, true
	case adapter.ControlDPadLeft:
		return 4, true
	case adapter.ControlFaceNorth:
		return 5, true
	case adapter.ControlFaceEast:
		return 6, true
	case adapter.ControlFaceSouth:
		return 7, true
	case adapter.ControlFaceWest:
		return 8, true
	default:
		return 0, false
	}
}

// CrossbarIndex encodes a combo mode and position into the crossbar slot
// index space.
func CrossbarIndex(mode combo.Mode, position int) (int, error) {
	if mode == combo.None || mode >= combo.NumModes {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	if position < 1 || position > slot.CrossbarPositions {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}
	return (int(mode)-1)*slot.CrossbarPositions + position, nil
}

// DecodeCrossbarIndex is the inverse of CrossbarIndex.
func DecodeCrossbarIndex(index int) (combo.Mode, int, bool) {
	if index < 1 {
		return combo.None, 0, false
	}
	mode := combo.Mode((index-1)/slot.CrossbarPositions + 1)
	if mode >= combo.NumModes {
		return combo.None, 0, false
	}
	return mode, (index-1)%slot.CrossbarPositions + 1, true
}

// crossbarLookup builds the registry lookup for the current context.
func (e *Engine) crossbarLookup(index int) slot.Lookup {
	bar := palette.Crossbar()
	return slot.Lookup{
		Bar:     bar,
		Palette: e.palettes.Active(e.ScopeFor(bar)),
		Job:     e.job,
		Pet:     e.pet,
		Index:   index,
	}
}

// ResolveCrossbar resolves the slot at a position under the current
// lookup mode.
func (e *Engine) ResolveCrossbar(position int) (slot.Slot, error) {
	return e.ResolveCrossbarAt(e.resolver.LookupMode(), position)
}

// ResolveCrossbarAt resolves the slot at a position under an explicit
// mode. Rendering uses it to draw inactive banks.
func (e *Engine) ResolveCrossbarAt(mode combo.Mode, position int) (slot.Slot, error) {
	idx, err := CrossbarIndex(mode, position)
	if err != nil {
		return slot.Slot{}, err
	}
	return e.slots.Get(e.crossbarLookup(idx))
}

// SetCrossbarSlot binds an action at a mode and position. Macro bindings
// are compile-checked before they land.
func (e *Engine) SetCrossbarSlot(mode combo.Mode, position int, b slot.Binding) error {
	idx, err := CrossbarIndex(mode, position)
	if err != nil {
		return err
	}
	if b.Kind == slot.KindMacro {
		if err := e.macros.Check(b.Script); err != nil {
			return err
		}
	}
	return e.slots.Set(e.crossbarLookup(idx), b)
}

// ClearCrossbarSlot tombstones the slot at a mode and position.
func (e *Engine) ClearCrossbarSlot(mode combo.Mode, position int) error {
	idx, err := CrossbarIndex(mode, position)
	if err != nil {
		return err
	}
	return e.slots.Clear(e.crossbarLookup(idx))
}

// hotbarLookup builds the registry lookup for a hotbar slot.
func (e *Engine) hotbarLookup(bar palette.BarType, index int) slot.Lookup {
	return slot.Lookup{
		Bar:     bar,
		Palette: e.palettes.Active(e.ScopeFor(bar)),
		Job:     e.job,
		Pet:     e.pet,
		Index:   index,
	}
}

// ResolveHotbar resolves a hotbar slot under the current context.
func (e *Engine) ResolveHotbar(barIndex, index int) (slot.Slot, error) {
	return e.slots.Get(e.hotbarLookup(palette.Hotbar(barIndex), index))
}

// SetHotbarSlot binds an action on a hotbar slot.
func (e *Engine) SetHotbarSlot(barIndex, index int, b slot.Binding) error {
	if b.Kind == slot.KindMacro {
		if err := e.macros.Check(b.Script); err != nil {
			return err
		}
	}
	return e.slots.Set(e.hotbarLookup(palette.Hotbar(barIndex), index), b)
}

// ClearHotbarSlot tombstones a hotbar slot.
func (e *Engine) ClearHotbarSlot(barIndex, index int) error {
	return e.slots.Clear(e.hotbarLookup(palette.Hotbar(barIndex), index))
}

// HandleKey routes a host keyboard chord. During capture it feeds the
// keybind manager; otherwise a bound chord activates its hotbar slot.
func (e *Engine) HandleKey(c keybind.Chord) (Activation, bool) {
	if _, capturing := e.keys.Capturing(); capturing {
		e.keys.HandleKey(c)
		return Activation{}, false
	}

	ref, ok := e.keys.Owner(c)
	if !ok {
		return Activation{}, false
	}
	bar, barIndex, ok := parseHotbarRef(ref.Bar)
	if !ok {
		return Activation{}, false
	}

	sl, err := e.slots.Get(e.hotbarLookup(bar, ref.Slot))
	if err != nil || !sl.IsBound() {
		return Activation{}, false
	}

	act := Activation{Binding: sl.Binding, Mode: combo.None, Position: ref.Slot}
	act.Err = e.activate(sl.Binding, combo.None)
	if act.Err != nil {
		e.log.Warn("activation failed on hotbar%d slot %d: %v", barIndex, ref.Slot, act.Err)
	}
	return act, true
}

// parseHotbarRef recovers the bar identity from a keybind slot ref.
func parseHotbarRef(name string) (palette.BarType, int, bool) {
	for i := 1; i <= palette.MaxHotbars; i++ {
		b := palette.Hotbar(i)
		if b.String() == name {
			return b, i, true
		}
	}
	return palette.BarType{}, 0, false
}

// ActivePalette returns the active palette for a bar under the current
// context, following shared-library fallback.
func (e *Engine) ActivePalette(bar palette.BarType) string {
	return e.palettes.Active(e.ScopeFor(bar))
}

// SetActivePalette switches the active palette for a bar. All hotbars
// share one palette scope, so switching through any hotbar affects all.
func (e *Engine) SetActivePalette(bar palette.BarType, name string) error {
	return e.palettes.SetActive(e.ScopeFor(bar), name)
}

// ApplyConfig applies new settings: trigger timing, combo modes, and
// storage modes. Disabling expanded modes strands any bindings stored in
// expanded banks; they are preserved and reported, never deleted.
func (e *Engine) ApplyConfig(cfg config.Settings) error {
	e.cfg = cfg
	e.tracker = trigger.NewTracker(triggerConfig(cfg.Triggers))
	e.resolver.SetConfig(comboConfig(cfg.Crossbar))
	e.held = make(map[adapter.Control]bool)

	if err := e.slots.SetStorageMode(palette.Crossbar(), cfg.Crossbar.JobSpecific); err != nil {
		return err
	}
	if err := e.slots.SetPetAware(palette.Crossbar(), cfg.Crossbar.PetAware); err != nil {
		return err
	}
	for i := 1; i <= palette.MaxHotbars; i++ {
		if err := e.slots.SetStorageMode(palette.Hotbar(i), cfg.Hotbars.JobSpecific); err != nil {
			return err
		}
	}

	if !cfg.Crossbar.Expanded {
		if orphans := e.OrphanedExpandedBindings(); len(orphans) > 0 {
			e.log.Warn("expanded modes disabled with %d bindings stranded in expanded banks", len(orphans))
		}
	}
	return nil
}

// Orphan identifies a binding stored in a bank that the current combo
// configuration cannot reach.
type Orphan struct {
	TableKey string
	Mode     combo.Mode
	Position int
}

// OrphanedExpandedBindings lists crossbar bindings stranded in expanded or
// double-tap banks by the current configuration. Stranded bindings stay in
// storage and come back when the modes are re-enabled.
func (e *Engine) OrphanedExpandedBindings() []Orphan {
	var orphans []Orphan
	state := e.slots.Snapshot()
	crossbarPrefix := palette.Crossbar().String() + "/"

	for _, table := range state.Tables {
		if len(table.Key) < len(crossbarPrefix) || table.Key[:len(crossbarPrefix)] != crossbarPrefix {
			continue
		}
		for _, entry := range table.Entries {
			if entry.Cleared || entry.Binding == nil {
				continue
			}
			mode, pos, ok := DecodeCrossbarIndex(entry.Index)
			if !ok {
				continue
			}
			if e.modeReachable(mode) {
				continue
			}
			orphans = append(orphans, Orphan{TableKey: table.Key, Mode: mode, Position: pos})
		}
	}
	return orphans
}

// modeReachable reports whether the current configuration can address a
// storage bank.
func (e *Engine) modeReachable(mode combo.Mode) bool {
	c := e.cfg.Crossbar
	switch mode {
	case combo.Primary, combo.Secondary:
		return true
	case combo.PrimaryThenSecondary, combo.SecondaryThenPrimary:
		return c.Expanded && !c.SharedExpanded
	case combo.SharedExpanded:
		return c.Expanded && c.SharedExpanded
	case combo.PrimaryDoubleTap, combo.SecondaryDoubleTap:
		return c.DoubleTap
	default:
		return false
	}
}
