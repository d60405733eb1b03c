package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/tirem/crossbar/internal/bar/keybind"
	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
	"github.com/tirem/crossbar/internal/config"
	"github.com/tirem/crossbar/internal/input/adapter"
	"github.com/tirem/crossbar/internal/input/combo"
)

type dispatched struct {
	binding slot.Binding
	mode    combo.Mode
}

type fakeDispatcher struct {
	calls []dispatched
	fail  error
}

func (d *fakeDispatcher) Dispatch(b slot.Binding, mode combo.Mode) error {
	if d.fail != nil {
		return d.fail
	}
	d.calls = append(d.calls, dispatched{b, mode})
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type testRig struct {
	engine     *Engine
	adapter    *adapter.MappedAdapter
	dispatcher *fakeDispatcher
	keys       *keybind.Manager
	now        time.Time
}

func newRig(t *testing.T, mutate func(*config.Settings)) *testRig {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test settings invalid: %v", err)
	}

	a := adapter.NewMappedAdapter(nil)
	d := &fakeDispatcher{}
	keys := keybind.NewManager()
	e, err := New(Options{
		Settings:   cfg,
		Adapter:    a,
		Palettes:   palette.NewStore(),
		Slots:      slot.NewRegistry(cfg.Hotbars.Capacity),
		Keybinds:   keys,
		Dispatcher: d,
		Log:        nopLogger{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.SetContext(3, 5); err != nil {
		t.Fatalf("SetContext() error = %v", err)
	}
	return &testRig{engine: e, adapter: a, dispatcher: d, keys: keys, now: time.Now()}
}

// feed pushes a device event and advances one frame.
func (r *testRig) feed(code int, value float64) Frame {
	r.now = r.now.Add(16 * time.Millisecond)
	r.adapter.Push(adapter.DeviceEvent{Code: code, Value: value}, r.now)
	return r.engine.ProcessFrame(r.now)
}

// Default scheme codes: 6/7 analog triggers, 10..13 dpad, 0..3 face.
const (
	codePrimary   = 6
	codeSecondary = 7
	codeDPadUp    = 10
	codeFaceSouth = 1
)

func TestNewRequiresComponents(t *testing.T) {
	_, err := New(Options{})
	if !errors.Is(err, ErrMissingComponent) {
		t.Errorf("New(empty) error = %v, want ErrMissingComponent", err)
	}
}

func TestFrameModeFollowsTriggers(t *testing.T) {
	r := newRig(t, nil)

	frame := r.feed(codePrimary, 0.8)
	if frame.Mode != combo.Primary {
		t.Errorf("Mode = %v, want Primary", frame.Mode)
	}
	frame = r.feed(codeSecondary, 0.8)
	if frame.Mode != combo.PrimaryThenSecondary {
		t.Errorf("Mode = %v, want PrimaryThenSecondary", frame.Mode)
	}
	frame = r.feed(codePrimary, 0.05)
	if frame.Mode != combo.Secondary {
		t.Errorf("Mode = %v, want Secondary after primary release", frame.Mode)
	}
}

func TestHysteresisInsideFrame(t *testing.T) {
	r := newRig(t, nil)

	r.feed(codePrimary, 0.8)
	// Sagging into the band must not release.
	frame := r.feed(codePrimary, 0.2)
	if frame.Mode != combo.Primary {
		t.Errorf("Mode = %v, want Primary held through band", frame.Mode)
	}
	frame = r.feed(codePrimary, 0.1)
	if frame.Mode != combo.None {
		t.Errorf("Mode = %v, want None below release threshold", frame.Mode)
	}
}

func TestCrossbarIndexRoundTrip(t *testing.T) {
	for mode := combo.Primary; mode < combo.NumModes; mode++ {
		for pos := 1; pos <= slot.CrossbarPositions; pos++ {
			idx, err := CrossbarIndex(mode, pos)
			if err != nil {
				t.Fatalf("CrossbarIndex(%v, %d) error = %v", mode, pos, err)
			}
			gotMode, gotPos, ok := DecodeCrossbarIndex(idx)
			if !ok || gotMode != mode || gotPos != pos {
				t.Errorf("decode(%d) = (%v, %d, %t), want (%v, %d)", idx, gotMode, gotPos, ok, mode, pos)
			}
		}
	}

	if _, err := CrossbarIndex(combo.None, 1); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("CrossbarIndex(None) error = %v, want ErrInvalidMode", err)
	}
	if _, err := CrossbarIndex(combo.Primary, 9); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("CrossbarIndex(pos 9) error = %v, want ErrInvalidPosition", err)
	}
}

func TestActivationDispatchesBoundSlot(t *testing.T) {
	r := newRig(t, nil)
	e := r.engine

	b := slot.Binding{Kind: slot.KindAbility, ID: 42, Target: slot.TargetEnemy}
	if err := e.SetCrossbarSlot(combo.Primary, 1, b); err != nil {
		t.Fatalf("SetCrossbarSlot() error = %v", err)
	}

	r.feed(codePrimary, 0.8)
	frame := r.feed(codeDPadUp, 1)
	if len(frame.Activations) != 1 {
		t.Fatalf("Activations = %+v, want 1", frame.Activations)
	}
	act := frame.Activations[0]
	if act.Binding.ID != 42 || act.Mode != combo.Primary || act.Position != 1 || act.Err != nil {
		t.Errorf("activation = %+v", act)
	}
	if len(r.dispatcher.calls) != 1 || r.dispatcher.calls[0].binding.ID != 42 {
		t.Errorf("dispatcher calls = %+v", r.dispatcher.calls)
	}

	// Holding the button does not re-fire.
	frame = r.feed(codeDPadUp, 1)
	if len(frame.Activations) != 0 {
		t.Errorf("held button re-fired: %+v", frame.Activations)
	}

	// Release and press again fires once more.
	r.feed(codeDPadUp, 0)
	frame = r.feed(codeDPadUp, 1)
	if len(frame.Activations) != 1 {
		t.Errorf("re-press did not fire: %+v", frame.Activations)
	}
}

func TestActivationIgnoredWithoutMode(t *testing.T) {
	r := newRig(t, nil)
	if err := r.engine.SetCrossbarSlot(combo.Primary, 1, slot.Binding{Kind: slot.KindAbility, ID: 42}); err != nil {
		t.Fatal(err)
	}

	frame := r.feed(codeDPadUp, 1)
	if len(frame.Activations) != 0 {
		t.Errorf("activation fired with no trigger held: %+v", frame.Activations)
	}
}

func TestActivationSkipsEmptyAndCleared(t *testing.T) {
	r := newRig(t, nil)
	e := r.engine

	r.feed(codePrimary, 0.8)
	if frame := r.feed(codeDPadUp, 1); len(frame.Activations) != 0 {
		t.Errorf("empty slot activated: %+v", frame.Activations)
	}
	r.feed(codeDPadUp, 0)

	if err := e.SetCrossbarSlot(combo.Primary, 1, slot.Binding{Kind: slot.KindAbility, ID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := e.ClearCrossbarSlot(combo.Primary, 1); err != nil {
		t.Fatal(err)
	}
	if frame := r.feed(codeDPadUp, 1); len(frame.Activations) != 0 {
		t.Errorf("cleared slot activated: %+v", frame.Activations)
	}
}

func TestMacroBindingRunsScript(t *testing.T) {
	r := newRig(t, nil)
	e := r.engine

	b := slot.Binding{Kind: slot.KindMacro, Script: `use("ability", 42, "t")`}
	if err := e.SetCrossbarSlot(combo.Primary, 7, b); err != nil {
		t.Fatalf("SetCrossbarSlot() error = %v", err)
	}

	r.feed(codePrimary, 0.8)
	frame := r.feed(codeFaceSouth, 1)
	if len(frame.Activations) != 1 || frame.Activations[0].Err != nil {
		t.Fatalf("Activations = %+v", frame.Activations)
	}
	// The script dispatched through the host bridge.
	if len(r.dispatcher.calls) != 1 || r.dispatcher.calls[0].binding.Kind != slot.KindAbility {
		t.Errorf("dispatcher calls = %+v", r.dispatcher.calls)
	}
}

func TestMacroBindingCheckedAtBindTime(t *testing.T) {
	r := newRig(t, nil)

	b := slot.Binding{Kind: slot.KindMacro, Script: `use("ability,`}
	if err := r.engine.SetCrossbarSlot(combo.Primary, 1, b); err == nil {
		t.Error("SetCrossbarSlot accepted a script that does not compile")
	}
}

func TestSharedExpandedLookup(t *testing.T) {
	r := newRig(t, func(cfg *config.Settings) {
		cfg.Crossbar.SharedExpanded = true
	})
	e := r.engine

	b := slot.Binding{Kind: slot.KindSpell, ID: 9}
	if err := e.SetCrossbarSlot(combo.SharedExpanded, 2, b); err != nil {
		t.Fatal(err)
	}

	r.feed(codePrimary, 0.8)
	frame := r.feed(codeSecondary, 0.8)
	if frame.Mode != combo.PrimaryThenSecondary || frame.LookupMode != combo.SharedExpanded {
		t.Fatalf("frame = %+v", frame)
	}

	sl, err := e.ResolveCrossbar(2)
	if err != nil {
		t.Fatalf("ResolveCrossbar() error = %v", err)
	}
	if !sl.IsBound() || sl.Binding.ID != 9 {
		t.Errorf("slot = %+v, want shared bank binding", sl)
	}
}

func TestHotbarSlotsAndKeybinds(t *testing.T) {
	r := newRig(t, nil)
	e := r.engine

	b := slot.Binding{Kind: slot.KindItem, ID: 4096}
	if err := e.SetHotbarSlot(1, 5, b); err != nil {
		t.Fatalf("SetHotbarSlot() error = %v", err)
	}

	chord := keybind.Chord{Code: keybind.CodeF1, Ctrl: true}
	r.keys.Apply(palette.Hotbar(1), 5, chord)

	act, fired := e.HandleKey(chord)
	if !fired || act.Err != nil || act.Binding.ID != 4096 {
		t.Errorf("HandleKey = (%+v, %t)", act, fired)
	}

	if _, fired := e.HandleKey(keybind.Chord{Code: keybind.CodeF2}); fired {
		t.Error("unbound chord fired")
	}
}

func TestHandleKeyFeedsCapture(t *testing.T) {
	r := newRig(t, nil)
	e := r.engine

	r.keys.BeginCapture(palette.Hotbar(2), 3)
	chord := keybind.Chord{Code: keybind.CodeF3}
	if _, fired := e.HandleKey(chord); fired {
		t.Error("capture chord dispatched an action")
	}
	if got, ok := r.keys.Get(palette.Hotbar(2), 3); !ok || got != chord {
		t.Errorf("captured chord = (%+v, %t), want %+v", got, ok, chord)
	}
}

func TestContextSwitchSeparatesJobSpecificSlots(t *testing.T) {
	r := newRig(t, func(cfg *config.Settings) {
		cfg.Crossbar.JobSpecific = true
	})
	e := r.engine
	if err := e.ApplyConfig(e.cfg); err != nil {
		t.Fatal(err)
	}

	if err := e.SetCrossbarSlot(combo.Primary, 1, slot.Binding{Kind: slot.KindAbility, ID: 42}); err != nil {
		t.Fatal(err)
	}

	if err := e.SetContext("j7", 0); err != nil {
		t.Fatalf("SetContext() error = %v", err)
	}
	sl, err := e.ResolveCrossbarAt(combo.Primary, 1)
	if err != nil {
		t.Fatal(err)
	}
	if sl.IsBound() {
		t.Error("job 7 sees job 3's binding in job-specific mode")
	}

	if err := e.SetContext(3, 5); err != nil {
		t.Fatal(err)
	}
	sl, err = e.ResolveCrossbarAt(combo.Primary, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !sl.IsBound() || sl.Binding.ID != 42 {
		t.Errorf("job 3 binding lost after context round-trip: %+v", sl)
	}
}

func TestOrphanedExpandedBindings(t *testing.T) {
	r := newRig(t, nil)
	e := r.engine

	if err := e.SetCrossbarSlot(combo.PrimaryThenSecondary, 4, slot.Binding{Kind: slot.KindSpell, ID: 7}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCrossbarSlot(combo.Primary, 1, slot.Binding{Kind: slot.KindSpell, ID: 8}); err != nil {
		t.Fatal(err)
	}

	cfg := e.cfg
	cfg.Crossbar.Expanded = false
	if err := e.ApplyConfig(cfg); err != nil {
		t.Fatalf("ApplyConfig() error = %v", err)
	}

	orphans := e.OrphanedExpandedBindings()
	if len(orphans) != 1 {
		t.Fatalf("orphans = %+v, want 1", orphans)
	}
	if orphans[0].Mode != combo.PrimaryThenSecondary || orphans[0].Position != 4 {
		t.Errorf("orphan = %+v", orphans[0])
	}

	// Re-enabling brings the binding back; nothing was deleted.
	cfg.Crossbar.Expanded = true
	if err := e.ApplyConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if orphans := e.OrphanedExpandedBindings(); len(orphans) != 0 {
		t.Errorf("orphans after re-enable = %+v", orphans)
	}
	sl, err := e.ResolveCrossbarAt(combo.PrimaryThenSecondary, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !sl.IsBound() || sl.Binding.ID != 7 {
		t.Errorf("stranded binding was not preserved: %+v", sl)
	}
}

func TestApplyConfigSwitchesDigitalTracking(t *testing.T) {
	r := newRig(t, nil)
	e := r.engine

	cfg := e.cfg
	cfg.Triggers.Digital = true
	if err := e.ApplyConfig(cfg); err != nil {
		t.Fatal(err)
	}

	frame := r.feed(codePrimary, 1)
	if frame.Mode != combo.Primary {
		t.Errorf("Mode = %v, want Primary under digital config", frame.Mode)
	}
}
