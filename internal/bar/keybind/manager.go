package keybind

import (
	"fmt"
	"sync"

	"github.com/tirem/crossbar/internal/bar/palette"
)

// SlotRef identifies a keyboard-triggerable slot on a bar.
type SlotRef struct {
	Bar  string `json:"bar"`
	Slot int    `json:"slot"`
}

// NewSlotRef builds a SlotRef from a bar type and slot index.
func NewSlotRef(bar palette.BarType, slot int) SlotRef {
	return SlotRef{Bar: bar.String(), Slot: slot}
}

// entry is a stored keybind. A tombstoned entry records that the slot's
// binding was removed (by an explicit clear or by losing its chord to
// another slot) so the removal itself persists.
type entry struct {
	chord   Chord
	cleared bool
}

// CaptureResult reports what HandleKey did with a key event.
type CaptureResult uint8

const (
	// CaptureIgnored means no capture is in progress or the key does not
	// qualify (bare modifier).
	CaptureIgnored CaptureResult = iota
	// CaptureApplied means the chord was bound to the capturing slot.
	CaptureApplied
	// CaptureConflict means the chord collides with a host shortcut and
	// awaits BindAnyway or CancelConflict.
	CaptureConflict
	// CaptureCancelled means Escape ended the capture with no change.
	CaptureCancelled
)

// String returns a human-readable name for the capture result.
func (r CaptureResult) String() string {
	switch r {
	case CaptureIgnored:
		return "ignored"
	case CaptureApplied:
		return "applied"
	case CaptureConflict:
		return "conflict"
	case CaptureCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("CaptureResult(%d)", r)
	}
}

// captureState tracks an in-progress capture. Capture is a flag checked on
// the tick that delivers a key event, never a blocking wait.
type captureState struct {
	active  bool
	target  SlotRef
	pending Chord // candidate awaiting conflict confirmation
	paused  bool
}

// Manager owns the keybind table, the blocked-key allow-list, and the
// capture state machine.
type Manager struct {
	mu       sync.RWMutex
	bindings map[SlotRef]entry
	allowed  map[string]Chord // chord key -> acknowledged host conflict
	capture  captureState

	onChange func()
}

// NewManager creates an empty keybind manager.
func NewManager() *Manager {
	return &Manager{
		bindings: make(map[SlotRef]entry),
		allowed:  make(map[string]Chord),
	}
}

// OnChange registers a callback fired after any persistent mutation.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

// BeginCapture starts capturing the next qualifying key for the slot.
// Any previous capture is discarded.
func (m *Manager) BeginCapture(bar palette.BarType, slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capture = captureState{active: true, target: NewSlotRef(bar, slot)}
}

// CancelCapture ends any in-progress capture with no state change.
func (m *Manager) CancelCapture() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capture = captureState{}
}

// Capturing reports whether a capture is in progress and its target.
func (m *Manager) Capturing() (SlotRef, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capture.target, m.capture.active
}

// PendingConflict returns the candidate chord and the host feature it
// collides with while a capture is paused for confirmation.
func (m *Manager) PendingConflict() (Chord, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.capture.paused {
		return Chord{}, "", false
	}
	name, _ := HostShortcut(m.capture.pending)
	return m.capture.pending, name, true
}

// HandleKey feeds a key event to the capture state machine. Escape cancels;
// bare modifiers are ignored; a chord colliding with a host shortcut not
// yet in the allow-list pauses the capture and returns CaptureConflict;
// otherwise the chord is applied and the capture ends.
func (m *Manager) HandleKey(c Chord) CaptureResult {
	m.mu.Lock()

	if !m.capture.active || m.capture.paused {
		m.mu.Unlock()
		return CaptureIgnored
	}
	if c.Code == CodeEscape && !c.Ctrl && !c.Alt && !c.Shift {
		m.capture = captureState{}
		m.mu.Unlock()
		return CaptureCancelled
	}
	if IsModifierCode(c.Code) {
		m.mu.Unlock()
		return CaptureIgnored
	}

	_, conflicted := HostShortcut(c)
	_, acknowledged := m.allowed[c.Key()]
	if conflicted && !acknowledged {
		m.capture.pending = c
		m.capture.paused = true
		m.mu.Unlock()
		return CaptureConflict
	}

	target := m.capture.target
	m.capture = captureState{}
	m.applyLocked(target, c)
	m.mu.Unlock()
	return CaptureApplied
}

// BindAnyway confirms a paused conflict: the chord joins the allow-list and
// is applied to the capturing slot.
func (m *Manager) BindAnyway() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.capture.paused {
		return ErrNoPendingConflict
	}
	c := m.capture.pending
	target := m.capture.target
	m.capture = captureState{}
	m.allowed[c.Key()] = c
	m.applyLocked(target, c)
	return nil
}

// CancelConflict discards the paused candidate and resumes the capture.
func (m *Manager) CancelConflict() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.capture.paused {
		return ErrNoPendingConflict
	}
	m.capture.pending = Chord{}
	m.capture.paused = false
	return nil
}

// Apply binds the chord to the slot directly (no capture). Any other slot
// holding an identical live chord is tombstoned, never silently
// overwritten: the old owner becomes an explicit cleared entry so its
// removal persists and is auditable.
func (m *Manager) Apply(bar palette.BarType, slot int, c Chord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyLocked(NewSlotRef(bar, slot), c)
}

// applyLocked stores the binding and tombstones the previous owner of the
// chord. Must hold the write lock.
func (m *Manager) applyLocked(target SlotRef, c Chord) {
	for ref, e := range m.bindings {
		if ref != target && !e.cleared && e.chord == c {
			m.bindings[ref] = entry{chord: e.chord, cleared: true}
		}
	}
	m.bindings[target] = entry{chord: c}
	m.changed()
}

// Clear tombstones the slot's binding and removes its chord from the
// allow-list when no other live binding uses it.
func (m *Manager) Clear(bar palette.BarType, slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := NewSlotRef(bar, slot)
	e, ok := m.bindings[ref]
	if !ok || e.cleared {
		return
	}
	m.bindings[ref] = entry{chord: e.chord, cleared: true}

	inUse := false
	for other, oe := range m.bindings {
		if other != ref && !oe.cleared && oe.chord == e.chord {
			inUse = true
			break
		}
	}
	if !inUse {
		delete(m.allowed, e.chord.Key())
	}
	m.changed()
}

// Get returns the live chord bound to the slot.
func (m *Manager) Get(bar palette.BarType, slot int) (Chord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.bindings[NewSlotRef(bar, slot)]
	if !ok || e.cleared {
		return Chord{}, false
	}
	return e.chord, true
}

// Owner returns the slot holding the chord as a live binding.
func (m *Manager) Owner(c Chord) (SlotRef, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for ref, e := range m.bindings {
		if !e.cleared && e.chord == c {
			return ref, true
		}
	}
	return SlotRef{}, false
}

// DisplayString returns the UI form of the slot's binding, or "" when the
// slot has no live binding.
func (m *Manager) DisplayString(bar palette.BarType, slot int) string {
	c, ok := m.Get(bar, slot)
	if !ok {
		return ""
	}
	return c.String()
}

// IsAllowed reports whether the chord is in the accepted-conflict list.
func (m *Manager) IsAllowed(c Chord) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.allowed[c.Key()]
	return ok
}

// BindingState is the persisted form of one keybind entry.
type BindingState struct {
	Ref     SlotRef `json:"ref"`
	Chord   Chord   `json:"chord"`
	Cleared bool    `json:"cleared,omitempty"`
}

// ManagerState is the persisted form of the keybind manager.
type ManagerState struct {
	Bindings []BindingState `json:"bindings"`
	Allowed  []Chord        `json:"allowed"`
}

// Snapshot exports bindings (tombstones included) and the allow-list.
// Capture state is transient and never persisted.
func (m *Manager) Snapshot() ManagerState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := ManagerState{}
	for ref, e := range m.bindings {
		state.Bindings = append(state.Bindings, BindingState{Ref: ref, Chord: e.chord, Cleared: e.cleared})
	}
	for _, c := range m.allowed {
		state.Allowed = append(state.Allowed, c)
	}
	return state
}

// Restore replaces the manager contents with a captured snapshot.
func (m *Manager) Restore(state ManagerState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bindings = make(map[SlotRef]entry, len(state.Bindings))
	for _, b := range state.Bindings {
		m.bindings[b.Ref] = entry{chord: b.Chord, cleared: b.Cleared}
	}
	m.allowed = make(map[string]Chord, len(state.Allowed))
	for _, c := range state.Allowed {
		m.allowed[c.Key()] = c
	}
	m.capture = captureState{}
}
