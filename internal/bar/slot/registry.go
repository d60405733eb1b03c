package slot

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tirem/crossbar/internal/bar/palette"
)

// DefaultHotbarCapacity is the slot count of a hotbar unless configured.
const DefaultHotbarCapacity = 12

// MaxHotbarCapacity is the largest configurable hotbar capacity.
const MaxHotbarCapacity = 12

// CrossbarPositions is the number of slots addressable per combo mode.
const CrossbarPositions = 8

// tableEntry is a stored slot: either a tombstone or a binding.
type tableEntry struct {
	cleared bool
	binding Binding
}

// barState holds the per-bar storage configuration.
type barState struct {
	capacity    int
	jobSpecific bool
	petAware    bool
}

// Registry stores slot-to-action bindings. Tables are keyed by palette name
// plus, when the owning bar is in job-specific mode, the canonical job key,
// plus the active pet identity when pet-aware layering is enabled.
type Registry struct {
	mu   sync.RWMutex
	bars map[string]*barState
	// tables maps tableKey -> slotIndex -> entry.
	tables map[string]map[int]tableEntry

	onChange func()
}

// NewRegistry creates a registry with every bar in global storage mode.
// Hotbars receive the given capacity (DefaultHotbarCapacity when zero);
// the crossbar capacity is fixed at CrossbarPositions per combo mode,
// encoded into the slot index space by the engine.
func NewRegistry(hotbarCapacity int) *Registry {
	if hotbarCapacity <= 0 || hotbarCapacity > MaxHotbarCapacity {
		hotbarCapacity = DefaultHotbarCapacity
	}

	r := &Registry{
		bars:   make(map[string]*barState),
		tables: make(map[string]map[int]tableEntry),
	}
	for i := 1; i <= palette.MaxHotbars; i++ {
		r.bars[palette.Hotbar(i).String()] = &barState{capacity: hotbarCapacity}
	}
	// Crossbar slot space is positions x combo modes; the engine encodes the
	// mode into the index, so capacity covers all banks.
	r.bars[palette.Crossbar().String()] = &barState{capacity: CrossbarPositions * 8}
	return r
}

// OnChange registers a callback fired after any successful mutation.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Registry) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}

// barLocked returns the bar state or an error for unknown bars.
func (r *Registry) barLocked(bar palette.BarType) (*barState, error) {
	b, ok := r.bars[bar.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBar, bar)
	}
	return b, nil
}

// tableKey builds the canonical storage key for a table. The job component
// is present only in job-specific mode and always in canonical JobID form;
// the pet component only when pet-aware layering is on and a pet is active.
func tableKey(bar palette.BarType, paletteName string, job palette.JobID, pet string, jobSpecific, petAware bool) string {
	var sb strings.Builder
	sb.WriteString(bar.String())
	sb.WriteByte('/')
	sb.WriteString(paletteName)
	if jobSpecific {
		sb.WriteByte('/')
		sb.WriteString(job.String())
		if petAware && pet != "" {
			sb.WriteString("/pet:")
			sb.WriteString(pet)
		}
	}
	return sb.String()
}

// Lookup identifies a slot for get/set/clear operations.
type Lookup struct {
	Bar     palette.BarType
	Palette string
	Job     palette.JobID
	Pet     string
	Index   int
}

// validateLocked checks the lookup against the bar's capacity.
func (r *Registry) validateLocked(l Lookup) (*barState, error) {
	b, err := r.barLocked(l.Bar)
	if err != nil {
		return nil, err
	}
	if l.Index < 1 || l.Index > b.capacity {
		return nil, fmt.Errorf("%w: %d on %s (capacity %d)", ErrInvalidSlot, l.Index, l.Bar, b.capacity)
	}
	if _, err := palette.NormalizeJob(l.Job); err != nil && b.jobSpecific {
		return nil, err
	}
	return b, nil
}

func (r *Registry) keyFor(b *barState, l Lookup) string {
	return tableKey(l.Bar, l.Palette, l.Job, l.Pet, b.jobSpecific, b.petAware)
}

// Get resolves a slot. Absent entries return the defined empty slot, never
// an error; tombstoned entries return the cleared slot.
func (r *Registry) Get(l Lookup) (Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, err := r.validateLocked(l)
	if err != nil {
		return Empty(), err
	}

	table, ok := r.tables[r.keyFor(b, l)]
	if !ok {
		return Empty(), nil
	}
	e, ok := table[l.Index]
	if !ok {
		return Empty(), nil
	}
	if e.cleared {
		return Cleared(), nil
	}
	return Bound(e.binding), nil
}

// Set stores a binding, replacing any tombstone on the slot.
func (r *Registry) Set(l Lookup, binding Binding) error {
	if err := binding.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.validateLocked(l)
	if err != nil {
		return err
	}

	key := r.keyFor(b, l)
	table, ok := r.tables[key]
	if !ok {
		table = make(map[int]tableEntry)
		r.tables[key] = table
	}
	table[l.Index] = tableEntry{binding: binding}
	r.changed()
	return nil
}

// Clear writes an explicit tombstone. The tombstone is distinct from
// absence so that default population never resurrects the slot.
func (r *Registry) Clear(l Lookup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.validateLocked(l)
	if err != nil {
		return err
	}

	key := r.keyFor(b, l)
	table, ok := r.tables[key]
	if !ok {
		table = make(map[int]tableEntry)
		r.tables[key] = table
	}
	table[l.Index] = tableEntry{cleared: true}
	r.changed()
	return nil
}

// Seed applies default bindings to any slot that is neither bound nor
// tombstoned. Used by first-use default population.
func (r *Registry) Seed(bar palette.BarType, paletteName string, job palette.JobID, pet string, defaults map[int]Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.barLocked(bar)
	if err != nil {
		return err
	}

	key := tableKey(bar, paletteName, job, pet, b.jobSpecific, b.petAware)
	table, ok := r.tables[key]
	if !ok {
		table = make(map[int]tableEntry)
		r.tables[key] = table
	}

	seeded := false
	for idx, binding := range defaults {
		if idx < 1 || idx > b.capacity {
			continue
		}
		if _, exists := table[idx]; exists {
			continue
		}
		if err := binding.Validate(); err != nil {
			continue
		}
		table[idx] = tableEntry{binding: binding}
		seeded = true
	}
	if seeded {
		r.changed()
	}
	return nil
}

// IsJobSpecific reports the bar's storage mode.
func (r *Registry) IsJobSpecific(bar palette.BarType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := r.barLocked(bar)
	if err != nil {
		return false
	}
	return b.jobSpecific
}

// IsPetAware reports whether pet layering is enabled for the bar.
func (r *Registry) IsPetAware(bar palette.BarType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := r.barLocked(bar)
	if err != nil {
		return false
	}
	return b.petAware
}

// SetStorageMode switches the bar between job-specific and global storage.
// Destructive: all existing bindings for the bar are discarded once the
// mode actually changes. Confirmation is the caller's responsibility; the
// registry performs the wipe unconditionally.
func (r *Registry) SetStorageMode(bar palette.BarType, jobSpecific bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.barLocked(bar)
	if err != nil {
		return err
	}
	if b.jobSpecific == jobSpecific {
		return nil
	}
	b.jobSpecific = jobSpecific
	r.dropBarTablesLocked(bar)
	r.changed()
	return nil
}

// SetPetAware toggles pet layering for the bar. Pet-specific tables are
// ignored by lookup when disabled but are not deleted.
func (r *Registry) SetPetAware(bar palette.BarType, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.barLocked(bar)
	if err != nil {
		return err
	}
	if b.petAware == enabled {
		return nil
	}
	b.petAware = enabled
	r.changed()
	return nil
}

// dropBarTablesLocked removes every table belonging to the bar.
func (r *Registry) dropBarTablesLocked(bar palette.BarType) {
	prefix := bar.String() + "/"
	for key := range r.tables {
		if strings.HasPrefix(key, prefix) {
			delete(r.tables, key)
		}
	}
}

// RenamePalette moves every table stored under the old palette name to the
// new name. Wired as a palette.Store rename hook so the rename and the
// table move happen within one logical operation.
func (r *Registry) RenamePalette(scope palette.Scope, oldName, newName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bar := range scopeBars(scope) {
		oldPrefix := bar + "/" + oldName
		newPrefix := bar + "/" + newName
		for key, table := range r.tables {
			if key == oldPrefix || strings.HasPrefix(key, oldPrefix+"/") {
				delete(r.tables, key)
				r.tables[newPrefix+key[len(oldPrefix):]] = table
			}
		}
	}
	r.changed()
}

// scopeBars lists the bar identities a palette scope covers. The hotbars
// share one palette set, so a hotbar-scoped palette operation touches the
// tables of every hotbar.
func scopeBars(scope palette.Scope) []string {
	if scope.Bar.Kind == palette.BarHotbar {
		names := make([]string, 0, palette.MaxHotbars)
		for i := 1; i <= palette.MaxHotbars; i++ {
			names = append(names, palette.Hotbar(i).String())
		}
		return names
	}
	return []string{scope.Bar.String()}
}

// CopyPalette duplicates every table stored under the source palette name
// to the destination name. Wired as a palette.Store copy hook.
func (r *Registry) CopyPalette(srcScope palette.Scope, srcName string, dstScope palette.Scope, dstName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	srcBars := scopeBars(srcScope)
	dstBars := scopeBars(dstScope)
	for i, srcBar := range srcBars {
		// Cross-kind copies map bar-for-bar only when shapes line up;
		// palette copies stay within one bar kind in practice.
		if i >= len(dstBars) {
			break
		}
		srcPrefix := srcBar + "/" + srcName
		dstPrefix := dstBars[i] + "/" + dstName
		for key, table := range r.tables {
			if key == srcPrefix || strings.HasPrefix(key, srcPrefix+"/") {
				dup := make(map[int]tableEntry, len(table))
				for idx, e := range table {
					dup[idx] = e
				}
				r.tables[dstPrefix+key[len(srcPrefix):]] = dup
			}
		}
	}
	r.changed()
}

// DeletePalette removes every table stored under the palette name.
// Wired as a palette.Store delete hook.
func (r *Registry) DeletePalette(scope palette.Scope, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bar := range scopeBars(scope) {
		prefix := bar + "/" + name
		for key := range r.tables {
			if key == prefix || strings.HasPrefix(key, prefix+"/") {
				delete(r.tables, key)
			}
		}
	}
	r.changed()
}

// TableKeys returns the keys of all stored tables, for diagnostics such as
// orphaned-binding reports.
func (r *Registry) TableKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.tables))
	for key := range r.tables {
		keys = append(keys, key)
	}
	return keys
}

// EntryState is the persisted form of a single slot entry.
type EntryState struct {
	Index   int      `json:"index"`
	Cleared bool     `json:"cleared,omitempty"`
	Binding *Binding `json:"binding,omitempty"`
}

// TableState is the persisted form of one table.
type TableState struct {
	Key     string       `json:"key"`
	Entries []EntryState `json:"entries"`
}

// BarState is the persisted per-bar configuration.
type BarState struct {
	Bar         string `json:"bar"`
	Capacity    int    `json:"capacity"`
	JobSpecific bool   `json:"job_specific,omitempty"`
	PetAware    bool   `json:"pet_aware,omitempty"`
}

// RegistryState is the persisted form of the whole registry.
type RegistryState struct {
	Bars   []BarState   `json:"bars"`
	Tables []TableState `json:"tables"`
}

// Snapshot exports the registry state, tombstones included.
func (r *Registry) Snapshot() RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := RegistryState{}
	for name, b := range r.bars {
		state.Bars = append(state.Bars, BarState{
			Bar:         name,
			Capacity:    b.capacity,
			JobSpecific: b.jobSpecific,
			PetAware:    b.petAware,
		})
	}
	for key, table := range r.tables {
		ts := TableState{Key: key}
		for idx, e := range table {
			es := EntryState{Index: idx, Cleared: e.cleared}
			if !e.cleared {
				binding := e.binding
				es.Binding = &binding
			}
			ts.Entries = append(ts.Entries, es)
		}
		if len(ts.Entries) > 0 {
			state.Tables = append(state.Tables, ts)
		}
	}
	return state
}

// Restore replaces the registry contents with a captured snapshot.
func (r *Registry) Restore(state RegistryState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bs := range state.Bars {
		b, ok := r.bars[bs.Bar]
		if !ok {
			continue
		}
		if bs.Capacity > 0 {
			b.capacity = bs.Capacity
		}
		b.jobSpecific = bs.JobSpecific
		b.petAware = bs.PetAware
	}

	r.tables = make(map[string]map[int]tableEntry, len(state.Tables))
	for _, ts := range state.Tables {
		table := make(map[int]tableEntry, len(ts.Entries))
		for _, es := range ts.Entries {
			if es.Cleared {
				table[es.Index] = tableEntry{cleared: true}
			} else if es.Binding != nil {
				table[es.Index] = tableEntry{binding: *es.Binding}
			}
		}
		if len(table) > 0 {
			r.tables[ts.Key] = table
		}
	}
}
