// Package palette implements the scoped palette store: named, ordered sets
// of slot bindings keyed by (bar, job, subjob) with shared-library fallback.
package palette

import (
	"fmt"
	"sync"
)

// DefaultName is the palette created on first use of a scope.
const DefaultName = "Base"

// RenameFunc is notified when a palette is renamed so dependent stores
// (slot tables) can move their keys in the same logical operation.
type RenameFunc func(scope Scope, oldName, newName string)

// CopyFunc is notified when a palette is copied so dependent stores can
// duplicate the source palette's bindings under the destination name.
type CopyFunc func(srcScope Scope, srcName string, dstScope Scope, dstName string)

// DeleteFunc is notified when a palette is deleted.
type DeleteFunc func(scope Scope, name string)

// entry holds the palette list for one scope. Order in names is the
// ordinal order; active always names an element of names once non-empty.
type entry struct {
	names  []string
	active string
}

func (e *entry) index(name string) int {
	for i, n := range e.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Store is the hierarchical palette store. All methods are safe for
// concurrent use, though the engine drives it from a single tick thread.
type Store struct {
	mu     sync.RWMutex
	scopes map[string]*entry

	renameHooks []RenameFunc
	copyHooks   []CopyFunc
	deleteHooks []DeleteFunc
	onChange    func()
}

// NewStore creates an empty palette store.
func NewStore() *Store {
	return &Store{scopes: make(map[string]*entry)}
}

// OnRename registers a hook invoked after a successful rename.
func (s *Store) OnRename(fn RenameFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renameHooks = append(s.renameHooks, fn)
}

// OnCopy registers a hook invoked after a successful copy.
func (s *Store) OnCopy(fn CopyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copyHooks = append(s.copyHooks, fn)
}

// OnDelete registers a hook invoked after a successful delete.
func (s *Store) OnDelete(fn DeleteFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteHooks = append(s.deleteHooks, fn)
}

// OnChange registers a callback fired after any successful mutation.
// Used by the persistence layer to mark the store dirty.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// resolveLocked returns the entry that reads against the scope should use,
// and whether that entry belongs to the fallback (shared) scope rather than
// the scope itself. Must hold at least a read lock.
func (s *Store) resolveLocked(scope Scope) (*entry, bool) {
	if e, ok := s.scopes[scope.Key()]; ok && len(e.names) > 0 {
		return e, false
	}
	if scope.IsShared() {
		return nil, false
	}
	if e, ok := s.scopes[scope.Shared().Key()]; ok && len(e.names) > 0 {
		return e, true
	}
	return nil, false
}

// ownLocked returns the scope's own entry, creating it if missing.
// Must hold the write lock.
func (s *Store) ownLocked(scope Scope) *entry {
	key := scope.Key()
	e, ok := s.scopes[key]
	if !ok {
		e = &entry{}
		s.scopes[key] = e
	}
	return e
}

// EnsureDefault guarantees the scope has at least one palette, creating the
// default palette as active when the scope is empty. Idempotent.
func (s *Store) EnsureDefault(scope Scope) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidScope, scope)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ownLocked(scope)
	if len(e.names) > 0 {
		return nil
	}
	e.names = append(e.names, DefaultName)
	e.active = DefaultName
	s.changed()
	return nil
}

// List returns the ordered palette names visible from the scope. A
// subjob-specific scope with no palettes of its own reads the shared-library
// scope instead; the result is indistinguishable from a direct read of that
// scope. Callers needing to know whether fallback applied use
// IsUsingFallback. The returned slice is a copy.
func (s *Store) List(scope Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, _ := s.resolveLocked(scope)
	if e == nil {
		return nil
	}
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// IsUsingFallback reports whether reads against the scope are currently
// served by the shared-library scope.
func (s *Store) IsUsingFallback(scope Scope) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, fallback := s.resolveLocked(scope)
	return fallback
}

// Create adds a palette to the scope at the end of the ordinal list.
// The fallback scope is never implicitly mutated: creating in a
// subjob-specific scope starts that scope's own palette list.
func (s *Store) Create(scope Scope, name string) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidScope, scope)
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ownLocked(scope)
	if e.index(name) >= 0 {
		return fmt.Errorf("%w: %q in %s", ErrDuplicateName, name, scope)
	}
	e.names = append(e.names, name)
	if e.active == "" {
		e.active = name
	}
	s.changed()
	return nil
}

// Rename changes a palette's name in place, preserving its ordinal position
// and active flag, and propagates the new name to dependent slot tables.
func (s *Store) Rename(scope Scope, oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}

	s.mu.Lock()

	e, ok := s.scopes[scope.Key()]
	if !ok || e.index(oldName) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in %s", ErrNotFound, oldName, scope)
	}
	if oldName != newName && e.index(newName) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in %s", ErrDuplicateName, newName, scope)
	}

	i := e.index(oldName)
	e.names[i] = newName
	if e.active == oldName {
		e.active = newName
	}
	hooks := make([]RenameFunc, len(s.renameHooks))
	copy(hooks, s.renameHooks)
	s.changed()
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(scope, oldName, newName)
	}
	return nil
}

// Delete removes a palette from the scope. Deleting the only palette fails
// with ErrLastPalette. If the deleted palette was active, the palette at the
// next-lowest ordinal becomes active.
func (s *Store) Delete(scope Scope, name string) error {
	s.mu.Lock()

	e, ok := s.scopes[scope.Key()]
	if !ok || e.index(name) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in %s", ErrNotFound, name, scope)
	}
	if len(e.names) == 1 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in %s", ErrLastPalette, name, scope)
	}

	i := e.index(name)
	e.names = append(e.names[:i], e.names[i+1:]...)
	if e.active == name {
		next := i - 1
		if next < 0 {
			next = 0
		}
		e.active = e.names[next]
	}
	hooks := make([]DeleteFunc, len(s.deleteHooks))
	copy(hooks, s.deleteHooks)
	s.changed()
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(scope, name)
	}
	return nil
}

// Move swaps the palette with its neighbor in the given direction
// (-1 toward the front, +1 toward the back). Moving past either boundary is
// a no-op, not an error.
func (s *Store) Move(scope Scope, name string, direction int) error {
	if direction != -1 && direction != 1 {
		return fmt.Errorf("%w: direction %d", ErrInvalidScope, direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.scopes[scope.Key()]
	if !ok || e.index(name) < 0 {
		return fmt.Errorf("%w: %q in %s", ErrNotFound, name, scope)
	}

	i := e.index(name)
	j := i + direction
	if j < 0 || j >= len(e.names) {
		return nil
	}
	e.names[i], e.names[j] = e.names[j], e.names[i]
	s.changed()
	return nil
}

// Copy duplicates a palette (and, through the copy hooks, its bindings) into
// the destination scope. newName may be empty to keep the source name.
// Copying within one scope requires a distinct new name.
func (s *Store) Copy(srcScope Scope, name string, dstScope Scope, newName string) error {
	if newName == "" {
		newName = name
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if !dstScope.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidScope, dstScope)
	}

	s.mu.Lock()

	src, ok := s.scopes[srcScope.Key()]
	if !ok || src.index(name) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in %s", ErrNotFound, name, srcScope)
	}

	dst := s.ownLocked(dstScope)
	if dst.index(newName) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q in %s", ErrDuplicateName, newName, dstScope)
	}
	dst.names = append(dst.names, newName)
	if dst.active == "" {
		dst.active = newName
	}
	hooks := make([]CopyFunc, len(s.copyHooks))
	copy(hooks, s.copyHooks)
	s.changed()
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(srcScope, name, dstScope, newName)
	}
	return nil
}

// SetActive marks the named palette active for the scope. The active
// palette is a property of the scope key, so all bars sharing the key (the
// six hotbars) see the change uniformly.
func (s *Store) SetActive(scope Scope, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.scopes[scope.Key()]
	if !ok || e.index(name) < 0 {
		return fmt.Errorf("%w: %q in %s", ErrNotFound, name, scope)
	}
	e.active = name
	s.changed()
	return nil
}

// Active returns the active palette name visible from the scope, following
// the same fallback rule as List. Returns "" when the scope has never been
// populated.
func (s *Store) Active(scope Scope) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, _ := s.resolveLocked(scope)
	if e == nil {
		return ""
	}
	return e.active
}

// ScopeState is the exported state of one scope, used by persistence.
type ScopeState struct {
	Key    string   `json:"key"`
	Names  []string `json:"names"`
	Active string   `json:"active"`
}

// Snapshot exports the full store state for persistence.
func (s *Store) Snapshot() []ScopeState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScopeState, 0, len(s.scopes))
	for key, e := range s.scopes {
		if len(e.names) == 0 {
			continue
		}
		names := make([]string, len(e.names))
		copy(names, e.names)
		out = append(out, ScopeState{Key: key, Names: names, Active: e.active})
	}
	return out
}

// Restore replaces the store contents with a previously captured snapshot.
// Entries with no palettes or an active name outside the list are repaired
// rather than rejected: the first palette becomes active.
func (s *Store) Restore(states []ScopeState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopes = make(map[string]*entry, len(states))
	for _, st := range states {
		if len(st.Names) == 0 {
			continue
		}
		e := &entry{names: append([]string(nil), st.Names...), active: st.Active}
		if e.index(e.active) < 0 {
			e.active = e.names[0]
		}
		s.scopes[st.Key] = e
	}
}
