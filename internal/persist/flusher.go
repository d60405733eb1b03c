package persist

import (
	"sync"
	"time"
)

// SaveFunc captures the current state and writes it to disk.
type SaveFunc func() error

// Flusher debounces snapshot writes. Mutations call MarkDirty; the engine
// calls Tick once per frame. The save runs only after the debounce window
// has passed since the first unflushed mutation, so a drag-and-drop burst
// becomes a single write.
type Flusher struct {
	mu sync.Mutex

	save     SaveFunc
	debounce time.Duration
	onError  func(error)

	dirty   bool
	dirtyAt time.Time
}

// NewFlusher creates a flusher. onError receives failed saves and may be
// nil; failures leave the dirty flag set so the next tick retries.
func NewFlusher(save SaveFunc, debounce time.Duration, onError func(error)) *Flusher {
	return &Flusher{
		save:     save,
		debounce: debounce,
		onError:  onError,
	}
}

// MarkDirty records a mutation. The debounce clock starts at the first
// mutation of a burst, not the last, so a steady stream of changes cannot
// starve the flush forever.
func (f *Flusher) MarkDirty(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		f.dirty = true
		f.dirtyAt = now
	}
}

// Dirty reports whether unflushed mutations exist.
func (f *Flusher) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Tick flushes if the debounce window has elapsed. Returns true if a save
// was attempted.
func (f *Flusher) Tick(now time.Time) bool {
	f.mu.Lock()
	if !f.dirty || now.Sub(f.dirtyAt) < f.debounce {
		f.mu.Unlock()
		return false
	}
	f.mu.Unlock()

	f.Flush()
	return true
}

// Flush saves immediately if dirty, regardless of the debounce window.
// Used on shutdown.
func (f *Flusher) Flush() {
	f.mu.Lock()
	if !f.dirty {
		f.mu.Unlock()
		return
	}
	f.dirty = false
	f.mu.Unlock()

	if err := f.save(); err != nil {
		f.mu.Lock()
		if !f.dirty {
			f.dirty = true
			f.dirtyAt = time.Now()
		}
		f.mu.Unlock()
		if f.onError != nil {
			f.onError(err)
		}
	}
}
