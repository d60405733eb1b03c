package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler is called with the freshly loaded settings after the
// watched file changes and passes validation.
type ReloadHandler func(Settings)

// ReloadErrorHandler is called when a change could not be loaded or failed
// validation; the previous settings stay in effect.
type ReloadErrorHandler func(error)

// Watcher reloads a settings file when it changes on disk. Rapid change
// bursts (editors writing via temp files) are debounced into one reload.
type Watcher struct {
	mu sync.Mutex

	path     string
	debounce time.Duration

	onReload ReloadHandler
	onError  ReloadErrorHandler

	fw     *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration for rapid changes.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler sets the handler for failed reloads.
func WithErrorHandler(h ReloadErrorHandler) WatcherOption {
	return func(w *Watcher) {
		w.onError = h
	}
}

// NewWatcher creates a watcher for the given settings file.
func NewWatcher(path string, onReload ReloadHandler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     path,
		debounce: 250 * time.Millisecond,
		onReload: onReload,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The parent directory is watched rather than the
// file itself, so replace-by-rename saves are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fw = fw
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop halts watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.fw.Close()
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.reportError(fmt.Errorf("watching %s: %w", w.path, err))

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.reportError(err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.reportError(err)
		return
	}
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
