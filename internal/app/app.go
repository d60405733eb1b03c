package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tirem/crossbar/internal/bar/engine"
	"github.com/tirem/crossbar/internal/bar/keybind"
	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
	"github.com/tirem/crossbar/internal/config"
	"github.com/tirem/crossbar/internal/input/adapter"
	"github.com/tirem/crossbar/internal/persist"
)

// DefaultTickRate is the frame interval of the input loop.
const DefaultTickRate = 16 * time.Millisecond

// Options configures an App.
type Options struct {
	// ConfigPath locates the TOML settings file. Empty uses defaults.
	ConfigPath string

	// Adapter overrides the input source. Nil builds a mapped adapter
	// from the configured layout scheme.
	Adapter adapter.Adapter

	// Dispatcher receives activated actions. Required.
	Dispatcher engine.Dispatcher

	// Logger overrides the default stderr logger.
	Logger *Logger

	// WatchConfig enables live settings reload.
	WatchConfig bool
}

// App owns the wired component graph and the tick loop.
type App struct {
	cfg config.Settings
	log *Logger

	palettes *palette.Store
	slots    *slot.Registry
	keys     *keybind.Manager
	engine   *engine.Engine
	flusher  *persist.Flusher
	watcher  *config.Watcher

	profile string

	mu         sync.Mutex
	pendingCfg *config.Settings
}

// New loads configuration, restores persisted state, and wires the engine.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = NewLogger(DefaultLoggerConfig())
	}
	log.SetLevel(ParseLogLevel(cfg.Log.Level))

	in := opts.Adapter
	if in == nil {
		scheme, err := loadScheme(cfg.Paths.Layout, log)
		if err != nil {
			return nil, err
		}
		in = adapter.NewMappedAdapter(scheme)
	}

	palettes := palette.NewStore()
	slots := slot.NewRegistry(cfg.Hotbars.Capacity)
	keys := keybind.NewManager()

	// Palette lifecycle operations carry the slot tables with them.
	palettes.OnRename(slots.RenamePalette)
	palettes.OnCopy(slots.CopyPalette)
	palettes.OnDelete(slots.DeletePalette)

	eng, err := engine.New(engine.Options{
		Settings:   cfg,
		Adapter:    in,
		Palettes:   palettes,
		Slots:      slots,
		Keybinds:   keys,
		Dispatcher: opts.Dispatcher,
		Log:        log.WithComponent("engine"),
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		palettes: palettes,
		slots:    slots,
		keys:     keys,
		engine:   eng,
	}

	// Restore before applying config so a storage-mode change in the
	// settings wipes restored tables the same way a runtime toggle would.
	if err := a.restore(); err != nil {
		return nil, err
	}
	if err := eng.ApplyConfig(cfg); err != nil {
		return nil, err
	}

	a.flusher = persist.NewFlusher(a.save, config.FlushDebounce, func(err error) {
		log.Error("snapshot flush failed: %v", err)
	})
	markDirty := func() { a.flusher.MarkDirty(time.Now()) }
	palettes.OnChange(markDirty)
	slots.OnChange(markDirty)
	keys.OnChange(markDirty)

	if opts.WatchConfig && opts.ConfigPath != "" {
		a.watcher = config.NewWatcher(opts.ConfigPath, a.queueConfig,
			config.WithErrorHandler(func(err error) {
				log.Warn("settings reload rejected: %v", err)
			}))
	}
	return a, nil
}

// loadScheme loads the configured controller layout, falling back to the
// built-in default when no path is set.
func loadScheme(path string, log *Logger) (*adapter.Scheme, error) {
	if path == "" {
		return adapter.DefaultScheme(), nil
	}
	scheme, err := adapter.LoadScheme(path)
	if err != nil {
		return nil, fmt.Errorf("loading controller layout: %w", err)
	}
	log.Info("controller layout: %s", scheme.Name)
	return scheme, nil
}

// restore loads the persisted snapshot into the stores.
func (a *App) restore() error {
	snap, err := persist.Load(a.cfg.Paths.Snapshot)
	if err != nil {
		return err
	}
	if snap == nil {
		a.profile = persist.NewSnapshot().Profile
		a.log.Info("no snapshot found, starting fresh profile %s", a.profile)
		return nil
	}

	a.profile = snap.Profile
	a.palettes.Restore(snap.Palettes)
	a.slots.Restore(snap.Slots)
	a.keys.Restore(snap.Keybinds)
	a.log.Info("restored snapshot for profile %s", a.profile)
	return nil
}

// save captures the current state and writes it atomically.
func (a *App) save() error {
	snap := &persist.Snapshot{
		Profile:  a.profile,
		Palettes: a.palettes.Snapshot(),
		Slots:    a.slots.Snapshot(),
		Keybinds: a.keys.Snapshot(),
	}
	return persist.Save(snap, a.cfg.Paths.Snapshot)
}

// queueConfig stashes reloaded settings for the tick loop. The engine is
// single-threaded; config changes apply only at a frame boundary.
func (a *App) queueConfig(cfg config.Settings) {
	a.mu.Lock()
	a.pendingCfg = &cfg
	a.mu.Unlock()
}

// takePendingConfig returns and clears any queued settings.
func (a *App) takePendingConfig() *config.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg := a.pendingCfg
	a.pendingCfg = nil
	return cfg
}

// Tick advances one frame: applies queued settings, processes input, and
// drives the debounced flusher.
func (a *App) Tick(now time.Time) engine.Frame {
	if cfg := a.takePendingConfig(); cfg != nil {
		if err := a.engine.ApplyConfig(*cfg); err != nil {
			a.log.Error("applying reloaded settings: %v", err)
		} else {
			a.cfg = *cfg
			a.log.SetLevel(ParseLogLevel(cfg.Log.Level))
			a.log.Info("settings reloaded")
			a.flusher.MarkDirty(now)
		}
	}

	frame := a.engine.ProcessFrame(now)
	a.flusher.Tick(now)
	return frame
}

// StartWatcher begins live settings reload when configured. Callers that
// drive Tick themselves (the simulator) use this instead of Run.
func (a *App) StartWatcher(ctx context.Context) error {
	if a.watcher == nil {
		return nil
	}
	return a.watcher.Start(ctx)
}

// StopWatcher halts live settings reload.
func (a *App) StopWatcher() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
}

// Run drives the tick loop until the context is cancelled, then flushes.
func (a *App) Run(ctx context.Context) error {
	if err := a.StartWatcher(ctx); err != nil {
		return err
	}
	defer a.StopWatcher()

	ticker := time.NewTicker(DefaultTickRate)
	defer ticker.Stop()

	a.log.Info("input loop started (profile %s)", a.profile)
	for {
		select {
		case <-ctx.Done():
			a.flusher.Flush()
			a.log.Info("input loop stopped")
			return ctx.Err()
		case now := <-ticker.C:
			a.Tick(now)
		}
	}
}

// Flush forces an immediate snapshot write if state is dirty.
func (a *App) Flush() {
	a.flusher.Flush()
}

// Engine exposes the wired engine for UI layers.
func (a *App) Engine() *engine.Engine { return a.engine }

// Palettes exposes the palette store for management UI.
func (a *App) Palettes() *palette.Store { return a.palettes }

// Slots exposes the slot registry for management UI.
func (a *App) Slots() *slot.Registry { return a.slots }

// Keybinds exposes the keybind manager for capture UI.
func (a *App) Keybinds() *keybind.Manager { return a.keys }

// Settings returns the active configuration.
func (a *App) Settings() config.Settings { return a.cfg }

// Profile returns the stable profile identity.
func (a *App) Profile() string { return a.profile }

// Logger returns the application logger.
func (a *App) Logger() *Logger { return a.log }
