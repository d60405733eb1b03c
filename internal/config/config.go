// Package config holds the typed settings tree passed into every component
// constructor. Components never read ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the full configuration tree.
type Settings struct {
	Log      LogSettings      `toml:"log"`
	Triggers TriggerSettings  `toml:"triggers"`
	Crossbar CrossbarSettings `toml:"crossbar"`
	Hotbars  HotbarSettings   `toml:"hotbars"`
	Paths    PathSettings     `toml:"paths"`
}

// LogSettings configures the application logger.
type LogSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// TriggerSettings tunes the trigger state tracker.
type TriggerSettings struct {
	// PressThreshold enters the pressed state (0..1).
	PressThreshold float64 `toml:"press_threshold"`

	// ReleaseThreshold leaves the pressed state; must be strictly below
	// PressThreshold.
	ReleaseThreshold float64 `toml:"release_threshold"`

	// MinHoldMS is the minimum press duration for a tap, in milliseconds.
	MinHoldMS int `toml:"min_hold_ms"`

	// DoubleTapWindowMS is the double-tap window, in milliseconds.
	DoubleTapWindowMS int `toml:"double_tap_window_ms"`

	// Digital disables the hysteresis band for digital-only pads.
	Digital bool `toml:"digital"`
}

// MinHold returns the minimum hold duration.
func (t TriggerSettings) MinHold() time.Duration {
	return time.Duration(t.MinHoldMS) * time.Millisecond
}

// DoubleTapWindow returns the double-tap window duration.
func (t TriggerSettings) DoubleTapWindow() time.Duration {
	return time.Duration(t.DoubleTapWindowMS) * time.Millisecond
}

// CrossbarSettings selects the optional combo modes and crossbar storage
// behavior.
type CrossbarSettings struct {
	// Expanded enables the trigger-sequence modes.
	Expanded bool `toml:"expanded"`

	// DoubleTap enables the double-tap modes.
	DoubleTap bool `toml:"double_tap"`

	// SharedExpanded collapses both sequence modes into one shared bank.
	SharedExpanded bool `toml:"shared_expanded"`

	// JobSpecific stores crossbar bindings per job.
	JobSpecific bool `toml:"job_specific"`

	// PetAware layers bindings by active pet identity.
	PetAware bool `toml:"pet_aware"`
}

// HotbarSettings configures the horizontal hotbars.
type HotbarSettings struct {
	// Capacity is the slot count per hotbar (1..12).
	Capacity int `toml:"capacity"`

	// JobSpecific stores hotbar bindings per job.
	JobSpecific bool `toml:"job_specific"`

	// Enabled flags each hotbar on or off; rendering honors these, the
	// engine only persists them.
	Enabled []bool `toml:"enabled"`
}

// PathSettings locates durable files.
type PathSettings struct {
	// Snapshot is the persisted bar state file.
	Snapshot string `toml:"snapshot"`

	// Layout is an optional controller layout scheme file.
	Layout string `toml:"layout"`
}

// FlushDebounce is how long the persistence flusher waits after the first
// unflushed mutation before writing.
const FlushDebounce = 2 * time.Second

// Default returns the stock settings.
func Default() Settings {
	return Settings{
		Log: LogSettings{Level: "info"},
		Triggers: TriggerSettings{
			PressThreshold:    0.30,
			ReleaseThreshold:  0.15,
			MinHoldMS:         50,
			DoubleTapWindowMS: 300,
		},
		Crossbar: CrossbarSettings{
			Expanded:  true,
			DoubleTap: true,
		},
		Hotbars: HotbarSettings{
			Capacity: 12,
			Enabled:  []bool{true, true, true, true, true, true},
		},
		Paths: PathSettings{
			Snapshot: defaultSnapshotPath(),
		},
	}
}

// defaultSnapshotPath returns the per-user snapshot location.
func defaultSnapshotPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "crossbar-snapshot.json"
	}
	return filepath.Join(dir, "crossbar", "snapshot.json")
}

// Load reads a TOML settings file over the defaults. A missing file is not
// an error: the defaults are returned unchanged.
func Load(path string) (Settings, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return cfg, nil
}
