// Package persist writes and restores the durable bar state: palette sets,
// slot tables, and keybinds, under a stable profile identity. Writes are
// atomic (temp file + rename) and driven by a debounced flusher so burst
// mutations collapse into one disk write.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/tirem/crossbar/internal/bar/keybind"
	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
)

// currentVersion is the snapshot format version. Version 1 is the legacy
// format handled by MigrateV1.
const currentVersion = 2

// Snapshot is the root structure of the persisted state file.
type Snapshot struct {
	Version  int                  `json:"version"`
	SavedAt  time.Time            `json:"saved_at"`
	Profile  string               `json:"profile"`
	Palettes []palette.ScopeState `json:"palettes"`
	Slots    slot.RegistryState   `json:"slots"`
	Keybinds keybind.ManagerState `json:"keybinds"`
}

// NewSnapshot builds a snapshot with a fresh profile identity.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version: currentVersion,
		Profile: uuid.NewString(),
	}
}

// Save writes the snapshot atomically using a temporary file and rename.
// A snapshot without a profile identity is assigned one.
func Save(snap *Snapshot, path string) error {
	snap.Version = currentVersion
	snap.SavedAt = time.Now()
	if snap.Profile == "" {
		snap.Profile = uuid.NewString()
	}

	jsonData, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &Error{Op: "save", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Op: "save", Path: path, Err: err}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return &Error{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return &Error{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Load reads a snapshot from disk. A missing file returns (nil, nil):
// first run is not an error. Legacy version 1 files are migrated in
// memory; the migrated form reaches disk on the next flush.
func Load(path string) (*Snapshot, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Op: "load", Path: path, Err: err}
	}

	switch v := gjson.GetBytes(jsonData, "version").Int(); {
	case v == 1:
		jsonData, err = MigrateV1(jsonData)
		if err != nil {
			return nil, &Error{Op: "migrate", Path: path, Err: err}
		}
	case v > currentVersion:
		return nil, &Error{Op: "load", Path: path,
			Err: fmt.Errorf("%w: %d (supported up to %d)", ErrUnsupportedVersion, v, currentVersion)}
	}

	var snap Snapshot
	if err := json.Unmarshal(jsonData, &snap); err != nil {
		return nil, &Error{Op: "load", Path: path, Err: err}
	}
	if snap.Profile == "" {
		snap.Profile = uuid.NewString()
	}
	return &snap, nil
}
