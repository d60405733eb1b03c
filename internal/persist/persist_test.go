package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tirem/crossbar/internal/bar/keybind"
	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "snapshot.json")

	snap := NewSnapshot()
	snap.Palettes = []palette.ScopeState{
		{Key: "crossbar/j3/s5", Names: []string{"Base", "PvE"}, Active: "PvE"},
	}
	snap.Slots = slot.RegistryState{
		Tables: []slot.TableState{{
			Key: "crossbar/Base/j3",
			Entries: []slot.EntryState{
				{Index: 12, Binding: &slot.Binding{Kind: slot.KindAbility, ID: 42, Target: slot.TargetEnemy}},
				{Index: 5, Cleared: true},
			},
		}},
	}
	snap.Keybinds = keybind.ManagerState{
		Bindings: []keybind.BindingState{
			{Ref: keybind.SlotRef{Bar: "hotbar1", Slot: 5}, Chord: keybind.Chord{Code: keybind.CodeF1, Ctrl: true}},
		},
	}

	if err := Save(snap, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() returned nil snapshot")
	}
	if loaded.Version != currentVersion {
		t.Errorf("Version = %d, want %d", loaded.Version, currentVersion)
	}
	if loaded.Profile != snap.Profile {
		t.Errorf("Profile = %q, want %q", loaded.Profile, snap.Profile)
	}
	if len(loaded.Palettes) != 1 || loaded.Palettes[0].Active != "PvE" {
		t.Errorf("Palettes = %+v", loaded.Palettes)
	}
	if len(loaded.Slots.Tables) != 1 || len(loaded.Slots.Tables[0].Entries) != 2 {
		t.Fatalf("Slots = %+v", loaded.Slots)
	}
	if len(loaded.Keybinds.Bindings) != 1 || !loaded.Keybinds.Bindings[0].Chord.Ctrl {
		t.Errorf("Keybinds = %+v", loaded.Keybinds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	snap, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap != nil {
		t.Errorf("Load() = %+v, want nil for missing file", snap)
	}
}

func TestLoadFutureVersionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Load() error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	if err := Save(NewSnapshot(), path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after Save")
	}
}

func TestSaveAssignsProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	snap := &Snapshot{}
	if err := Save(snap, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if snap.Profile == "" {
		t.Error("Save left Profile empty")
	}
}
