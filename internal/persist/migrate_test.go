package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tirem/crossbar/internal/bar/slot"
)

const legacySnapshot = `{
  "version": 1,
  "profile": "11111111-2222-3333-4444-555555555555",
  "palettes": {
    "crossbar/j3/s5": {"sets": ["Base", "PvE"], "current": "PvE"}
  },
  "bars": {
    "crossbar": {
      "job_specific": true,
      "jobs": {
        "3":  {"12": {"type": "ability", "id": 42, "target": "t"}},
        "j3": {"5":  {"cleared": true}},
        "07": {"1":  {"type": "macro", "script": "/wave", "label": "Wave"}},
        "bogus": {"1": {"type": "spell", "id": 9}}
      }
    },
    "hotbar1": {
      "capacity": 10,
      "slots": {
        "1": {"type": "item", "id": 4096},
        "2": {"type": "warp-drive", "id": 1}
      }
    }
  },
  "keybinds": {
    "hotbar1:5":  {"key": 59, "ctrl": true},
    "hotbar2:3":  {"key": 59, "ctrl": true, "cleared": true},
    "malformed":  {"key": 1}
  }
}`

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func migrate(t *testing.T) *Snapshot {
	t.Helper()
	data, err := MigrateV1([]byte(legacySnapshot))
	if err != nil {
		t.Fatalf("MigrateV1() error = %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("migrated output does not parse: %v", err)
	}
	return &snap
}

func findTable(snap *Snapshot, key string) *slot.TableState {
	for i := range snap.Slots.Tables {
		if snap.Slots.Tables[i].Key == key {
			return &snap.Slots.Tables[i]
		}
	}
	return nil
}

func TestMigrateV1Basics(t *testing.T) {
	snap := migrate(t)

	if snap.Version != currentVersion {
		t.Errorf("Version = %d, want %d", snap.Version, currentVersion)
	}
	if snap.Profile != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("Profile = %q, want carried over", snap.Profile)
	}
	if len(snap.Palettes) != 1 || snap.Palettes[0].Key != "crossbar/j3/s5" || snap.Palettes[0].Active != "PvE" {
		t.Errorf("Palettes = %+v", snap.Palettes)
	}
}

func TestMigrateV1UnifiesJobKeys(t *testing.T) {
	snap := migrate(t)

	// "3" and "j3" name the same job; both land in one canonical table.
	table := findTable(snap, "crossbar/Base/j3")
	if table == nil {
		t.Fatalf("no crossbar/Base/j3 table; tables = %+v", snap.Slots.Tables)
	}
	var bound, cleared bool
	for _, e := range table.Entries {
		switch e.Index {
		case 12:
			bound = e.Binding != nil && e.Binding.Kind == slot.KindAbility && e.Binding.ID == 42
		case 5:
			cleared = e.Cleared
		}
	}
	if !bound || !cleared {
		t.Errorf("j3 entries = %+v, want binding at 12 and tombstone at 5", table.Entries)
	}

	if findTable(snap, "crossbar/Base/j7") == nil {
		t.Error("padded job key 07 was not normalized to j7")
	}
	for _, ts := range snap.Slots.Tables {
		if ts.Key == "crossbar/Base/jbogus" || ts.Key == "crossbar/Base/j0" {
			t.Errorf("unparseable job key produced table %q", ts.Key)
		}
	}
}

func TestMigrateV1GlobalBarAndBadRows(t *testing.T) {
	snap := migrate(t)

	table := findTable(snap, "hotbar1/Base")
	if table == nil {
		t.Fatalf("no hotbar1/Base table; tables = %+v", snap.Slots.Tables)
	}
	if len(table.Entries) != 1 {
		t.Fatalf("entries = %+v, want the unknown-type row dropped", table.Entries)
	}
	if e := table.Entries[0]; e.Index != 1 || e.Binding == nil || e.Binding.Kind != slot.KindItem {
		t.Errorf("entry = %+v", e)
	}

	var foundBar bool
	for _, b := range snap.Slots.Bars {
		if b.Bar == "hotbar1" {
			foundBar = true
			if b.Capacity != 10 || b.JobSpecific {
				t.Errorf("hotbar1 bar state = %+v", b)
			}
		}
	}
	if !foundBar {
		t.Error("hotbar1 bar config missing")
	}
}

func TestMigrateV1Keybinds(t *testing.T) {
	snap := migrate(t)

	if len(snap.Keybinds.Bindings) != 2 {
		t.Fatalf("bindings = %+v, want 2 (malformed ref dropped)", snap.Keybinds.Bindings)
	}
	for _, b := range snap.Keybinds.Bindings {
		switch b.Ref.Bar {
		case "hotbar1":
			if b.Ref.Slot != 5 || b.Chord.Code != 59 || !b.Chord.Ctrl || b.Cleared {
				t.Errorf("hotbar1 binding = %+v", b)
			}
		case "hotbar2":
			if !b.Cleared {
				t.Errorf("hotbar2 binding = %+v, want tombstone", b)
			}
		default:
			t.Errorf("unexpected binding %+v", b)
		}
	}
	if len(snap.Keybinds.Allowed) != 0 {
		t.Errorf("Allowed = %+v, want empty", snap.Keybinds.Allowed)
	}
}

func TestMigrateV1RejectsWrongVersion(t *testing.T) {
	if _, err := MigrateV1([]byte(`{"version": 2}`)); err == nil {
		t.Error("MigrateV1 accepted a version 2 snapshot")
	}
}

func TestLoadMigratesV1(t *testing.T) {
	path := writeTempFile(t, legacySnapshot)
	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Version != currentVersion {
		t.Errorf("Version = %d, want migrated to %d", snap.Version, currentVersion)
	}
	if findTable(snap, "crossbar/Base/j3") == nil {
		t.Error("migrated tables missing after Load")
	}
}
