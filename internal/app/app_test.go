package app

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
	"github.com/tirem/crossbar/internal/input/combo"
)

type nullDispatcher struct{}

func (nullDispatcher) Dispatch(slot.Binding, combo.Mode) error { return nil }

func quietLogger() *Logger {
	log := NewLogger(DefaultLoggerConfig())
	log.SetOutput(io.Discard)
	log.SetLevel(LogLevelError)
	return log
}

// newTestApp builds an app whose snapshot lands in a temp dir.
func newTestApp(t *testing.T) (*App, string) {
	t.Helper()

	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.json")
	configPath := filepath.Join(dir, "crossbar.toml")
	content := "[paths]\nsnapshot = '" + snapshotPath + "'\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := New(Options{
		ConfigPath: configPath,
		Dispatcher: nullDispatcher{},
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, configPath
}

func TestNewStartsFreshProfile(t *testing.T) {
	a, _ := newTestApp(t)
	if a.Profile() == "" {
		t.Error("Profile() is empty")
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	a, configPath := newTestApp(t)

	if err := a.Engine().SetContext(3, 5); err != nil {
		t.Fatal(err)
	}
	b := slot.Binding{Kind: slot.KindAbility, ID: 42, Target: slot.TargetEnemy}
	if err := a.Engine().SetCrossbarSlot(combo.Primary, 1, b); err != nil {
		t.Fatal(err)
	}
	if err := a.Engine().SetHotbarSlot(2, 4, slot.Binding{Kind: slot.KindItem, ID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := a.Engine().ClearHotbarSlot(2, 5); err != nil {
		t.Fatal(err)
	}
	a.Flush()

	// Second app over the same config path restores everything.
	b2, err := New(Options{
		ConfigPath: configPath,
		Dispatcher: nullDispatcher{},
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("restart New() error = %v", err)
	}
	if b2.Profile() != a.Profile() {
		t.Errorf("profile changed across restart: %q != %q", b2.Profile(), a.Profile())
	}
	if err := b2.Engine().SetContext(3, 5); err != nil {
		t.Fatal(err)
	}

	sl, err := b2.Engine().ResolveCrossbarAt(combo.Primary, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !sl.IsBound() || sl.Binding.ID != 42 {
		t.Errorf("crossbar slot after restart = %+v", sl)
	}

	sl, err = b2.Engine().ResolveHotbar(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if sl.State != slot.StateCleared {
		t.Errorf("tombstone lost across restart: %+v", sl)
	}
}

func TestDirtyStateFlushesAfterDebounce(t *testing.T) {
	a, _ := newTestApp(t)

	if err := a.Engine().SetContext(3, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Engine().SetHotbarSlot(1, 1, slot.Binding{Kind: slot.KindItem, ID: 1}); err != nil {
		t.Fatal(err)
	}

	// Before the debounce window nothing is written yet.
	if _, err := os.Stat(a.Settings().Paths.Snapshot); !os.IsNotExist(err) {
		t.Fatal("snapshot written before debounce window")
	}

	a.Tick(time.Now().Add(time.Hour))
	if _, err := os.Stat(a.Settings().Paths.Snapshot); err != nil {
		t.Errorf("snapshot not written after debounce: %v", err)
	}
}

func TestPaletteRenameCarriesSlots(t *testing.T) {
	a, _ := newTestApp(t)
	eng := a.Engine()
	if err := eng.SetContext(3, 5); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetHotbarSlot(1, 2, slot.Binding{Kind: slot.KindSpell, ID: 7}); err != nil {
		t.Fatal(err)
	}

	scope := eng.ScopeFor(palette.Hotbar(1)).Shared()
	if err := a.Palettes().Rename(scope, palette.DefaultName, "Raid"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	sl, err := eng.ResolveHotbar(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !sl.IsBound() || sl.Binding.ID != 7 {
		t.Errorf("slot lost after palette rename: %+v", sl)
	}
	if got := eng.ActivePalette(palette.Hotbar(1)); got != "Raid" {
		t.Errorf("active palette = %q, want Raid", got)
	}
}
