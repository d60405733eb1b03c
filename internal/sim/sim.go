// Package sim is an interactive terminal simulator for the input engine.
// Keyboard keys stand in for controller controls: the trigger keys toggle
// held state, digits fire crossbar positions, and the screen shows the
// resolved mode, palette, and slot bank in real time.
package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/tirem/crossbar/internal/app"
	"github.com/tirem/crossbar/internal/bar/engine"
	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
	"github.com/tirem/crossbar/internal/input/adapter"
	"github.com/tirem/crossbar/internal/input/combo"
)

// Recorder is a dispatcher that keeps the most recent activations for
// display.
type Recorder struct {
	mu      sync.Mutex
	entries []string
	limit   int
}

// NewRecorder creates a recorder keeping the last limit activations.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 8
	}
	return &Recorder{limit: limit}
}

// Dispatch implements engine.Dispatcher.
func (r *Recorder) Dispatch(b slot.Binding, mode combo.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := fmt.Sprintf("%s %s #%d", mode, b.Kind, b.ID)
	if b.Target != slot.TargetNone {
		entry += " @" + string(b.Target)
	}
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
	return nil
}

// Recent returns the recorded activations, newest last.
func (r *Recorder) Recent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// Device codes of the default layout scheme.
const (
	codeTriggerPrimary   = 6
	codeTriggerSecondary = 7
)

// positionCodes maps crossbar positions 1..8 to default-scheme codes.
var positionCodes = [8]int{10, 11, 12, 13, 3, 2, 1, 0}

// keyEvent is a synthetic device event derived from a keyboard rune.
type keyEvent struct {
	code   int
	value  float64
	toggle bool // trigger toggles; buttons are tap (press then release)
}

// eventForRune translates simulator keys into device events. The bool
// reports whether the rune is mapped.
func eventForRune(r rune, primaryHeld, secondaryHeld bool) (keyEvent, bool) {
	switch r {
	case 'q':
		return keyEvent{code: codeTriggerPrimary, value: heldValue(!primaryHeld), toggle: true}, true
	case 'w':
		return keyEvent{code: codeTriggerSecondary, value: heldValue(!secondaryHeld), toggle: true}, true
	case '1', '2', '3', '4', '5', '6', '7', '8':
		return keyEvent{code: positionCodes[r-'1'], value: 1}, true
	default:
		return keyEvent{}, false
	}
}

func heldValue(held bool) float64 {
	if held {
		return 1
	}
	return 0
}

// Simulator drives an app with synthetic input and renders its state.
type Simulator struct {
	app      *app.App
	pad      *adapter.MappedAdapter
	recorder *Recorder
	screen   tcell.Screen

	primaryHeld   bool
	secondaryHeld bool

	// pendingRelease holds button codes to release on the next frame, so
	// a key tap becomes a press/release pair the engine can edge-detect.
	pendingRelease []int

	frame engine.Frame
}

// New creates a simulator over a wired app. The pad must be the adapter
// the app polls.
func New(a *app.App, pad *adapter.MappedAdapter, recorder *Recorder) (*Simulator, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	return &Simulator{app: a, pad: pad, recorder: recorder, screen: screen}, nil
}

// Run executes the simulator loop until Esc, Ctrl-C, or context cancel.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer s.screen.Fini()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go s.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(app.DefaultTickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.app.Flush()
			return ctx.Err()

		case ev := <-events:
			if done := s.handleEvent(ev); done {
				s.app.Flush()
				return nil
			}

		case now := <-ticker.C:
			for _, code := range s.pendingRelease {
				s.pad.Push(adapter.DeviceEvent{Code: code, Value: 0}, now)
			}
			s.pendingRelease = s.pendingRelease[:0]

			s.frame = s.app.Tick(now)
			s.draw()
		}
	}
}

// handleEvent processes one tcell event; true means quit.
func (s *Simulator) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRune:
			s.handleRune(ev.Rune())
		}
	}
	return false
}

func (s *Simulator) handleRune(r rune) {
	ke, ok := eventForRune(r, s.primaryHeld, s.secondaryHeld)
	if !ok {
		return
	}
	now := time.Now()
	s.pad.Push(adapter.DeviceEvent{Code: ke.code, Value: ke.value}, now)
	if ke.toggle {
		switch ke.code {
		case codeTriggerPrimary:
			s.primaryHeld = ke.value > 0
		case codeTriggerSecondary:
			s.secondaryHeld = ke.value > 0
		}
	} else {
		s.pendingRelease = append(s.pendingRelease, ke.code)
	}
}

var (
	styleDefault = tcell.StyleDefault
	styleHeader  = tcell.StyleDefault.Bold(true)
	styleActive  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// draw renders the full simulator state.
func (s *Simulator) draw() {
	s.screen.Clear()
	eng := s.app.Engine()

	s.drawText(0, 0, styleHeader, "crossbar simulator  (q/w: triggers, 1-8: fire, Esc: quit)")

	mode := s.frame.Mode
	line := fmt.Sprintf("job %s/s%d   mode: %s", eng.Job(), int(eng.SubJob()), mode)
	if s.frame.LookupMode != mode {
		line += fmt.Sprintf(" (bank: %s)", s.frame.LookupMode)
	}
	s.drawText(0, 2, styleDefault, line)

	activeName := eng.ActivePalette(palette.Crossbar())
	s.drawText(0, 3, styleDefault, "palette: "+activeName)

	s.drawBank(5)
	s.drawLog(7 + 2)

	s.screen.Show()
}

// drawBank renders the eight slots of the current bank.
func (s *Simulator) drawBank(row int) {
	eng := s.app.Engine()
	lookup := s.frame.LookupMode

	for pos := 1; pos <= slot.CrossbarPositions; pos++ {
		label := "--------"
		style := styleDim
		if lookup != combo.None {
			if sl, err := eng.ResolveCrossbarAt(lookup, pos); err == nil {
				switch {
				case sl.IsBound():
					label = slotLabel(sl.Binding)
					style = styleActive
				case sl.State == slot.StateCleared:
					label = "cleared "
				}
			}
		}
		s.drawText((pos-1)*11, row, style, fmt.Sprintf("[%d]%s", pos, label))
	}
}

// slotLabel compacts a binding for an 8-cell display box.
func slotLabel(b slot.Binding) string {
	if b.Label != "" {
		return fit(b.Label, 8)
	}
	return fit(fmt.Sprintf("%s%d", b.Kind, b.ID), 8)
}

func fit(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s + strings.Repeat(" ", n-len(r))
}

// drawLog renders recent activations.
func (s *Simulator) drawLog(row int) {
	s.drawText(0, row, styleHeader, "activations:")
	for i, entry := range s.recorder.Recent() {
		s.drawText(2, row+1+i, styleDefault, entry)
	}
}

func (s *Simulator) drawText(x, y int, style tcell.Style, text string) {
	for i, r := range text {
		s.screen.SetContent(x+i, y, r, nil, style)
	}
}
