package engine

import (
	"fmt"

	"github.com/tirem/crossbar/internal/bar/slot"
	"github.com/tirem/crossbar/internal/input/combo"
)

// macroHost bridges running macro scripts back into the dispatcher.
type macroHost struct {
	e *Engine
}

// UseAction dispatches a scripted action under the current combo mode.
func (h macroHost) UseAction(kind string, id int, target string) error {
	k := slot.KindFromName(kind)
	if k == slot.KindNone {
		return fmt.Errorf("unknown action kind %q", kind)
	}
	t := slot.Target(target)
	if !t.Valid() {
		return fmt.Errorf("invalid target %q", target)
	}
	b := slot.Binding{Kind: k, ID: id, Target: t}
	if err := b.Validate(); err != nil {
		return err
	}
	var mode combo.Mode
	if h.e.resolver != nil {
		mode = h.e.resolver.Current()
	}
	return h.e.dispatcher.Dispatch(b, mode)
}

// Echo routes script output to the log.
func (h macroHost) Echo(msg string) {
	h.e.log.Info("macro: %s", msg)
}
