// Package macro executes user macro scripts bound to slots. Scripts run in
// a sandboxed Lua state with a small host API: no filesystem, network, or
// process access, and a per-run execution timeout.
package macro

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single macro run. Long-running scripts are
// aborted; macros are glue, not programs.
const DefaultTimeout = 2 * time.Second

// ErrScriptFailed wraps any Lua-side failure.
var ErrScriptFailed = errors.New("macro script failed")

// Host is the API surface a running macro can reach. The engine implements
// it; tests use a recording fake.
type Host interface {
	// UseAction dispatches an action by kind name, id, and target token.
	UseAction(kind string, id int, target string) error

	// Echo emits a message to the player log.
	Echo(msg string)
}

// Runner executes macro scripts against a Host.
//
// Each run gets a fresh Lua state: macros share no globals across runs and
// a crashed script cannot poison the next one. gopher-lua states are not
// goroutine-safe, but per-run states make that moot.
type Runner struct {
	host    Host
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout overrides the per-run execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRunner creates a macro runner dispatching into the given host.
func NewRunner(host Host, opts ...Option) *Runner {
	r := &Runner{host: host, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check compiles the script without running it. Used when a macro binding
// is set, so broken scripts surface at bind time instead of on activation.
func (r *Runner) Check(script string) error {
	L := lua.NewState()
	defer L.Close()

	if _, err := L.LoadString(script); err != nil {
		return fmt.Errorf("%w: %v", ErrScriptFailed, err)
	}
	return nil
}

// Run executes the script. The context bounds execution together with the
// configured timeout; a script stuck in a loop is aborted.
func (r *Runner) Run(ctx context.Context, script string) error {
	L := lua.NewState()
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	L.SetContext(ctx)

	r.sandbox(L)
	r.installAPI(L)

	if err := L.DoString(script); err != nil {
		return fmt.Errorf("%w: %v", ErrScriptFailed, err)
	}
	return nil
}

// sandbox strips everything a macro has no business touching.
func (r *Runner) sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"os", "io", "require", "collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}

	// Clear module search paths so nothing can be pulled off disk even if
	// a loader survives.
	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}
}

// installAPI registers the host bridge functions.
func (r *Runner) installAPI(L *lua.LState) {
	L.SetGlobal("use", L.NewFunction(func(L *lua.LState) int {
		kind := L.CheckString(1)
		id := L.CheckInt(2)
		target := L.OptString(3, "")
		if err := r.host.UseAction(kind, id, target); err != nil {
			L.RaiseError("use(%s, %d): %v", kind, id, err)
		}
		return 0
	}))

	L.SetGlobal("echo", L.NewFunction(func(L *lua.LState) int {
		r.host.Echo(L.CheckString(1))
		return 0
	}))
}
