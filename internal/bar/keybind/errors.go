package keybind

import "errors"

// Errors returned by keybind operations.
var (
	// ErrNoPendingConflict indicates BindAnyway or CancelConflict was
	// called with no paused capture.
	ErrNoPendingConflict = errors.New("no pending keybind conflict")
)
