package persist

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion indicates a snapshot written by a newer build.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Error wraps a persistence failure with its operation and file path.
// Persistence failures are reported, never fatal: the in-memory state
// stays authoritative and the next flush retries.
type Error struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
