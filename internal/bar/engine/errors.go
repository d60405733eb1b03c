package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrMissingComponent indicates New was called without a required
	// component.
	ErrMissingComponent = errors.New("missing engine component")

	// ErrInvalidMode indicates a combo mode outside the addressable range.
	ErrInvalidMode = errors.New("invalid combo mode")

	// ErrInvalidPosition indicates a crossbar position outside 1..8.
	ErrInvalidPosition = errors.New("invalid crossbar position")
)
