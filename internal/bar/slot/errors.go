package slot

import "errors"

// Errors returned by registry operations.
var (
	// ErrInvalidSlot indicates a slot index outside the bar's capacity.
	ErrInvalidSlot = errors.New("invalid slot index")

	// ErrInvalidBinding indicates a binding with missing or malformed
	// variant fields.
	ErrInvalidBinding = errors.New("invalid binding")

	// ErrUnknownBar indicates a bar the registry has no capacity for.
	ErrUnknownBar = errors.New("unknown bar")
)
