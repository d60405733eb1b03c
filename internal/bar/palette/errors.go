package palette

import "errors"

// Errors returned by palette store operations. All are rejected before any
// mutation takes place; none leave the store in a partial state.
var (
	// ErrInvalidName indicates an empty or over-length palette name.
	ErrInvalidName = errors.New("invalid palette name")

	// ErrDuplicateName indicates the name already exists in the scope.
	ErrDuplicateName = errors.New("palette name already exists")

	// ErrNotFound indicates the palette does not exist in the scope.
	ErrNotFound = errors.New("palette not found")

	// ErrLastPalette indicates an attempt to delete the only palette in a
	// scope. A scope must never drop to zero palettes once it has any.
	ErrLastPalette = errors.New("cannot delete the last palette in a scope")

	// ErrInvalidScope indicates a malformed scope key.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrInvalidJob indicates a job identifier that cannot be normalized.
	ErrInvalidJob = errors.New("invalid job id")
)

// MaxNameLength is the longest permitted palette name.
const MaxNameLength = 32

// ValidateName checks palette name rules: non-empty and at most
// MaxNameLength characters. Comparison elsewhere is case-sensitive.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(name) > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}
