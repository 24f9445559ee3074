package quest

import "errors"

// Sentinel errors for common domain error conditions.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a save collides with a concurrent change.
	ErrConflict = errors.New("conflict")

	// ErrSchemaViolation is returned when a tagged variant does not match
	// the single-key wire shape.
	ErrSchemaViolation = errors.New("schema violation")
)
