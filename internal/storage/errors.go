package storage

import "errors"

// Storage errors for the occurrence store.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when the backing store stayed transiently
	// unavailable through the whole write retry budget.
	ErrUnavailable = errors.New("storage unavailable")
)
