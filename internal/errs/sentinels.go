// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested pet does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller does not own the pet.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidAction indicates the action preconditions are unmet (dead pet, low energy, wrong sleep state).
	ErrInvalidAction = errors.New("invalid action")

	// ErrStorage indicates a transient backing store failure; callers may retry with backoff.
	ErrStorage = errors.New("storage unavailable")

	// ErrValidation indicates malformed input (empty ids, bad names, unknown actions on the wire).
	ErrValidation = errors.New("validation")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., pet id taken).
	ErrAlreadyExists = errors.New("already exists")
)
