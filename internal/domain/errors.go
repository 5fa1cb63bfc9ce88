package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrUnauthorized = errors.New("domain: unauthorized")
	ErrForbidden    = errors.New("domain: forbidden")

	// ErrStorageUnavailable wraps connection and query failures of the store.
	ErrStorageUnavailable = errors.New("domain: storage unavailable")

	ErrSignatureMissing  = errors.New("domain: signature missing")
	ErrSignatureMismatch = errors.New("domain: signature mismatch")

	// ErrMalformedSnapshot is returned when a version snapshot cannot be
	// applied to its table, e.g. it names columns the table no longer has.
	ErrMalformedSnapshot = errors.New("domain: malformed snapshot")

	ErrUnsupportedRollback = errors.New("domain: rollback not supported for action")
	ErrInvalidAction       = errors.New("domain: invalid version action")
)
