package service

import "errors"

// Service error taxonomy. Handlers dispatch on these with errors.Is; each
// maps to a distinct externally observable status.
var (
	// ErrInvalidInput is returned for client-fixable input problems
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned for duplicate registration
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated is returned for missing, malformed, expired or
	// revoked credentials and for bad login attempts
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the free-tier domain cap is reached
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidSignature is returned when a webhook payload fails
	// authenticity verification; the caller must not retry
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnavailable is returned when a downstream store or provider is
	// unreachable; transient, safe to retry for idempotent operations
	ErrUnavailable = errors.New("unavailable")
)
