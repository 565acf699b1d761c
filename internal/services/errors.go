package services

import "errors"

// Service-level sentinels. Handlers translate these to HTTP status codes;
// anything wrapping ErrUpstream is logged in full but surfaced as a generic
// failure so internal details never reach the caller.
var (
	// ErrUnauthenticated means no verified identity was resolved for the call.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrValidation covers missing or malformed required fields.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound is returned both when an id does not exist and when it
	// belongs to another owner. The two cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("task not found")

	// ErrUpstream wraps persistence or object-store transport failures.
	ErrUpstream = errors.New("upstream storage failure")

	// ErrConflict is reserved. Concurrent updates resolve last-write-wins,
	// so nothing raises it today.
	ErrConflict = errors.New("conflicting update")
)
