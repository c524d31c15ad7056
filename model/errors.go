package model

import "errors"

// Error classes, matched with errors.Is at the service boundary to pick the
// response envelope.
var (
	// ErrValidation covers bad caller input; recovered locally.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration covers broken catalogs and malformed tests; fatal,
	// never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrConflict is returned when a bounded optimistic-write retry is
	// exhausted.
	ErrConflict = errors.New("write conflict")
	// ErrNotFound is returned for unknown users, tests and attempts.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable wraps persistence/transport failures.
	ErrUnavailable = errors.New("unavailable")
)
