package shared

import "errors"

// Common errors shared across domain packages.
var (
	// ErrConfiguration indicates missing or invalid configuration
	// (credentials, owner setup). Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransientIO indicates a temporary failure talking to an external
	// system (upstream timeout, 5xx, lock store unavailable). Callers apply
	// their own retry policy.
	ErrTransientIO = errors.New("transient io error")

	// ErrConflict indicates a unique-constraint violation on upsert.
	// Recovered internally by re-querying for the existing row.
	ErrConflict = errors.New("conflict")
)
