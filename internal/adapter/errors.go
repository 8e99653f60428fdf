package adapter

import (
	"errors"
)

var (
	// ErrNotFound is returned when the requested path does not exist in
	// the backend. Callers treat this as a normal, recoverable case.
	ErrNotFound = errors.New("entry not found")

	// ErrPreconditionFailed is returned when a write carries a stale
	// revision token.
	ErrPreconditionFailed = errors.New("revision mismatch")

	// ErrUnauthorized is returned when the backend rejects our access
	// credential. Misconfiguration, not a per-request condition.
	ErrUnauthorized = errors.New("backend rejected credentials")

	// ErrUnavailable is returned for network failures and unexpected
	// backend responses.
	ErrUnavailable = errors.New("backend unavailable")
)
