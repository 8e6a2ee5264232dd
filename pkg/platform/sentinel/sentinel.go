// Package sentinel names the infrastructure outcomes stores and adapters
// report. Services match them with errors.Is and translate them into
// domain errors; they never reach a client as-is.
package sentinel

import "errors"

var (
	// ErrNotFound means the addressed row or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means a dependency is down or deliberately bypassed.
	ErrUnavailable = errors.New("unavailable")
)
