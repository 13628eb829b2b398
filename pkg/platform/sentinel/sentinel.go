// Package sentinel holds shared sentinel errors for infrastructure facts.
// Stores return these (optionally wrapped) so services can translate them
// into domain errors. For validation failures, use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	// ErrNotFound means the entity does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the entity changed underneath the caller.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means a backing service is temporarily unreachable.
	ErrUnavailable = errors.New("unavailable")
)
