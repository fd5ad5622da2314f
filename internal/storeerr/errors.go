// Package storeerr collects the sentinel errors shared across the
// storage engine's packages, mirroring the small crate-wide error enum
// the Rust original kept in db-engine/src/errors.rs.
package storeerr

import "errors"

var (
	// ErrClosed is returned by any Database or WAL operation attempted
	// after Close.
	ErrClosed = errors.New("siltengine: database is closed")
	// ErrEmptyKey is returned when a caller supplies a zero-length key;
	// spec §3 requires keys to be non-empty opaque byte strings.
	ErrEmptyKey = errors.New("siltengine: key must not be empty")
)
