// Package store persists the tracked-state snapshot and the API
// credential.
package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for common store conditions.
var (
	// ErrSnapshotCorrupt indicates the snapshot file could not be parsed.
	ErrSnapshotCorrupt = errors.New("store: snapshot corrupt")
	// ErrLockTimeout indicates a timeout acquiring the file lock.
	ErrLockTimeout = errors.New("store: lock acquisition timeout")
)

// StoreError wraps store errors with operation context.
//
//	var storErr *store.StoreError
//	if errors.As(err, &storErr) {
//		fmt.Printf("failed to %s: %v\n", storErr.Op, storErr.Err)
//	}
type StoreError struct {
	// Op is the operation that failed ("load", "save", "lock", ...).
	Op string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the store error.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StoreError) Unwrap() error { return e.Err }

// Store persists the engine's canonical collections as an opaque
// snapshot, and the API credential separately from the rest.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load reads the last saved snapshot. A missing snapshot yields an
	// empty snapshot with default preferences, not an error.
	Load() (*Snapshot, error)
	// Save persists the snapshot.
	Save(snap *Snapshot) error
	// LoadCredential reads the stored API credential; empty when unset.
	LoadCredential() (string, error)
	// SaveCredential persists the API credential.
	SaveCredential(key string) error
	// Close releases any resources held by the store.
	Close() error
}
