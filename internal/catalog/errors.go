package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations.
var (
	// ErrNotFound indicates no catalog entry matches the requested video id.
	ErrNotFound = errors.New("video not found")
	// ErrLockTimeout indicates a timeout acquiring the catalog file lock.
	ErrLockTimeout = errors.New("catalog lock timeout")
)

// StorageError wraps a failed catalog operation with its context.
type StorageError struct {
	Op   string // "read", "write", "lock"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
