package entities

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTaskNotFound     = errors.New("task not found")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrPersistenceWrite = errors.New("persistence write failure")
	ErrPersistenceRead  = errors.New("persistence read failure")
	ErrUnauthorized     = errors.New("unauthorized")
)

// PersistenceError reports a failed backend call. The in-memory state the call
// was persisting is kept, so callers treat it as a warning.
type PersistenceError struct {
	Kind error
	Key  string
	Err  error
}

// NewWriteError wraps a failed write of key.
func NewWriteError(key string, err error) *PersistenceError {
	return &PersistenceError{Kind: ErrPersistenceWrite, Key: key, Err: err}
}

// NewReadError wraps a failed read of key.
func NewReadError(key string, err error) *PersistenceError {
	return &PersistenceError{Kind: ErrPersistenceRead, Key: key, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v (key %q): %v", e.Kind, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsWarning reports whether err only signals a persistence failure that left
// the operation itself completed.
func IsWarning(err error) bool {
	return errors.Is(err, ErrPersistenceWrite) || errors.Is(err, ErrPersistenceRead)
}
