package tasks

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("task not found")

	ErrTitleRequired = errors.New("title required")
	ErrTitleTooLong  = fmt.Errorf("title must be at most %d characters", MaxTitleLen)
	ErrInvalidStatus = errors.New("status must be one of todo, in-progress, completed")
)

// StoreError wraps any other failure reported by the document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "task store " + e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }
