package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrQueueEmpty      = errors.New("no job ready")
	ErrLeaseLost       = errors.New("job lease lost")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLockNotAcquired = errors.New("lock held by another process")

	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// ExtractionError is returned when the text-generation service fails or its
// response cannot be parsed. Raw holds the model output when there was one.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction failed"
	}
	return "extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError marks a failed primary insert.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransientInfraError wraps failures of shared infrastructure (queue, KV store).
type TransientInfraError struct {
	Component string
	Err       error
}

func (e *TransientInfraError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Component, e.Err)
}

func (e *TransientInfraError) Unwrap() error { return e.Err }

func IsExtraction(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}

func IsTransient(err error) bool {
	var e *TransientInfraError
	return errors.As(err, &e)
}

func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}
