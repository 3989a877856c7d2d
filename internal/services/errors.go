package services

import "errors"

// ErrEmptyWindow means the statistics source had no entries for the window.
// It is a valid no-data outcome, not a failure.
var ErrEmptyWindow = errors.New("usage window is empty")

// SourceUnavailableError wraps a failure of the statistics source.
type SourceUnavailableError struct{ Err error }

func (e *SourceUnavailableError) Error() string {
	if e.Err == nil {
		return "usage statistics source unavailable"
	}
	return "usage statistics source unavailable: " + e.Err.Error()
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed session insert.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return "persist session: " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
