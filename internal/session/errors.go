package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a session ID resolves to nothing.
var ErrNotFound = errors.New("session not found")

// ErrClosed is returned by operations on a session that was abandoned.
var ErrClosed = errors.New("session is closed")

// ValidationError rejects an operation before any state changes or network
// activity. It maps to a form-field error in UI layers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
