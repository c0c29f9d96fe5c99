// Package simerr holds the error kinds shared by every simulation component.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a rejected input. The callee made no state change.
	ErrValidation = errors.New("validation error")
	// ErrState marks an operation that is not allowed in the current lifecycle state.
	ErrState = errors.New("invalid state")
	// ErrTransientIO marks a transport failure that outlived its retries.
	ErrTransientIO = errors.New("transient io error")
	// ErrNotFound marks an unknown session, device or target id.
	ErrNotFound = errors.New("not found")
)

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// State wraps ErrState with a formatted message.
func State(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrState)
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// TransientIO wraps ErrTransientIO around the underlying cause.
func TransientIO(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientIO, cause)
}
