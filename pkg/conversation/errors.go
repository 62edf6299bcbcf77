// Package conversation is the context manager: conversation persistence,
// counters, and the rolling window handed to the model.
package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested conversation does not exist
	ErrNotFound = errors.New("conversation not found")
	// ErrAlreadyExists indicates a conversation id collision
	ErrAlreadyExists = errors.New("conversation already exists")
)

// ValidationError indicates invalid input data.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
