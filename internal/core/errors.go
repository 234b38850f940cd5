package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent writer changed a row between read and write,
	// or when the persistence layer aborted the transaction with a retryable conflict.
	ErrConflict = errors.New("concurrent modification")

	// ErrDuplicate is returned when a uniqueness constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidTransition is returned for backward procurement status moves.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientStock is returned by a stock decrement that would go below zero
	// under the RejectNegative policy.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError reports malformed client input or a reference to a record that does not
// exist. It is always raised before any change becomes visible.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a *ValidationError with a formatted message.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
