// Package errors defines the application error taxonomy shared by the
// data-access core and its callers.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "VALIDATION"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeVersionConflict   ErrorType = "VERSION_CONFLICT"
	ErrorTypeCapacityExceeded  ErrorType = "CAPACITY_EXCEEDED"
	ErrorTypeRepositoryFailure ErrorType = "REPOSITORY_FAILURE"
	ErrorTypeTransactionFailed ErrorType = "TRANSACTION_FAILED"
	ErrorTypeInternal          ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewVersionConflict creates a version conflict error for a lost conditional write
func NewVersionConflict(message string) error {
	return &AppError{Type: ErrorTypeVersionConflict, Message: message}
}

// NewCapacityExceeded creates a capacity exceeded error. This is a business
// rejection, not a race: callers must not retry it.
func NewCapacityExceeded(message string) error {
	return &AppError{Type: ErrorTypeCapacityExceeded, Message: message}
}

// NewRepositoryFailure wraps a low-level store error
func NewRepositoryFailure(message string, err error) error {
	return &AppError{Type: ErrorTypeRepositoryFailure, Message: message, Err: err}
}

// NewTransactionFailed reports an all-or-nothing write that did not commit.
// Nothing was applied.
func NewTransactionFailed(message string, err error) error {
	return &AppError{Type: ErrorTypeTransactionFailed, Message: message, Err: err}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, treat it as a repository failure bubbling up from the store
	return &AppError{Type: ErrorTypeRepositoryFailure, Message: message, Err: err}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsVersionConflict checks if an error is a version conflict
func IsVersionConflict(err error) bool { return isType(err, ErrorTypeVersionConflict) }

// IsCapacityExceeded checks if an error is a capacity rejection
func IsCapacityExceeded(err error) bool { return isType(err, ErrorTypeCapacityExceeded) }

// IsRepositoryFailure checks if an error wraps a low-level store failure
func IsRepositoryFailure(err error) bool { return isType(err, ErrorTypeRepositoryFailure) }

// IsTransactionFailed checks if an error is a failed transactional write
func IsTransactionFailed(err error) bool { return isType(err, ErrorTypeTransactionFailed) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return isType(err, ErrorTypeInternal) }
