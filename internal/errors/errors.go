package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeTransient  ErrorType = "TRANSIENT_IO"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeExhaustion ErrorType = "EXHAUSTION"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewNotFoundError marks a requested combination with no backing
// object. Always non-fatal: callers degrade to empty or zero data.
func NewNotFoundError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNotFound, message, cause)
}

// NewTransientError marks a listing or fetch failure worth retrying.
func NewTransientError(message string, cause error) *AppError {
	return NewAppError(ErrTypeTransient, message, cause)
}

// NewParsingError marks a malformed record or file; the row or file is
// skipped, never the run.
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewValidationError marks a caller-supplied parameter that failed
// format validation; the operation fails fast with no partial work.
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration-related error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewExhaustionError marks a run in which every cell failed.
func NewExhaustionError(message string, cause error) *AppError {
	return NewAppError(ErrTypeExhaustion, message, cause)
}

// TypeOf returns the taxonomy type of err, or "" for nil or foreign
// errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsNotFound reports whether err is (or wraps) a NOT_FOUND error.
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrTypeNotFound
}

// IsTransient reports whether err is (or wraps) a TRANSIENT_IO error.
func IsTransient(err error) bool {
	return TypeOf(err) == ErrTypeTransient
}

// IsValidation reports whether err is (or wraps) a VALIDATION error.
func IsValidation(err error) bool {
	return TypeOf(err) == ErrTypeValidation
}
