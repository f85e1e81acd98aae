package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for tag operations.
type ErrorCode string

const (
	// ErrCodeValidationFailed indicates invalid input (empty name, bad id).
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrCodeDuplicateTag indicates the requested name is too similar to an existing tag.
	ErrCodeDuplicateTag ErrorCode = "DUPLICATE_TAG"
	// ErrCodeNotFound indicates the requested tag does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeHasReferences indicates deletion is blocked by existing post references.
	ErrCodeHasReferences ErrorCode = "HAS_REFERENCES"
	// ErrCodeSlugConflict indicates a write lost the race on the slug unique constraint.
	ErrCodeSlugConflict ErrorCode = "SLUG_CONFLICT"
	// ErrCodePersistenceFailed indicates an unexpected storage failure.
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
)

// TagError represents a structured error for tag operations.
type TagError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *TagError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TagError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *TagError) WithContext(key string, value interface{}) *TagError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *TagError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// ValidationFailed creates a validation error.
func ValidationFailed(msg string) *TagError {
	return &TagError{Code: ErrCodeValidationFailed, Message: msg}
}

// DuplicateTag creates a duplicate-tag error.
func DuplicateTag(msg string) *TagError {
	return &TagError{Code: ErrCodeDuplicateTag, Message: msg}
}

// NotFound creates a not-found error.
func NotFound(msg string) *TagError {
	return &TagError{Code: ErrCodeNotFound, Message: msg}
}

// HasReferences creates a blocked-deletion error.
func HasReferences(msg string) *TagError {
	return &TagError{Code: ErrCodeHasReferences, Message: msg}
}

// SlugConflict creates a retryable slug conflict error.
func SlugConflict(msg string, cause error) *TagError {
	return &TagError{Code: ErrCodeSlugConflict, Message: msg, Cause: cause}
}

// PersistenceFailed creates a storage failure error.
func PersistenceFailed(msg string, cause error) *TagError {
	return &TagError{Code: ErrCodePersistenceFailed, Message: msg, Cause: cause}
}

// IsCode reports whether err is a TagError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var te *TagError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}
