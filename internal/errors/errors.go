package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a job was not found in the store.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates a malformed, ambiguous, or conflicting request.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodePermission indicates the caller is not the owner of the job,
	// or the job carries no ownership metadata at all.
	ErrCodePermission ErrorCode = "permission"
	// ErrCodeStore indicates a store connectivity or backend failure.
	ErrCodeStore ErrorCode = "store"
	// ErrCodeEngine indicates a queue/execution-engine failure.
	ErrCodeEngine ErrorCode = "engine"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific request key that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationField creates a new Validation error for a specific request key.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Permission creates a new Permission error.
func Permission(message string) *AppError {
	return &AppError{
		Code:    ErrCodePermission,
		Message: message,
	}
}

// Store creates a new Store error.
func Store(message string) *AppError {
	return &AppError{
		Code:    ErrCodeStore,
		Message: message,
	}
}

// Storef creates a new Store error with formatted message.
func Storef(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeStore,
		Message: fmt.Sprintf(format, args...),
	}
}

// Engine creates a new Engine error.
func Engine(message string) *AppError {
	return &AppError{
		Code:    ErrCodeEngine,
		Message: message,
	}
}

// Enginef creates a new Engine error with formatted message.
func Enginef(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeEngine,
		Message: fmt.Sprintf(format, args...),
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsPermission checks if an error is a Permission error.
func IsPermission(err error) bool {
	return isCode(err, ErrCodePermission)
}

// IsStore checks if an error is a Store error.
func IsStore(err error) bool {
	return isCode(err, ErrCodeStore)
}

// IsEngine checks if an error is an Engine error.
func IsEngine(err error) bool {
	return isCode(err, ErrCodeEngine)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
