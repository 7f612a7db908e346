// Package errors defines application-level error types carrying an HTTP
// status hint for the API layer.
package errors

import (
	"net/http"

	"beacon/internal/errors"
)

// AppError defines the interface for application-specific errors.
type AppError interface {
	error
	HTTPCode() int     // HTTP status code hint
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface.
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error.
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message.
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code hint.
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code.
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message.
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information.
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information.
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types.
var (
	// Validation errors: bad input surfaces as 4xx with an embedded status.
	ErrUnknownContentType = NewBaseError(
		http.StatusBadRequest,
		"UNKNOWN_CONTENT_TYPE",
		"unknown content type",
		"",
	)

	ErrContentNotFound = NewBaseError(
		http.StatusNotFound,
		"CONTENT_NOT_FOUND",
		"content does not exist",
		"",
	)

	ErrPermissionDenied = NewBaseError(
		http.StatusForbidden,
		"PERMISSION_DENIED",
		"not allowed to access this content",
		"",
	)

	ErrUnknownPushService = NewBaseError(
		http.StatusBadRequest,
		"UNKNOWN_PUSH_SERVICE",
		"unsupported push service",
		"",
	)

	ErrInvalidIdentity = NewBaseError(
		http.StatusBadRequest,
		"INVALID_IDENTITY",
		"request carries no valid user or guest identity",
		"",
	)

	// Storage-layer write failures; never leaks internals to clients.
	ErrStorageWrite = NewBaseError(
		http.StatusInternalServerError,
		"STORAGE_WRITE_FAILED",
		"failed to persist the change",
		"",
	)

	// The atomic guest-to-user transfer failed and was rolled back; the
	// guest's data is unchanged and the migration is safe to retry.
	ErrMigrationFailed = NewBaseError(
		http.StatusInternalServerError,
		"MIGRATION_FAILED",
		"failed to migrate guest data",
		"",
	)
)

// NewStorageWriteError wraps a storage error into the generic write failure
// while preserving the cause for logs.
func NewStorageWriteError(cause error, message string) error {
	if cause == nil {
		return ErrStorageWrite.WithDetails(message)
	}

	return errors.Wrap(ErrStorageWrite.WithDetails(message), cause.Error())
}

// NewMigrationFailedError wraps a rolled-back migration error while
// preserving the cause for logs.
func NewMigrationFailedError(cause error) error {
	if cause == nil {
		return ErrMigrationFailed
	}

	return errors.Wrap(ErrMigrationFailed, cause.Error())
}
