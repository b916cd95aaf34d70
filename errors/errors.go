// Package errors provides error types and handling for transfer operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a transfer pipeline error with context about the operation
// that failed. It wraps the underlying error with the component identifier and
// a stable machine-readable code so callers can distinguish failure modes
// without parsing messages.
type Error struct {
	// Op is the operation that failed (e.g., "preflight", "uploadPart")
	Op string

	// Component is the destination component identifier (if applicable)
	Component string

	// Status is the HTTP status code returned by the remote endpoint (if applicable)
	Status int

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	switch {
	case e.Component != "" && e.Status != 0:
		return fmt.Sprintf("transfer.%s component %s (status %d): %v", e.Op, e.Component, e.Status, e.Err)
	case e.Component != "":
		return fmt.Sprintf("transfer.%s component %s: %v", e.Op, e.Component, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("transfer.%s (status %d): %v", e.Op, e.Status, e.Err)
	default:
		return fmt.Sprintf("transfer.%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithComponent adds component context to an existing error.
func (e *Error) WithComponent(id string) *Error {
	e.Component = id
	return e
}

// WithStatus adds the remote HTTP status code to an existing error.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// Sentinel errors for the transfer pipeline failure taxonomy.
// These can be used with errors.Is() for error checking.
var (
	// ErrValidation indicates that the transfer request is invalid and was
	// rejected before any network call was made
	ErrValidation = errors.New("transfer: invalid request")

	// ErrPreflightFailed indicates that component registration or the
	// upload-coordinate request failed before any bytes were sent
	ErrPreflightFailed = errors.New("transfer: preflight failed")

	// ErrChunkUploadFailed indicates that a single part transfer failed;
	// parts failing with this error are retried up to the retry budget
	ErrChunkUploadFailed = errors.New("transfer: chunk upload failed")

	// ErrRetryExhausted indicates that a part exceeded its retry budget
	ErrRetryExhausted = errors.New("transfer: retry budget exhausted")

	// ErrUploadAborted indicates that the transfer was cancelled, either by
	// an explicit abort call or by context cancellation
	ErrUploadAborted = errors.New("transfer: upload aborted")

	// ErrNetworkOffline indicates that local connectivity was known down
	// before a connection was opened
	ErrNetworkOffline = errors.New("transfer: network offline")

	// ErrCleanupFailed indicates that the compensating delete of the
	// destination component failed; it never replaces the original error
	ErrCleanupFailed = errors.New("transfer: cleanup failed")

	// ErrCreateComponentFailed indicates that the destination endpoint
	// rejected the single-connection upload
	ErrCreateComponentFailed = errors.New("transfer: create component failed")
)

// Stable machine-readable codes for the sentinel errors above.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodePreflightFailed       = "PREFLIGHT_FAILED"
	CodeChunkUploadFailed     = "CHUNK_UPLOAD_FAILED"
	CodeRetryExhausted        = "RETRY_EXHAUSTED"
	CodeUploadAborted         = "UPLOAD_ABORTED"
	CodeNetworkOffline        = "NETWORK_OFFLINE"
	CodeCleanupFailed         = "CLEANUP_FAILED"
	CodeCreateComponentFailed = "CREATE_COMPONENT_FAILED"
)

// Code returns the stable machine-readable code for an error, walking the
// wrap chain to find a known sentinel. Returns an empty string for errors
// outside the transfer taxonomy.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrPreflightFailed):
		return CodePreflightFailed
	case errors.Is(err, ErrRetryExhausted):
		return CodeRetryExhausted
	case errors.Is(err, ErrUploadAborted):
		return CodeUploadAborted
	case errors.Is(err, ErrNetworkOffline):
		return CodeNetworkOffline
	case errors.Is(err, ErrChunkUploadFailed):
		return CodeChunkUploadFailed
	case errors.Is(err, ErrCleanupFailed):
		return CodeCleanupFailed
	case errors.Is(err, ErrCreateComponentFailed):
		return CodeCreateComponentFailed
	default:
		return ""
	}
}

// IsAborted checks if an error indicates a cancelled transfer.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAborted(err error) bool {
	return errors.Is(err, ErrUploadAborted)
}

// IsRetryable reports whether a part failure is eligible for a retry.
// Only transient chunk failures are retried; everything else is fatal.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrChunkUploadFailed)
}
