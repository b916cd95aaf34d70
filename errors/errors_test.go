package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestError_Error tests message formatting with optional context.
func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  NewError("preflight", ErrPreflightFailed),
			want: "transfer.preflight: transfer: preflight failed",
		},
		{
			name: "with_component",
			err:  NewError("preflight", ErrPreflightFailed).WithComponent("comp-1"),
			want: "transfer.preflight component comp-1: transfer: preflight failed",
		},
		{
			name: "with_component_and_status",
			err: NewError("uploadPart", ErrChunkUploadFailed).
				WithComponent("comp-1").
				WithStatus(503),
			want: "transfer.uploadPart component comp-1 (status 503): transfer: chunk upload failed",
		},
		{
			name: "with_status",
			err:  NewError("upload", ErrCreateComponentFailed).WithStatus(403),
			want: "transfer.upload (status 403): transfer: create component failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

// TestError_Unwrap tests that wrapped sentinels survive WithMessage.
func TestError_Unwrap(t *testing.T) {
	err := NewError("uploadPart", ErrChunkUploadFailed).
		WithMessage("connection reset by peer")

	assert.ErrorIs(t, err, ErrChunkUploadFailed)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

// TestCode tests the sentinel-to-code mapping across wrap chains.
func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewError("start", ErrValidation), CodeValidation},
		{"preflight", NewError("preflight", ErrPreflightFailed), CodePreflightFailed},
		{"chunk", NewError("uploadPart", ErrChunkUploadFailed), CodeChunkUploadFailed},
		{"aborted", NewError("upload", ErrUploadAborted), CodeUploadAborted},
		{"offline", NewError("uploadPart", ErrNetworkOffline), CodeNetworkOffline},
		{"cleanup", NewError("cleanup", ErrCleanupFailed), CodeCleanupFailed},
		{"create_component", NewError("upload", ErrCreateComponentFailed), CodeCreateComponentFailed},
		{"outside_taxonomy", errors.New("something else"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

// TestCode_RetryExhausted tests that an exhausted retry budget maps to its
// own code, with the final chunk failure carried as the message.
func TestCode_RetryExhausted(t *testing.T) {
	last := NewError("uploadPart", ErrChunkUploadFailed).WithStatus(500)
	err := NewError("uploadPart", ErrRetryExhausted).WithMessage(last.Error())

	assert.Equal(t, CodeRetryExhausted, Code(err))
}

// TestIsHelpers tests the IsAborted and IsRetryable predicates.
func TestIsHelpers(t *testing.T) {
	assert.True(t, IsAborted(NewError("upload", ErrUploadAborted)))
	assert.False(t, IsAborted(NewError("upload", ErrChunkUploadFailed)))

	assert.True(t, IsRetryable(NewError("uploadPart", ErrChunkUploadFailed)))
	assert.False(t, IsRetryable(NewError("uploadPart", ErrUploadAborted)))
}
