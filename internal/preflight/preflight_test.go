package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/internal/testutil"
	"github.com/meridianworks/transfer/rpc"
)

func singleRequest() Request {
	return Request{
		Name:        "render.exr",
		ContentType: "image/x-exr",
		Size:        1024,
		ComponentID: "comp-1",
		EntityType:  "FileComponent",
	}
}

func multipartRequest(parts int) Request {
	req := singleRequest()
	req.Size = 100 << 20
	req.PartCount = parts
	return req
}

// metadataResponse builds the positional response pair for a preflight call:
// an empty create acknowledgement followed by the encoded upload metadata.
func metadataResponse(t *testing.T, meta any) []json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	return []json.RawMessage{json.RawMessage(`{}`), raw}
}

// TestCoordinator_Run_Single tests the single-connection preflight path.
func TestCoordinator_Run_Single(t *testing.T) {
	caller := &testutil.MockCaller{
		CallFunc: func(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error) {
			return metadataResponse(t, map[string]any{
				"url":     "https://storage.example.com/signed",
				"headers": map[string]string{"x-acl": "private"},
			}), nil
		},
	}

	result, err := New(caller, zerolog.Nop()).Run(context.Background(), singleRequest())
	require.NoError(t, err)
	require.NotNil(t, result.Single)
	assert.Nil(t, result.Multipart)
	assert.Equal(t, "https://storage.example.com/signed", result.Single.URL)
	assert.Equal(t, "private", result.Single.Headers["x-acl"])

	// One batched round trip carrying registration plus coordinates.
	calls := caller.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, "create", calls[0][0]["action"])
	assert.Equal(t, "FileComponent", calls[0][0]["entity_type"])
	assert.Equal(t, "get_upload_metadata", calls[0][1]["action"])
	assert.NotContains(t, calls[0][1], "parts")
}

// TestCoordinator_Run_Multipart tests the multipart preflight path.
func TestCoordinator_Run_Multipart(t *testing.T) {
	caller := &testutil.MockCaller{
		CallFunc: func(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error) {
			return metadataResponse(t, map[string]any{
				"upload_id": "mp-123",
				"urls": []map[string]any{
					{"part_number": 2, "signed_url": "https://storage.example.com/p2"},
					{"part_number": 1, "signed_url": "https://storage.example.com/p1"},
					{"part_number": 3, "signed_url": "https://storage.example.com/p3"},
				},
			}), nil
		},
	}

	result, err := New(caller, zerolog.Nop()).Run(context.Background(), multipartRequest(3))
	require.NoError(t, err)
	require.NotNil(t, result.Multipart)
	assert.Nil(t, result.Single)
	assert.Equal(t, "mp-123", result.Multipart.UploadID)
	assert.Len(t, result.Multipart.Parts, 3)

	calls := caller.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 3, calls[0][1]["parts"])
}

// TestCoordinator_Run_Failures tests that malformed coordinates and caller
// errors all surface as preflight failures.
func TestCoordinator_Run_Failures(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		meta map[string]any
	}{
		{
			name: "single_missing_url",
			req:  singleRequest(),
			meta: map[string]any{},
		},
		{
			name: "multipart_without_coordinates",
			req:  multipartRequest(3),
			meta: map[string]any{},
		},
		{
			name: "multipart_wrong_count",
			req:  multipartRequest(3),
			meta: map[string]any{
				"upload_id": "mp-123",
				"urls": []map[string]any{
					{"part_number": 1, "signed_url": "u1"},
					{"part_number": 2, "signed_url": "u2"},
				},
			},
		},
		{
			name: "multipart_duplicate_part",
			req:  multipartRequest(2),
			meta: map[string]any{
				"upload_id": "mp-123",
				"urls": []map[string]any{
					{"part_number": 1, "signed_url": "u1"},
					{"part_number": 1, "signed_url": "u1-again"},
				},
			},
		},
		{
			name: "multipart_out_of_range_part",
			req:  multipartRequest(2),
			meta: map[string]any{
				"upload_id": "mp-123",
				"urls": []map[string]any{
					{"part_number": 1, "signed_url": "u1"},
					{"part_number": 5, "signed_url": "u5"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &testutil.MockCaller{
				CallFunc: func(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error) {
					return metadataResponse(t, tt.meta), nil
				},
			}

			result, err := New(caller, zerolog.Nop()).Run(context.Background(), tt.req)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.ErrorIs(t, err, xferrors.ErrPreflightFailed)
		})
	}
}

// TestCoordinator_Run_MisalignedResponses tests that a caller returning a
// response array not positionally aligned with the operations fails the
// preflight instead of panicking.
func TestCoordinator_Run_MisalignedResponses(t *testing.T) {
	caller := &testutil.MockCaller{
		CallFunc: func(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error) {
			return []json.RawMessage{json.RawMessage(`{}`)}, nil
		},
	}

	result, err := New(caller, zerolog.Nop()).Run(context.Background(), singleRequest())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, xferrors.ErrPreflightFailed)
	assert.Contains(t, err.Error(), "got 1 responses for 2 operations")
}

// TestCoordinator_Run_CallerError tests that a failed round trip wraps the
// transport error as a preflight failure.
func TestCoordinator_Run_CallerError(t *testing.T) {
	caller := &testutil.MockCaller{
		CallFunc: func(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error) {
			return nil, errors.New("connection refused")
		},
	}

	result, err := New(caller, zerolog.Nop()).Run(context.Background(), singleRequest())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, xferrors.ErrPreflightFailed)
	assert.Contains(t, err.Error(), "connection refused")
}
