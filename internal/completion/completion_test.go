package completion

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
	"github.com/meridianworks/transfer/transfertypes"
)

func multipartCompletion() Request {
	return Request{
		ComponentID: "comp-1",
		Name:        "render.exr",
		Size:        1 << 20,
		UploadID:    "mp-123",
		Manifest: []transfertypes.PartResult{
			{PartNumber: 3, Fingerprint: "fp-3"},
			{PartNumber: 1, Fingerprint: "fp-1"},
			{PartNumber: 2, Fingerprint: "fp-2"},
		},
		LocationEntityType: "ComponentLocation",
		LocationID:         "server-location",
	}
}

// TestCoordinator_Complete_Multipart tests that the commit and the location
// record go out in one batched call, with the manifest sorted ascending.
func TestCoordinator_Complete_Multipart(t *testing.T) {
	caller := &testutil.MockCaller{}
	publisher := &testutil.MockPublisher{}

	err := New(caller, publisher, zerolog.Nop()).
		Complete(context.Background(), multipartCompletion())
	require.NoError(t, err)

	calls := caller.Calls()
	require.Len(t, calls, 1, "commit and location record must share one round trip")
	require.Len(t, calls[0], 2)

	commit := calls[0][0]
	assert.Equal(t, "complete_multipart_upload", commit["action"])
	assert.Equal(t, "mp-123", commit["upload_id"])
	parts, ok := commit["parts"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, parts, 3)
	for i, p := range parts {
		assert.Equal(t, i+1, p["part_number"], "manifest must be sorted ascending")
	}

	record := calls[0][1]
	assert.Equal(t, "create", record["action"])
	assert.Equal(t, "ComponentLocation", record["entity_type"])
	data, ok := record["entity_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "comp-1", data["component_id"])
	assert.Equal(t, "server-location", data["location_id"])
	assert.NotEmpty(t, data["id"])

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventTopic, events[0].Topic)
	assert.Equal(t, "comp-1", events[0].Data["component_id"])
}

// TestCoordinator_Complete_Single tests that single transfers skip the
// multipart commit and only record the location.
func TestCoordinator_Complete_Single(t *testing.T) {
	caller := &testutil.MockCaller{}

	req := multipartCompletion()
	req.UploadID = ""
	req.Manifest = nil

	err := New(caller, nil, zerolog.Nop()).Complete(context.Background(), req)
	require.NoError(t, err)

	calls := caller.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1)
	assert.Equal(t, "create", calls[0][0]["action"])
}

// TestCoordinator_Complete_PublishFailure tests that a failing publisher
// never fails a committed transfer.
func TestCoordinator_Complete_PublishFailure(t *testing.T) {
	caller := &testutil.MockCaller{}
	publisher := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, event transfertypes.Event) error {
			return errors.New("broker unavailable")
		},
	}

	err := New(caller, publisher, zerolog.Nop()).
		Complete(context.Background(), multipartCompletion())
	assert.NoError(t, err)
}

// TestCoordinator_Complete_CallerError tests that a failed commit surfaces
// with the component attached.
func TestCoordinator_Complete_CallerError(t *testing.T) {
	caller := &testutil.MockCaller{
		CallFunc: func(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error) {
			return nil, errors.New("commit rejected")
		},
	}

	err := New(caller, nil, zerolog.Nop()).
		Complete(context.Background(), multipartCompletion())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit rejected")

	var xerr *xferrors.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "comp-1", xerr.Component)
}

// TestCoordinator_Cleanup tests the compensating delete.
func TestCoordinator_Cleanup(t *testing.T) {
	caller := &testutil.MockCaller{}

	err := New(caller, nil, zerolog.Nop()).
		Cleanup(context.Background(), "FileComponent", "comp-1")
	require.NoError(t, err)

	deletes := caller.Deletes()
	require.Len(t, deletes, 1)
	assert.Equal(t, "FileComponent", deletes[0].EntityType)
	assert.Equal(t, []string{"comp-1"}, deletes[0].Keys)
}

// TestCoordinator_Cleanup_Failure tests that a failed delete is reported as
// a cleanup failure.
func TestCoordinator_Cleanup_Failure(t *testing.T) {
	caller := &testutil.MockCaller{
		DeleteFunc: func(ctx context.Context, entityType string, keys []string) error {
			return errors.New("entity is locked")
		},
	}

	err := New(caller, nil, zerolog.Nop()).
		Cleanup(context.Background(), "FileComponent", "comp-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, xferrors.ErrCleanupFailed)
	assert.Contains(t, err.Error(), "entity is locked")
}
