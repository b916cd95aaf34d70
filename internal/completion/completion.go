// Package completion finalizes a transfer session or undoes a failed one.
//
// On success it commits the multipart session (when there is one), records
// the component's storage location, and publishes a best-effort domain event.
// On failure upstream it deletes the component registered during preflight;
// cleanup failures are reported but never replace the original error.
package completion

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/rpc"
	"github.com/meridianworks/transfer/transfertypes"
)

// EventTopic is the topic of the event published once a component is ready.
const EventTopic = "transfer.component-ready"

// Request describes a finished session to commit.
type Request struct {
	// ComponentID is the destination component identifier
	ComponentID string

	// Name is the component display name, carried on the published event
	Name string

	// Size is the transferred byte count, carried on the published event
	Size int64

	// UploadID identifies the multipart session; empty for single transfers
	UploadID string

	// Manifest is the committed part set; empty for single transfers
	Manifest []transfertypes.PartResult

	// LocationEntityType is the entity type of the location record
	LocationEntityType string

	// LocationID identifies the storage location
	LocationID string
}

// Coordinator commits or cleans up transfer sessions.
type Coordinator struct {
	caller    rpc.Caller
	publisher transfertypes.Publisher
	log       zerolog.Logger
}

// New creates a completion coordinator. publisher may be nil.
func New(caller rpc.Caller, publisher transfertypes.Publisher, log zerolog.Logger) *Coordinator {
	if publisher == nil {
		publisher = transfertypes.NopPublisher{}
	}
	return &Coordinator{caller: caller, publisher: publisher, log: log}
}

// Complete finalizes the session in one batched call: the multipart commit
// (if any) plus the location record. The manifest is re-sorted ascending by
// part number before the commit, so commit order is canonical regardless of
// the order parts finished in.
func (c *Coordinator) Complete(ctx context.Context, req Request) error {
	var ops []rpc.Operation

	if req.UploadID != "" {
		manifest := make([]transfertypes.PartResult, len(req.Manifest))
		copy(manifest, req.Manifest)
		sort.Slice(manifest, func(i, j int) bool {
			return manifest[i].PartNumber < manifest[j].PartNumber
		})
		ops = append(ops, rpc.CompleteMultipartOp(req.UploadID, req.ComponentID, manifest))
	}

	ops = append(ops, rpc.CreateOp(req.LocationEntityType, map[string]any{
		"id":                  uuid.NewString(),
		"component_id":        req.ComponentID,
		"resource_identifier": req.ComponentID,
		"location_id":         req.LocationID,
	}))

	if _, err := c.caller.Call(ctx, ops); err != nil {
		return xferrors.NewError("complete", err).WithComponent(req.ComponentID)
	}

	c.publish(ctx, req)
	return nil
}

// publish emits the component-ready event. Failures are logged, never surfaced.
func (c *Coordinator) publish(ctx context.Context, req Request) {
	err := c.publisher.Publish(ctx, transfertypes.Event{
		Topic: EventTopic,
		Data: map[string]any{
			"component_id": req.ComponentID,
			"name":         req.Name,
			"size":         req.Size,
			"location_id":  req.LocationID,
		},
	})
	if err != nil {
		c.log.Warn().
			Err(err).
			Str("component_id", req.ComponentID).
			Msg("component-ready event publish failed")
	}
}

// Cleanup deletes the component registered during preflight. It is safe to
// call for components whose registration only partially succeeded.
func (c *Coordinator) Cleanup(ctx context.Context, entityType, componentID string) error {
	if err := c.caller.Delete(ctx, entityType, []string{componentID}); err != nil {
		c.log.Warn().
			Err(err).
			Str("component_id", componentID).
			Msg("component cleanup failed")
		return xferrors.NewError("cleanup", xferrors.ErrCleanupFailed).
			WithComponent(componentID).
			WithMessage(err.Error())
	}

	c.log.Debug().
		Str("component_id", componentID).
		Msg("component deleted")
	return nil
}
