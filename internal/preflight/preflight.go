// Package preflight registers the destination component and obtains transfer
// coordinates in one batched RPC round trip.
//
// Preflight is atomic from the caller's perspective: if either operation
// fails, the whole step fails before any bytes are sent. Registration may
// still have partially succeeded on the remote side, which is why a failed
// preflight triggers the cleanup path upstream.
package preflight

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/rpc"
	"github.com/meridianworks/transfer/transfertypes"
)

// Request describes the component to register and the coordinates to request.
type Request struct {
	// Name is the display name registered for the component
	Name string

	// ContentType is the payload media type
	ContentType string

	// Size is the declared payload size in bytes
	Size int64

	// ComponentID is the destination identifier
	ComponentID string

	// EntityType is the entity type registered for the component
	EntityType string

	// PartCount is the number of signed part URLs to request; zero requests
	// a single-connection target
	PartCount int
}

// SingleTarget is the destination of a single-connection transfer.
type SingleTarget struct {
	URL     string
	Headers map[string]string
}

// MultipartTarget is the destination of a multipart transfer.
type MultipartTarget struct {
	Parts    []transfertypes.PartDescriptor
	UploadID string
}

// Result carries the transfer coordinates; exactly one field is set.
type Result struct {
	Single    *SingleTarget
	Multipart *MultipartTarget
}

// Coordinator runs the preflight step against a batched RPC caller.
type Coordinator struct {
	caller rpc.Caller
	log    zerolog.Logger
}

// New creates a preflight coordinator.
func New(caller rpc.Caller, log zerolog.Logger) *Coordinator {
	return &Coordinator{caller: caller, log: log}
}

// Run registers the component and requests transfer coordinates.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	ops := []rpc.Operation{
		rpc.CreateOp(req.EntityType, map[string]any{
			"id":         req.ComponentID,
			"name":       req.Name,
			"media_type": req.ContentType,
			"size":       req.Size,
		}),
		rpc.UploadMetadataOp(req.Name, req.Size, req.ComponentID, req.PartCount),
	}

	c.log.Debug().
		Str("component_id", req.ComponentID).
		Int("parts", req.PartCount).
		Msg("running preflight")

	responses, err := c.caller.Call(ctx, ops)
	if err != nil {
		return nil, xferrors.NewError("preflight", xferrors.ErrPreflightFailed).
			WithComponent(req.ComponentID).
			WithMessage(err.Error())
	}
	if len(responses) != len(ops) {
		return nil, xferrors.NewError("preflight", xferrors.ErrPreflightFailed).
			WithComponent(req.ComponentID).
			WithMessage(fmt.Sprintf("got %d responses for %d operations", len(responses), len(ops)))
	}

	var meta rpc.UploadMetadata
	if err := rpc.DecodeResponse(responses[1], &meta); err != nil {
		return nil, xferrors.NewError("preflight", xferrors.ErrPreflightFailed).
			WithComponent(req.ComponentID).
			WithMessage(err.Error())
	}

	if req.PartCount > 0 {
		target, err := c.multipartTarget(req, &meta)
		if err != nil {
			return nil, err
		}
		return &Result{Multipart: target}, nil
	}

	if meta.URL == "" {
		return nil, xferrors.NewError("preflight", xferrors.ErrPreflightFailed).
			WithComponent(req.ComponentID).
			WithMessage("upload metadata is missing a signed url")
	}
	return &Result{Single: &SingleTarget{URL: meta.URL, Headers: meta.Headers}}, nil
}

// multipartTarget validates that the returned part descriptors are unique and
// dense 1..N before handing them to the scheduler.
func (c *Coordinator) multipartTarget(req Request, meta *rpc.UploadMetadata) (*MultipartTarget, error) {
	if !meta.Multipart() {
		return nil, xferrors.NewError("preflight", xferrors.ErrPreflightFailed).
			WithComponent(req.ComponentID).
			WithMessage("expected multipart coordinates")
	}
	if len(meta.URLs) != req.PartCount {
		return nil, xferrors.NewError("preflight", xferrors.ErrPreflightFailed).
			WithComponent(req.ComponentID).
			WithMessage(fmt.Sprintf("got %d part urls, want %d", len(meta.URLs), req.PartCount))
	}

	seen := make(map[int]bool, len(meta.URLs))
	for _, pd := range meta.URLs {
		if pd.PartNumber < 1 || pd.PartNumber > req.PartCount || seen[pd.PartNumber] {
			return nil, xferrors.NewError("preflight", xferrors.ErrPreflightFailed).
				WithComponent(req.ComponentID).
				WithMessage(fmt.Sprintf("part numbers are not dense 1..%d", req.PartCount))
		}
		seen[pd.PartNumber] = true
	}

	return &MultipartTarget{Parts: meta.URLs, UploadID: meta.UploadID}, nil
}
