// Package rpc defines the batched RPC surface the transfer pipeline consumes.
//
// The platform exposes a generic call(operations) primitive: every call is one
// HTTP round trip carrying an array of operations, and the response array is
// positionally aligned with the request array. The pipeline only builds the
// operations it needs (component registration, upload coordinates, multipart
// commit, location record, delete); the wider CRUD builder API lives with the
// platform client, not here.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meridianworks/transfer/transfertypes"
)

// Operation is one entry in a batched call. Operations are free-form JSON
// objects discriminated by their "action" field.
type Operation map[string]any

// Caller issues batched operations against the platform API.
// Implementations must perform exactly one round trip per Call and return
// one response per operation, in operation order.
type Caller interface {
	// Call executes the given operations in a single round trip
	Call(ctx context.Context, ops []Operation) ([]json.RawMessage, error)

	// Delete removes the entities with the given keys
	Delete(ctx context.Context, entityType string, keys []string) error
}

// CreateOp builds a create operation for the given entity type.
func CreateOp(entityType string, data map[string]any) Operation {
	return Operation{
		"action":      "create",
		"entity_type": entityType,
		"entity_data": data,
	}
}

// UploadMetadataOp builds the operation that requests transfer coordinates
// for a component. A parts count of zero requests a single-connection target;
// a positive count requests one signed URL per part plus an upload id.
func UploadMetadataOp(fileName string, fileSize int64, componentID string, parts int) Operation {
	op := Operation{
		"action":       "get_upload_metadata",
		"file_name":    fileName,
		"file_size":    fileSize,
		"component_id": componentID,
	}
	if parts > 0 {
		op["parts"] = parts
	}
	return op
}

// CompleteMultipartOp builds the operation that commits a multipart session.
// The manifest must already be sorted ascending by part number; the remote
// commit API rejects out-of-order manifests.
func CompleteMultipartOp(uploadID, componentID string, manifest []transfertypes.PartResult) Operation {
	parts := make([]map[string]any, 0, len(manifest))
	for _, p := range manifest {
		parts = append(parts, map[string]any{
			"fingerprint": p.Fingerprint,
			"part_number": p.PartNumber,
		})
	}
	return Operation{
		"action":       "complete_multipart_upload",
		"upload_id":    uploadID,
		"component_id": componentID,
		"parts":        parts,
	}
}

// DeleteOp builds a delete operation for the given entity keys.
func DeleteOp(entityType string, keys []string) Operation {
	return Operation{
		"action":      "delete",
		"entity_type": entityType,
		"keys":        keys,
	}
}

// UploadMetadata is the decoded response to UploadMetadataOp.
// Exactly one of the single-target fields (URL/Headers) or the multipart
// fields (URLs/UploadID) is populated.
type UploadMetadata struct {
	// URL is the signed destination URL for a single-connection transfer
	URL string `json:"url"`

	// Headers are destination-required request headers for the single transfer
	Headers map[string]string `json:"headers"`

	// URLs are the signed per-part destinations for a multipart transfer
	URLs []transfertypes.PartDescriptor `json:"urls"`

	// UploadID identifies the multipart session at the destination
	UploadID string `json:"upload_id"`
}

// Multipart reports whether the coordinates describe a multipart session.
func (m *UploadMetadata) Multipart() bool {
	return m.UploadID != "" || len(m.URLs) > 0
}

// DecodeResponse unmarshals one positional response into out.
func DecodeResponse(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	return nil
}
