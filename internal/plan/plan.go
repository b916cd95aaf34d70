// Package plan derives the transfer strategy from the declared payload size.
//
// The selector is deliberately dumb: it runs once per transfer, before any
// network call, and everything downstream treats its output as immutable.
package plan

import (
	"github.com/meridianworks/transfer/transfertypes"
)

const (
	mib = int64(1) << 20
	gib = int64(1) << 30
)

// maxSinglePartCount is the part count at or below which multipart overhead
// is unjustified and the transfer collapses to a single connection.
const maxSinglePartCount = 2

// DefaultChunkPolicy is the size-tiered chunk policy used when the caller
// does not supply one. Larger payloads get larger chunks so the part count
// stays well under destination limits.
func DefaultChunkPolicy(size int64) int64 {
	switch {
	case size <= 1*gib:
		return 5 * mib
	case size <= 8*gib:
		return 25 * mib
	default:
		return 50 * mib
	}
}

// Derive computes the transfer plan for a payload of the declared size.
//
// The part count is ceil(size/chunkSize). Plans with at most two parts
// collapse to the single strategy. forceSingle selects the single strategy
// regardless of size; callers use it for the legacy single-connection handle,
// which cannot compose with part-level retry or per-connection cancellation.
func Derive(size int64, policy transfertypes.ChunkPolicy, forceSingle bool) transfertypes.TransferPlan {
	if policy == nil {
		policy = DefaultChunkPolicy
	}
	chunk := policy(size)
	if chunk <= 0 {
		chunk = DefaultChunkPolicy(size)
	}

	count := int((size + chunk - 1) / chunk)
	if forceSingle || count <= maxSinglePartCount {
		return transfertypes.TransferPlan{
			Strategy:  transfertypes.StrategySingle,
			ChunkSize: chunk,
		}
	}

	return transfertypes.TransferPlan{
		Strategy:  transfertypes.StrategyMultipart,
		ChunkSize: chunk,
		PartCount: count,
	}
}

// Range returns the byte range [offset, offset+length) covered by the given
// 1-based part number under the chunk size. The final part is truncated to
// the declared size.
func Range(chunkSize int64, partNumber int, size int64) (offset, length int64) {
	offset = int64(partNumber-1) * chunkSize
	length = chunkSize
	if offset+length > size {
		length = size - offset
	}
	return offset, length
}
