package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianworks/transfer/transfertypes"
)

// TestDefaultChunkPolicy tests the size-tiered chunk policy boundaries.
func TestDefaultChunkPolicy(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		wantChunk int64
	}{
		{"zero", 0, 5 * mib},
		{"small_file", 10 * mib, 5 * mib},
		{"exactly_one_gib", 1 * gib, 5 * mib},
		{"just_over_one_gib", 1*gib + 1, 25 * mib},
		{"exactly_eight_gib", 8 * gib, 25 * mib},
		{"just_over_eight_gib", 8*gib + 1, 50 * mib},
		{"huge", 100 * gib, 50 * mib},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantChunk, DefaultChunkPolicy(tt.size))
		})
	}
}

// TestDerive tests strategy selection across the single/multipart boundary.
func TestDerive(t *testing.T) {
	tests := []struct {
		name         string
		size         int64
		forceSingle  bool
		wantStrategy transfertypes.Strategy
		wantParts    int
	}{
		{"empty_payload", 0, false, transfertypes.StrategySingle, 0},
		{"one_chunk", 5 * mib, false, transfertypes.StrategySingle, 0},
		{"two_chunks", 10 * mib, false, transfertypes.StrategySingle, 0},
		{"two_chunks_and_one_byte", 10*mib + 1, false, transfertypes.StrategyMultipart, 3},
		{"three_chunks", 15 * mib, false, transfertypes.StrategyMultipart, 3},
		{"uneven_tail", 22 * mib, false, transfertypes.StrategyMultipart, 5},
		{"forced_single_large", 200 * mib, true, transfertypes.StrategySingle, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Derive(tt.size, nil, tt.forceSingle)
			assert.Equal(t, tt.wantStrategy, p.Strategy)
			assert.Equal(t, tt.wantParts, p.PartCount)
		})
	}
}

// TestDerive_CustomPolicy tests that a caller-supplied policy drives the
// part count, and that a broken policy falls back to the default tiers.
func TestDerive_CustomPolicy(t *testing.T) {
	fixed := func(int64) int64 { return 1 * mib }

	p := Derive(10*mib, fixed, false)
	assert.Equal(t, transfertypes.StrategyMultipart, p.Strategy)
	assert.Equal(t, 10, p.PartCount)
	assert.Equal(t, 1*mib, p.ChunkSize)

	broken := func(int64) int64 { return 0 }
	p = Derive(10*mib, broken, false)
	assert.Equal(t, 5*mib, p.ChunkSize)
}

// TestRange tests byte-range computation including final-part truncation.
func TestRange(t *testing.T) {
	chunk := int64(4)
	size := int64(10)

	tests := []struct {
		name       string
		part       int
		wantOffset int64
		wantLength int64
	}{
		{"first", 1, 0, 4},
		{"middle", 2, 4, 4},
		{"truncated_tail", 3, 8, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, length := Range(chunk, tt.part, size)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLength, length)
		})
	}
}
