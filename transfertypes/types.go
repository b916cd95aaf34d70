// Package transfertypes provides shared type definitions for the transfer module.
package transfertypes

import (
	"context"
	"net/http"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/rs/zerolog"
)

// Strategy identifies how a payload is moved to the destination.
type Strategy string

// Transfer strategies
const (
	// StrategySingle transfers the whole payload over one connection
	StrategySingle Strategy = "single"

	// StrategyMultipart transfers the payload as independently retried byte-range parts
	StrategyMultipart Strategy = "multipart"
)

// ChunkPolicy maps a declared payload size to the chunk size used for
// multipart transfers. Policies are size-tiered so very large payloads use
// larger chunks and stay under destination part-count limits.
type ChunkPolicy func(size int64) int64

// TransferPlan is the strategy decision derived once from the declared size.
type TransferPlan struct {
	// Strategy is the selected transfer strategy
	Strategy Strategy

	// ChunkSize is the part size in bytes (multipart only)
	ChunkSize int64

	// PartCount is the number of byte-range parts (0 for single transfers)
	PartCount int
}

// PartDescriptor identifies one pending byte range and its signed destination URL.
type PartDescriptor struct {
	// PartNumber is the 1-based part index; part numbers are unique and dense 1..N
	PartNumber int `json:"part_number"`

	// SignedURL is the pre-signed destination URL for this part
	SignedURL string `json:"signed_url"`
}

// PartResult records the committed outcome of one part transfer.
type PartResult struct {
	// PartNumber is the 1-based part index
	PartNumber int `json:"part_number"`

	// Fingerprint is the opaque integrity token returned by the storage endpoint
	Fingerprint string `json:"fingerprint"`
}

// UploadResult contains the result of a completed transfer.
type UploadResult struct {
	// ComponentID is the destination component identifier
	ComponentID string

	// Name is the display name registered for the component
	Name string

	// Size is the number of bytes transferred
	Size int64

	// Strategy is the transfer strategy that was used
	Strategy Strategy

	// Parts is the number of parts committed (0 for single transfers)
	Parts int

	// Duration is how long the transfer took
	Duration time.Duration
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// Clock abstracts time for the retry scheduler so back-off timing is
// deterministically testable.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// After returns a channel that delivers the current time after d has elapsed
	After(d time.Duration) <-chan time.Time
}

// Connectivity reports whether local network connectivity is known to be up.
// The per-part executor consults it before opening a connection so a known-down
// network fails fast instead of timing out.
type Connectivity interface {
	// Online reports whether the network is believed to be reachable
	Online() bool
}

// Event is a domain event published after a transfer completes.
type Event struct {
	// Topic identifies the event stream
	Topic string `json:"topic"`

	// Data carries the event payload
	Data map[string]any `json:"data"`
}

// Publisher delivers domain events to interested listeners. Publishing is
// best effort; the pipeline never fails a completed transfer over it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards all events.
type NopPublisher struct{}

// Publish implements Publisher by doing nothing.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Option is a functional option for configuring the transfer client.
type Option func(*ClientConfig)

// UploadOption is a functional option for configuring a single upload.
type UploadOption func(*UploadOptionConfig)

// ClientConfig holds configuration for the transfer client.
type ClientConfig struct {
	// Concurrency is the active-connection ceiling for multipart transfers
	Concurrency int

	// ChunkPolicy maps declared size to chunk size; nil selects the default tiers
	ChunkPolicy ChunkPolicy

	// Timeout applies per connection; zero means no timeout
	Timeout time.Duration

	// HTTPClient overrides the client used for signed-URL transfers
	HTTPClient *http.Client

	// Logger receives structured pipeline events; defaults to a no-op logger
	Logger zerolog.Logger

	// Filesystem backs UploadFile; defaults to the OS filesystem
	Filesystem fs.Filesystem

	// Clock drives retry back-off timers; defaults to the wall clock
	Clock Clock

	// Connectivity is the pre-connection network probe; defaults to always online
	Connectivity Connectivity

	// Publisher receives the component-ready event; defaults to a no-op publisher
	Publisher Publisher

	// ComponentEntityType is the entity type registered during preflight
	ComponentEntityType string

	// LocationEntityType is the entity type of the location record created on completion
	LocationEntityType string

	// LocationID identifies the storage location recorded on completion
	LocationID string
}

// UploadOptionConfig holds per-upload configuration assembled from UploadOptions.
type UploadOptionConfig struct {
	// ComponentID is the caller-supplied destination identifier; generated when empty
	ComponentID string

	// ContentType is the payload media type; detected from content when empty
	ContentType string

	// ProgressTracker receives byte-level progress updates
	ProgressTracker ProgressTracker

	// ProgressFunc receives the clamped monotonic percentage
	ProgressFunc func(percent int)

	// AbortedFunc runs before the aborted error is surfaced when the
	// transfer is cancelled
	AbortedFunc func()

	// Concurrency overrides the client-level connection ceiling for this upload
	Concurrency int

	// LegacyHTTPClient forces the single-connection strategy regardless of size
	LegacyHTTPClient *http.Client
}
