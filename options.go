package transfer

import (
	"net/http"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/rs/zerolog"

	"github.com/meridianworks/transfer/transfertypes"
)

// Client options

// WithConcurrency sets the active-connection ceiling for multipart transfers.
func WithConcurrency(n int) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.Concurrency = n
	}
}

// WithChunkPolicy overrides the size-tiered chunk policy used to derive
// transfer plans.
func WithChunkPolicy(policy transfertypes.ChunkPolicy) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.ChunkPolicy = policy
	}
}

// WithTimeout sets the per-connection timeout for signed-URL transfers.
// It is ignored when a custom HTTP client is supplied.
func WithTimeout(timeout time.Duration) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client for signed-URL transfers.
func WithHTTPClient(client *http.Client) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger for pipeline events.
func WithLogger(log zerolog.Logger) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.Logger = log
	}
}

// WithFilesystem sets a custom filesystem implementation for UploadFile.
// This is useful for testing with in-memory filesystems.
func WithFilesystem(filesystem fs.Filesystem) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithClock sets the clock that drives retry back-off timers.
func WithClock(clk transfertypes.Clock) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.Clock = clk
	}
}

// WithConnectivity sets the network probe consulted before each part
// connection is opened.
func WithConnectivity(probe transfertypes.Connectivity) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.Connectivity = probe
	}
}

// WithPublisher sets the publisher that receives the component-ready event.
func WithPublisher(publisher transfertypes.Publisher) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.Publisher = publisher
	}
}

// WithComponentEntityType overrides the entity type registered during
// preflight.
func WithComponentEntityType(entityType string) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.ComponentEntityType = entityType
	}
}

// WithLocationEntityType overrides the entity type of the location record
// created on completion.
func WithLocationEntityType(entityType string) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.LocationEntityType = entityType
	}
}

// WithLocationID overrides the storage location recorded on completion.
func WithLocationID(locationID string) transfertypes.Option {
	return func(c *transfertypes.ClientConfig) {
		c.LocationID = locationID
	}
}

// Upload options

// WithComponentID sets the destination component identifier. A fresh UUID is
// generated when none is supplied.
func WithComponentID(id string) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.ComponentID = id
	}
}

// WithContentType sets the payload media type, skipping content detection.
func WithContentType(contentType string) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithProgress sets a tracker that receives byte-level progress updates.
func WithProgress(tracker transfertypes.ProgressTracker) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithProgressFunc sets a callback that receives the transfer percentage.
// The percentage is monotonic and reaches 100 only on completion.
func WithProgressFunc(fn func(percent int)) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.ProgressFunc = fn
	}
}

// WithAbortedFunc sets a callback that runs when the transfer is aborted,
// before the aborted error is surfaced.
func WithAbortedFunc(fn func()) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.AbortedFunc = fn
	}
}

// WithUploadConcurrency overrides the client-level connection ceiling for
// this upload only.
func WithUploadConcurrency(n int) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.Concurrency = n
	}
}

// WithLegacyHTTPClient transfers through the given client over a single
// connection regardless of payload size. Intended for destinations that
// predate multipart coordinates.
func WithLegacyHTTPClient(client *http.Client) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.LegacyHTTPClient = client
	}
}
