// Package single implements the whole-payload transfer over one connection.
package single

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/internal/preflight"
	"github.com/meridianworks/transfer/internal/progress"
)

// Executor sends the entire payload to the signed URL obtained by preflight.
type Executor struct {
	client *http.Client
	agg    *progress.Aggregator
	log    zerolog.Logger
}

// New creates a single-transfer executor.
func New(client *http.Client, agg *progress.Aggregator, log zerolog.Logger) *Executor {
	return &Executor{client: client, agg: agg, log: log}
}

// Run transfers the payload to the target. The destination-supplied headers
// are applied as-is except for any content-length header, which is dropped in
// favor of the computed value. Cancellation surfaces as ErrUploadAborted; a
// destination status of 400 or above surfaces as ErrCreateComponentFailed
// carrying the status code.
func (e *Executor) Run(
	ctx context.Context,
	componentID string,
	target *preflight.SingleTarget,
	body io.Reader,
	size int64,
) error {
	counted := progress.NewCountingReader(body, func(sent int64) {
		e.agg.InFlight(1, sent)
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, counted)
	if err != nil {
		return xferrors.NewError("upload", err).WithComponent(componentID)
	}
	for k, v := range target.Headers {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		req.Header.Set(k, v)
	}
	req.ContentLength = size

	e.log.Debug().
		Str("component_id", componentID).
		Int64("size", size).
		Msg("starting single-connection transfer")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return xferrors.NewError("upload", xferrors.ErrUploadAborted).
				WithComponent(componentID)
		}
		return xferrors.NewError("upload", err).WithComponent(componentID)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return xferrors.NewError("upload", xferrors.ErrCreateComponentFailed).
			WithComponent(componentID).
			WithStatus(resp.StatusCode)
	}

	e.agg.Commit(1, size)
	return nil
}
