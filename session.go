package transfer

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/internal/completion"
	"github.com/meridianworks/transfer/internal/multipart"
	"github.com/meridianworks/transfer/internal/plan"
	"github.com/meridianworks/transfer/internal/preflight"
	"github.com/meridianworks/transfer/internal/progress"
	"github.com/meridianworks/transfer/internal/single"
	"github.com/meridianworks/transfer/internal/validation"
	"github.com/meridianworks/transfer/transfertypes"
)

// contentSniffLen is how many leading bytes are fed to content detection.
const contentSniffLen = 3072

// Session is a handle on one running upload. Exactly one of the terminal
// outcomes is reached: the result becomes available through Wait, or the
// session fails with an error and the component registered during preflight
// is deleted.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result *transfertypes.UploadResult
	err    error
}

// Done returns a channel that is closed when the session reaches a terminal
// state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Abort cancels the session. In-flight part connections are torn down, the
// registered component is deleted, and Wait returns ErrUploadAborted. Calling
// Abort after the session finished is a no-op.
func (s *Session) Abort() {
	s.cancel()
}

// Wait blocks until the session reaches a terminal state or ctx is done.
func (s *Session) Wait(ctx context.Context) (*transfertypes.UploadResult, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

func (s *Session) finish(result *transfertypes.UploadResult, err error) {
	s.mu.Lock()
	s.result = result
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

// Start begins an upload and returns a handle on the running session.
// Validation runs synchronously, so an invalid request fails here before any
// network traffic; everything after that happens on a background goroutine.
//
// payload should implement io.ReaderAt for large payloads; plain readers are
// buffered in memory before the transfer starts.
func (c *Client) Start(
	ctx context.Context,
	name string,
	payload io.Reader,
	size int64,
	opts ...transfertypes.UploadOption,
) (*Session, error) {
	var optCfg transfertypes.UploadOptionConfig
	for _, opt := range opts {
		opt(&optCfg)
	}

	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateSize(size); err != nil {
		return nil, err
	}
	if err := validation.ValidateComponentID(optCfg.ComponentID); err != nil {
		return nil, err
	}
	if optCfg.Concurrency < 0 {
		return nil, xferrors.NewError("start", xferrors.ErrValidation).
			WithMessage("concurrency must be at least 1")
	}

	runCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		result, err := c.run(runCtx, name, payload, size, optCfg)
		sess.finish(result, err)
	}()

	return sess, nil
}

// run drives one upload end to end: preflight, transfer, completion. Any
// failure past preflight triggers exactly one compensating delete of the
// registered component.
func (c *Client) run(
	ctx context.Context,
	name string,
	payload io.Reader,
	size int64,
	optCfg transfertypes.UploadOptionConfig,
) (*transfertypes.UploadResult, error) {
	started := c.cfg.Clock.Now()

	reader, err := materialize(payload, size)
	if err != nil {
		return nil, xferrors.NewError("readPayload", err)
	}

	componentID := optCfg.ComponentID
	if componentID == "" {
		componentID = uuid.NewString()
	}
	contentType := optCfg.ContentType
	if contentType == "" {
		contentType = detectContentType(reader, name, size)
	}

	forceSingle := optCfg.LegacyHTTPClient != nil
	if forceSingle {
		c.log.Warn().
			Str("component_id", componentID).
			Msg("legacy transfer handle supplied; forcing single-connection strategy")
	}
	pl := plan.Derive(size, c.cfg.ChunkPolicy, forceSingle)

	log := c.log.With().
		Str("component_id", componentID).
		Str("strategy", string(pl.Strategy)).
		Logger()
	log.Info().
		Str("name", name).
		Int64("size", size).
		Int("parts", pl.PartCount).
		Msg("starting upload")

	agg := progress.NewAggregator(size, optCfg.ProgressTracker, optCfg.ProgressFunc)
	comp := completion.New(c.caller, c.cfg.Publisher, log)

	// The compensating delete runs at most once, on the background context:
	// the cancellation that failed the transfer must not cancel the cleanup.
	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			_ = comp.Cleanup(context.Background(), c.cfg.ComponentEntityType, componentID)
		})
	}
	fail := func(err error) (*transfertypes.UploadResult, error) {
		if ctx.Err() != nil && !xferrors.IsAborted(err) {
			err = xferrors.NewError("upload", xferrors.ErrUploadAborted).
				WithComponent(componentID)
		}
		cleanup()
		if xferrors.IsAborted(err) && optCfg.AbortedFunc != nil {
			optCfg.AbortedFunc()
		}
		agg.Error(err)
		log.Error().Err(err).Msg("upload failed")
		return nil, err
	}

	target, err := preflight.New(c.caller, log).Run(ctx, preflight.Request{
		Name:        name,
		ContentType: contentType,
		Size:        size,
		ComponentID: componentID,
		EntityType:  c.cfg.ComponentEntityType,
		PartCount:   pl.PartCount,
	})
	if err != nil {
		// Registration may have partially succeeded remotely.
		return fail(err)
	}

	var (
		uploadID string
		manifest []transfertypes.PartResult
	)
	switch pl.Strategy {
	case transfertypes.StrategySingle:
		httpClient := c.httpClient
		if optCfg.LegacyHTTPClient != nil {
			httpClient = optCfg.LegacyHTTPClient
		}
		body := io.NewSectionReader(reader, 0, size)
		if err := single.New(httpClient, agg, log).Run(ctx, componentID, target.Single, body, size); err != nil {
			return fail(err)
		}

	case transfertypes.StrategyMultipart:
		ceiling := c.cfg.Concurrency
		if optCfg.Concurrency > 0 {
			ceiling = optCfg.Concurrency
		}
		uploadID = target.Multipart.UploadID
		sess := multipart.NewSession(multipart.Config{
			ComponentID:  componentID,
			UploadID:     uploadID,
			Size:         size,
			ChunkSize:    pl.ChunkSize,
			PartCount:    pl.PartCount,
			Ceiling:      ceiling,
			Client:       c.httpClient,
			Clock:        c.cfg.Clock,
			Connectivity: c.cfg.Connectivity,
			Aggregator:   agg,
			Logger:       log,
		}, reader, target.Multipart.Parts)
		manifest, err = sess.Run(ctx)
		if err != nil {
			return fail(err)
		}
	}

	if err := comp.Complete(ctx, completion.Request{
		ComponentID:        componentID,
		Name:               name,
		Size:               size,
		UploadID:           uploadID,
		Manifest:           manifest,
		LocationEntityType: c.cfg.LocationEntityType,
		LocationID:         c.cfg.LocationID,
	}); err != nil {
		return fail(err)
	}

	agg.Complete()
	log.Info().Int("parts", len(manifest)).Msg("upload complete")

	return &transfertypes.UploadResult{
		ComponentID: componentID,
		Name:        name,
		Size:        size,
		Strategy:    pl.Strategy,
		Parts:       len(manifest),
		Duration:    c.cfg.Clock.Now().Sub(started),
	}, nil
}

// materialize exposes the payload through random access so byte-range parts
// can read independently. Readers without ReadAt are buffered up front.
func materialize(payload io.Reader, size int64) (io.ReaderAt, error) {
	if ra, ok := payload.(io.ReaderAt); ok {
		return ra, nil
	}
	data, err := io.ReadAll(io.LimitReader(payload, size))
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// detectContentType sniffs the media type from the leading payload bytes,
// falling back to the name's extension and finally to application/octet-stream.
func detectContentType(reader io.ReaderAt, name string, size int64) string {
	head := make([]byte, min(int64(contentSniffLen), size))
	n, err := reader.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		n = 0
	}
	if n > 0 {
		if mt := mimetype.Detect(head[:n]); mt.String() != "application/octet-stream" {
			return mt.String()
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
