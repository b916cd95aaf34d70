package multipart

import (
	"context"
	"io"
	"net/http"
	"strings"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/internal/plan"
	"github.com/meridianworks/transfer/internal/progress"
	"github.com/meridianworks/transfer/transfertypes"
)

// fingerprintHeader carries the opaque per-part integrity token returned by
// the storage endpoint. The value arrives quoted and is unquoted before
// storage.
const fingerprintHeader = "ETag"

// outcomeKind tags the terminal outcome of one part attempt.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetryable
	outcomeFatal
)

// outcome is the tagged result of one part attempt, consumed by settle.
type outcome struct {
	kind   outcomeKind
	result transfertypes.PartResult
	bytes  int64
	err    error

	// countsAttempt is false for failures detected before a connection was
	// opened (offline probe); those do not consume the part's retry budget.
	countsAttempt bool
}

// executePart transfers exactly one byte range to its signed URL. Sends have
// replace semantics at the destination, so a retried send overwriting the
// same range is safe. The part's in-flight byte counter is updated as the
// body drains and reset by the caller on failure.
func (s *Session) executePart(ctx context.Context, pd transfertypes.PartDescriptor) outcome {
	offset, length := plan.Range(s.cfg.ChunkSize, pd.PartNumber, s.cfg.Size)

	if s.cfg.Connectivity != nil && !s.cfg.Connectivity.Online() {
		return outcome{
			kind: outcomeRetryable,
			err: xferrors.NewError("uploadPart", xferrors.ErrNetworkOffline).
				WithComponent(s.cfg.ComponentID),
			countsAttempt: false,
		}
	}

	section := io.NewSectionReader(s.payload, offset, length)
	counted := progress.NewCountingReader(section, func(sent int64) {
		s.cfg.Aggregator.InFlight(pd.PartNumber, sent)
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, pd.SignedURL, counted)
	if err != nil {
		return outcome{
			kind: outcomeFatal,
			err:  xferrors.NewError("uploadPart", err).WithComponent(s.cfg.ComponentID),
		}
	}
	req.ContentLength = length

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{
				kind: outcomeFatal,
				err: xferrors.NewError("uploadPart", xferrors.ErrUploadAborted).
					WithComponent(s.cfg.ComponentID),
			}
		}
		// Connection failures and per-connection timeouts are both transient.
		return outcome{
			kind: outcomeRetryable,
			err: xferrors.NewError("uploadPart", xferrors.ErrChunkUploadFailed).
				WithComponent(s.cfg.ComponentID).
				WithMessage(err.Error()),
			countsAttempt: true,
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return outcome{
			kind: outcomeRetryable,
			err: xferrors.NewError("uploadPart", xferrors.ErrChunkUploadFailed).
				WithComponent(s.cfg.ComponentID).
				WithStatus(resp.StatusCode),
			countsAttempt: true,
		}
	}

	fingerprint := strings.Trim(resp.Header.Get(fingerprintHeader), `"`)
	if fingerprint == "" {
		return outcome{
			kind: outcomeRetryable,
			err: xferrors.NewError("uploadPart", xferrors.ErrChunkUploadFailed).
				WithComponent(s.cfg.ComponentID).
				WithMessage("response is missing the fingerprint header"),
			countsAttempt: true,
		}
	}

	return outcome{
		kind: outcomeSuccess,
		result: transfertypes.PartResult{
			PartNumber:  pd.PartNumber,
			Fingerprint: fingerprint,
		},
		bytes: length,
	}
}
