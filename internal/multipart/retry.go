package multipart

import (
	"context"
	"time"

	"github.com/meridianworks/transfer/transfertypes"
)

const (
	// maxRetries is the per-part retry budget. One pathological part burning
	// its budget does not touch the budgets of other parts.
	maxRetries = 6

	// retryBaseDelay is the back-off unit; attempt n waits 2^n times this.
	retryBaseDelay = 100 * time.Millisecond
)

// backoffDelay returns the delay before the given retry attempt (1-based).
// No jitter is applied.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * retryBaseDelay
}

// scheduleRetry re-enqueues a failed part after its back-off delay and
// resumes the drive step. Offline failures reuse the first-attempt delay
// without consuming budget, so a down network polls instead of spinning.
func (s *Session) scheduleRetry(ctx context.Context, pd transfertypes.PartDescriptor, attempt int, out outcome) {
	delay := backoffDelay(1)
	if out.countsAttempt {
		delay = backoffDelay(attempt)
	}

	s.cfg.Logger.Debug().
		Str("component_id", s.cfg.ComponentID).
		Int("part", pd.PartNumber).
		Int("attempt", attempt).
		Dur("delay", delay).
		Err(out.err).
		Msg("scheduling part retry")

	go func() {
		select {
		case <-s.cfg.Clock.After(delay):
		case <-ctx.Done():
			return
		}

		s.mu.Lock()
		if s.state != StateDraining {
			s.mu.Unlock()
			return
		}
		s.backlog.push(pd.PartNumber)
		s.mu.Unlock()
		s.drive(ctx)
	}()
}
