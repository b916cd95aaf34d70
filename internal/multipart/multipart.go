// Package multipart implements the chunked transfer pipeline: a bounded-
// concurrency scheduler over pending byte-range parts, a per-part executor
// with bounded exponential retry, and session state shared between them.
//
// Scheduling follows a drive-step model. The drive step is re-entrant: it is
// invoked once on start and again after every part settles, and each
// invocation dispatches parts until the active-connection ceiling is reached
// or the backlog is empty. Parts may dispatch and complete in any order; the
// committed results are re-sorted before the manifest is built.
package multipart

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	xferrors "github.com/meridianworks/transfer/errors"
	"github.com/meridianworks/transfer/internal/progress"
	"github.com/meridianworks/transfer/transfertypes"
)

// State is the lifecycle state of a transfer session.
type State int

// Session states
const (
	StateIdle State = iota
	StateDraining
	StateCompleted
	StateAborted
)

// DefaultCeiling is the default active-connection ceiling. Six connections
// balance throughput against per-origin connection limits.
const DefaultCeiling = 6

// Config carries everything a session needs to drain its backlog.
type Config struct {
	ComponentID  string
	UploadID     string
	Size         int64
	ChunkSize    int64
	PartCount    int
	Ceiling      int
	Client       *http.Client
	Clock        transfertypes.Clock
	Connectivity transfertypes.Connectivity
	Aggregator   *progress.Aggregator
	Logger       zerolog.Logger
}

// Session owns the backlog of undispatched parts, the committed result set,
// the active-connection registry and the retry bookkeeping for one multipart
// transfer. All shared state is serialized through a single mutex; the part
// executors themselves only touch the session via settle.
type Session struct {
	cfg     Config
	payload io.ReaderAt

	mu       sync.Mutex
	state    State
	backlog  *backlog
	active   map[int]context.CancelFunc
	results  map[int]transfertypes.PartResult
	attempts map[int]int
	err      error

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession creates a session over the given payload and part descriptors.
func NewSession(cfg Config, payload io.ReaderAt, parts []transfertypes.PartDescriptor) *Session {
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = DefaultCeiling
	}
	return &Session{
		cfg:      cfg,
		payload:  payload,
		backlog:  newBacklog(parts),
		active:   make(map[int]context.CancelFunc),
		results:  make(map[int]transfertypes.PartResult),
		attempts: make(map[int]int),
		done:     make(chan struct{}),
	}
}

// Run drains the backlog to completion or failure. Cancelling ctx aborts
// every registry-tracked connection and returns ErrUploadAborted. On success
// the returned manifest is sorted ascending by part number.
func (s *Session) Run(ctx context.Context) ([]transfertypes.PartResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.state = StateDraining
	s.mu.Unlock()

	s.drive(ctx)

	select {
	case <-s.done:
	case <-ctx.Done():
		s.abortWith(xferrors.NewError("upload", xferrors.ErrUploadAborted).
			WithComponent(s.cfg.ComponentID))
		<-s.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.manifestLocked(), nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveConnections returns the size of the active-connection registry.
func (s *Session) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// drive dispatches pending parts until the ceiling applies backpressure or
// the backlog runs dry. It transitions the session to Completed once every
// part has committed and no connections remain active.
func (s *Session) drive(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.state != StateDraining {
			s.mu.Unlock()
			return
		}
		if len(s.active) >= s.cfg.Ceiling {
			s.mu.Unlock()
			return
		}

		pd, ok := s.backlog.pop()
		if !ok {
			if len(s.results) == s.cfg.PartCount && len(s.active) == 0 {
				s.state = StateCompleted
				s.mu.Unlock()
				s.finish()
				return
			}
			// Parts are still in flight or awaiting a retry timer.
			s.mu.Unlock()
			return
		}

		partCtx, cancel := context.WithCancel(ctx)
		s.active[pd.PartNumber] = cancel
		s.mu.Unlock()

		go func(pd transfertypes.PartDescriptor) {
			s.settle(ctx, pd, s.executePart(partCtx, pd))
		}(pd)
	}
}

// settle consumes a part's terminal outcome. It releases the part's
// registry entry on every path, then commits, reschedules or aborts.
func (s *Session) settle(ctx context.Context, pd transfertypes.PartDescriptor, out outcome) {
	s.mu.Lock()
	if cancel, ok := s.active[pd.PartNumber]; ok {
		cancel()
		delete(s.active, pd.PartNumber)
	}

	if s.state != StateDraining {
		remaining := len(s.active)
		s.mu.Unlock()
		if remaining == 0 {
			s.finish()
		}
		return
	}

	switch out.kind {
	case outcomeSuccess:
		s.results[pd.PartNumber] = out.result
		s.mu.Unlock()
		s.cfg.Aggregator.Commit(pd.PartNumber, out.bytes)
		s.drive(ctx)

	case outcomeRetryable:
		attempt := s.attempts[pd.PartNumber]
		if out.countsAttempt {
			attempt++
			s.attempts[pd.PartNumber] = attempt
		}
		s.mu.Unlock()
		s.cfg.Aggregator.Clear(pd.PartNumber)

		if attempt > maxRetries {
			s.abortWith(xferrors.NewError("uploadPart", xferrors.ErrRetryExhausted).
				WithComponent(s.cfg.ComponentID).
				WithMessage(out.err.Error()))
			return
		}
		s.scheduleRetry(ctx, pd, attempt, out)

	default:
		s.mu.Unlock()
		s.cfg.Aggregator.Clear(pd.PartNumber)
		s.abortWith(out.err)
	}
}

// abortWith moves the session to Aborted at most once, records the fatal
// error and cancels every registry-tracked connection.
func (s *Session) abortWith(err error) {
	s.mu.Lock()
	if s.state == StateAborted || s.state == StateCompleted {
		s.mu.Unlock()
		return
	}
	s.state = StateAborted
	s.err = err
	for _, cancel := range s.active {
		cancel()
	}
	remaining := len(s.active)
	s.mu.Unlock()

	s.cfg.Logger.Debug().
		Str("component_id", s.cfg.ComponentID).
		Int("cancelled_connections", remaining).
		Msg("session aborted")

	if remaining == 0 {
		s.finish()
	}
}

func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// manifestLocked builds the committed manifest sorted ascending by part
// number, as the remote commit API requires.
func (s *Session) manifestLocked() []transfertypes.PartResult {
	manifest := make([]transfertypes.PartResult, 0, len(s.results))
	for _, r := range s.results {
		manifest = append(manifest, r)
	}
	sort.Slice(manifest, func(i, j int) bool {
		return manifest[i].PartNumber < manifest[j].PartNumber
	})
	return manifest
}

// backlog is a bounded FIFO work queue over an index-addressed arena of part
// descriptors. The arena is allocated once; enqueueing a part stores only its
// part number, so a retried part re-enters the queue without copying its
// descriptor.
type backlog struct {
	arena []transfertypes.PartDescriptor
	queue []int
}

func newBacklog(parts []transfertypes.PartDescriptor) *backlog {
	arena := make([]transfertypes.PartDescriptor, len(parts))
	for _, pd := range parts {
		arena[pd.PartNumber-1] = pd
	}
	queue := make([]int, 0, len(parts))
	for n := 1; n <= len(parts); n++ {
		queue = append(queue, n)
	}
	return &backlog{arena: arena, queue: queue}
}

// pop removes and returns the next pending part. A part is removed from the
// backlog before dispatch, which is what keeps commits unique per part number.
func (b *backlog) pop() (transfertypes.PartDescriptor, bool) {
	if len(b.queue) == 0 {
		return transfertypes.PartDescriptor{}, false
	}
	n := b.queue[0]
	b.queue = b.queue[1:]
	return b.arena[n-1], true
}

func (b *backlog) push(partNumber int) {
	b.queue = append(b.queue, partNumber)
}
