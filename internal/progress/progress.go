// Package progress merges committed and in-flight byte counts from many
// simultaneously in-flight part transfers into one monotonic percentage.
package progress

import (
	"sync"

	"github.com/meridianworks/transfer/transfertypes"
)

// Aggregator tracks per-part in-flight byte counters and a cumulative
// committed counter. The reported percentage never regresses and only
// reaches 100 once every byte has committed.
//
// All methods are safe for concurrent use by the part executors.
type Aggregator struct {
	mu          sync.Mutex
	total       int64
	committed   int64
	inflight    map[int]int64
	lastPercent int

	tracker transfertypes.ProgressTracker
	fn      func(percent int)
}

// NewAggregator creates an aggregator for a payload of the declared size.
// Both tracker and fn may be nil.
func NewAggregator(total int64, tracker transfertypes.ProgressTracker, fn func(int)) *Aggregator {
	return &Aggregator{
		total:    total,
		inflight: make(map[int]int64),
		tracker:  tracker,
		fn:       fn,
	}
}

// InFlight records the bytes sent so far for a part whose transfer is still
// in flight. The value replaces the part's previous counter.
func (a *Aggregator) InFlight(part int, sent int64) {
	a.mu.Lock()
	a.inflight[part] = sent
	a.emitLocked()
	a.mu.Unlock()
}

// Clear drops the in-flight counter for a part whose attempt failed, so a
// retried send starts counting from zero again.
func (a *Aggregator) Clear(part int) {
	a.mu.Lock()
	delete(a.inflight, part)
	a.emitLocked()
	a.mu.Unlock()
}

// Commit moves a part's bytes from in-flight to the cumulative committed
// counter. The in-flight entry is cleared so the bytes are never counted twice.
func (a *Aggregator) Commit(part int, size int64) {
	a.mu.Lock()
	delete(a.inflight, part)
	a.committed += size
	a.emitLocked()
	a.mu.Unlock()
}

// Percent returns the last reported percentage.
func (a *Aggregator) Percent() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastPercent
}

// Committed returns the cumulative committed byte count.
func (a *Aggregator) Committed() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.committed
}

// Complete marks the transfer finished, forces the percentage to 100 and
// notifies the tracker.
func (a *Aggregator) Complete() {
	a.mu.Lock()
	a.committed = a.total
	a.inflight = make(map[int]int64)
	if a.lastPercent < 100 {
		a.lastPercent = 100
		if a.fn != nil {
			a.fn(100)
		}
		if a.tracker != nil {
			a.tracker.Update(a.total, a.total)
		}
	}
	tracker := a.tracker
	a.mu.Unlock()

	if tracker != nil {
		tracker.Complete()
	}
}

// Error notifies the tracker that the transfer failed.
func (a *Aggregator) Error(err error) {
	a.mu.Lock()
	tracker := a.tracker
	a.mu.Unlock()

	if tracker != nil {
		tracker.Error(err)
	}
}

// emitLocked recomputes the percentage and notifies observers if it moved.
// The percentage is floor(min(committed+inflight, total)/total*100), clamped
// so it never regresses, and held below 100 until everything has committed.
func (a *Aggregator) emitLocked() {
	if a.total <= 0 {
		return
	}

	sent := a.committed
	for _, n := range a.inflight {
		sent += n
	}
	if sent > a.total {
		sent = a.total
	}

	pct := int(sent * 100 / a.total)
	if pct >= 100 && a.committed < a.total {
		pct = 99
	}
	if pct <= a.lastPercent {
		return
	}
	a.lastPercent = pct

	if a.fn != nil {
		a.fn(pct)
	}
	if a.tracker != nil {
		a.tracker.Update(sent, a.total)
	}
}
