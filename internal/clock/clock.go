// Package clock provides the wall-clock implementation of the scheduler
// abstraction used by the retry governor.
package clock

import (
	"time"

	"github.com/meridianworks/transfer/transfertypes"
)

// Real is the wall clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// After waits for d on a real timer.
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

var _ transfertypes.Clock = Real{}
