// internal/status/tracker.go
package status

import (
	"errors"
	"math"
	"time"
)

// Tracker owns the health state of one device. It is fed poll outcomes and
// a 1 Hz tick; every method reports whether the snapshot changed so the
// caller knows when to write it out.
//
// A Tracker is not safe for concurrent use.
type Tracker struct {
	snap       Snapshot
	staleAfter time.Duration
	lastPoll   time.Time

	// Disabling reports errors after which the device will not recover.
	Disabling func(error) bool
}

// NewTracker returns a tracker in HealthUnknown. A positive staleAfter marks
// the device stale when no poll outcome arrives for that long.
func NewTracker(staleAfter time.Duration) *Tracker {
	return &Tracker{staleAfter: staleAfter}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe records one poll outcome at now. err is the error of a poll that
// read nothing; failed counts the fields a partial poll could not read and
// fieldErr is the first of their errors.
func (t *Tracker) Observe(now time.Time, err error, failed int, fieldErr error) bool {
	t.lastPoll = now
	if t.snap.Health == HealthDisabled {
		return false
	}

	next := t.snap
	next.FailedFields = clamp16(failed)

	switch {
	case err != nil:
		next.LastErrorCode = ErrorCode(err)
		next.Health = HealthError
		if t.Disabling != nil && t.Disabling(err) {
			next.Health = HealthDisabled
		}
	case failed > 0:
		next.Health = HealthPartial
		next.LastErrorCode = ErrorCode(fieldErr)
	default:
		// Recovery / OK: reset error code and seconds-in-error
		next.Health = HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0
	}

	return t.set(next)
}

// Tick advances the 1 Hz clock: seconds_in_error counts up while the device
// is not OK, and a device that has not been polled within the stale limit
// turns stale.
func (t *Tracker) Tick(now time.Time) bool {
	next := t.snap

	if t.staleAfter > 0 && !t.lastPoll.IsZero() && now.Sub(t.lastPoll) > t.staleAfter &&
		(next.Health == HealthOK || next.Health == HealthPartial) {
		next.Health = HealthStale
	}

	// seconds_in_error MUST NOT wrap
	if next.Health != HealthOK && next.SecondsInError < math.MaxUint16 {
		next.SecondsInError++
	}

	return t.set(next)
}

func (t *Tracker) set(next Snapshot) bool {
	if next == t.snap {
		return false
	}
	t.snap = next
	return true
}

func clamp16(n int) uint16 {
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	if n < 0 {
		return 0
	}
	return uint16(n)
}

// IsAny reports whether err matches one of targets. It is a convenience for
// building Tracker.Disabling.
func IsAny(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}
