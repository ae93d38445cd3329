package restore

import (
	"errors"
	"time"
)

// DefaultPeriod is the host's stat restoration interval.
const DefaultPeriod = 60 * time.Second

// ErrPhaseUnknown is returned while no restore tick has been observed.
var ErrPhaseUnknown = errors.New("restore phase unknown")

// Tracker anchors the host's restore cycle to the most recent observed tick.
// The period is configured, never measured; every tick replaces the anchor.
type Tracker struct {
	period     time.Duration
	lastTickAt time.Time
	anchored   bool
}

// NewTracker creates an unanchored tracker. A non-positive period falls back
// to DefaultPeriod.
func NewTracker(period time.Duration) *Tracker {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Tracker{period: period}
}

// Observe records a restore tick at now.
func (t *Tracker) Observe(now time.Time) {
	t.lastTickAt = now
	t.anchored = true
}

// Anchored reports whether at least one tick has been observed.
func (t *Tracker) Anchored() bool {
	return t.anchored
}

// LastTick returns the anchor. ok is false while unanchored.
func (t *Tracker) LastTick() (time.Time, bool) {
	return t.lastTickAt, t.anchored
}

// Period returns the configured cycle length.
func (t *Tracker) Period() time.Duration {
	return t.period
}

// UntilNextTick returns the forward distance from now to the next tick
// boundary, in (0, period]. A now that falls exactly on a boundary counts
// that tick as already delivered. Works for now before the anchor too.
func (t *Tracker) UntilNextTick(now time.Time) (time.Duration, error) {
	if !t.anchored {
		return 0, ErrPhaseUnknown
	}
	into := now.Sub(t.lastTickAt) % t.period
	if into < 0 {
		into += t.period
	}
	return t.period - into, nil
}

// EstimateExpiry predicts when a boost that needs ticksRemaining more decay
// ticks will be gone: the first decrement lands on the next boundary and each
// further one a full period later.
func (t *Tracker) EstimateExpiry(now time.Time, ticksRemaining int) (time.Time, error) {
	until, err := t.UntilNextTick(now)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(until + t.period*time.Duration(ticksRemaining-1)), nil
}
