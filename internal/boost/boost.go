package boost

import (
	"time"

	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/skill"
)

// Boost is the active level modification on one skill.
type Boost struct {
	Skill skill.ID

	// ExpiresAt is the zero time while the restore phase is unknown.
	ExpiresAt time.Time

	SourceItem item.ID

	// Magnitude is current minus base level at install time, decayed one
	// unit toward zero per restore tick.
	Magnitude int

	// IsNewSource is set when the install replaced a boost from a different
	// item (or there was none), so the display refreshes the icon.
	IsNewSource bool
}

// ExpiryKnown reports whether the boost has a concrete deadline.
func (b Boost) ExpiryKnown() bool {
	return !b.ExpiresAt.IsZero()
}

// Ticks returns how many restore ticks the boost still needs to wear off.
func (b Boost) Ticks() int {
	if b.Magnitude < 0 {
		return -b.Magnitude
	}
	return b.Magnitude
}

// towardZero moves m one unit toward zero without crossing it.
func towardZero(m int) int {
	switch {
	case m > 0:
		return m - 1
	case m < 0:
		return m + 1
	default:
		return 0
	}
}

// State is a boost's position in its lifecycle as seen by Reconcile.
type State string

const (
	StateIndeterminate State = "indeterminate"
	StateActive        State = "active"
	StateExpired       State = "expired"
)

// Status is the per-boost output of a reconcile pass.
type Status struct {
	Boost       Boost
	State       State
	SecondsLeft int // only meaningful for StateActive
}

// TransitionKind names a ledger mutation.
type TransitionKind string

const (
	Installed TransitionKind = "installed"
	Decayed   TransitionKind = "decayed"
	Resolved  TransitionKind = "resolved"
	Expired   TransitionKind = "expired"
)

// Transition records a ledger mutation for logging and the journal.
type Transition struct {
	Kind   TransitionKind
	At     time.Time
	Before *Boost // nil on a fresh install
	After  *Boost // nil once removed
}
