package boost

import (
	"sort"
	"time"

	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/skill"
)

// Estimator predicts boost expiry from the restore cycle.
// *restore.Tracker is the production implementation.
type Estimator interface {
	EstimateExpiry(now time.Time, ticksRemaining int) (time.Time, error)
}

// Ledger is the authoritative set of active boosts, at most one per skill.
// It is not safe for concurrent use; the host serializes all callbacks.
type Ledger struct {
	boosts    map[skill.ID]*Boost
	estimator Estimator
}

// NewLedger creates an empty ledger reading expiry estimates from est.
func NewLedger(est Estimator) *Ledger {
	return &Ledger{
		boosts:    make(map[skill.ID]*Boost),
		estimator: est,
	}
}

// Install records a boost on id, replacing any existing one. The expiry is
// left unknown when the restore phase has not been observed yet.
func (l *Ledger) Install(now time.Time, id skill.ID, magnitude int, source item.ID) Transition {
	existing, had := l.boosts[id]

	b := &Boost{
		Skill:       id,
		SourceItem:  source,
		Magnitude:   magnitude,
		IsNewSource: !had || existing.SourceItem != source,
	}
	b.ExpiresAt = l.estimate(now, b.Ticks())

	tr := Transition{Kind: Installed, At: now, After: copyOf(b)}
	if had {
		tr.Before = copyOf(existing)
	}
	l.boosts[id] = b
	return tr
}

// DecayOneTick applies one observed restore tick: every magnitude moves one
// unit toward zero and every deadline is re-estimated from the fresh anchor.
// Call it after the tracker has observed the tick.
func (l *Ledger) DecayOneTick(now time.Time) []Transition {
	var out []Transition
	for _, id := range l.skills() {
		b := l.boosts[id]
		if b.Magnitude == 0 && b.ExpiryKnown() {
			continue
		}

		before := copyOf(b)
		b.Magnitude = towardZero(b.Magnitude)
		if exp := l.estimate(now, b.Ticks()); !exp.IsZero() {
			b.ExpiresAt = exp
		}

		kind := Decayed
		if !before.ExpiryKnown() && b.ExpiryKnown() {
			kind = Resolved
		}
		out = append(out, Transition{Kind: kind, At: now, Before: before, After: copyOf(b)})
	}
	return out
}

// Reconcile reports every boost's state at now and removes the ones whose
// known deadline has passed. A boost with an unknown deadline never expires.
// Statuses are ordered by skill id.
func (l *Ledger) Reconcile(now time.Time) []Status {
	ids := l.skills()
	out := make([]Status, 0, len(ids))
	for _, id := range ids {
		b := l.boosts[id]
		switch {
		case !b.ExpiryKnown():
			out = append(out, Status{Boost: *b, State: StateIndeterminate})
		case !now.Before(b.ExpiresAt):
			delete(l.boosts, id)
			out = append(out, Status{Boost: *b, State: StateExpired})
		default:
			out = append(out, Status{Boost: *b, State: StateActive, SecondsLeft: secondsLeft(b.ExpiresAt.Sub(now))})
		}
	}
	return out
}

// Get returns the boost on id.
func (l *Ledger) Get(id skill.ID) (Boost, bool) {
	b, ok := l.boosts[id]
	if !ok {
		return Boost{}, false
	}
	return *b, true
}

// All returns a copy of every boost ordered by skill id.
func (l *Ledger) All() []Boost {
	ids := l.skills()
	out := make([]Boost, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.boosts[id])
	}
	return out
}

// Len returns the number of active boosts.
func (l *Ledger) Len() int {
	return len(l.boosts)
}

// Clear drops every boost.
func (l *Ledger) Clear() {
	l.boosts = make(map[skill.ID]*Boost)
}

func (l *Ledger) estimate(now time.Time, ticks int) time.Time {
	if l.estimator == nil {
		return time.Time{}
	}
	exp, err := l.estimator.EstimateExpiry(now, ticks)
	if err != nil {
		// restore.ErrPhaseUnknown: no tick observed yet.
		return time.Time{}
	}
	return exp
}

func (l *Ledger) skills() []skill.ID {
	ids := make([]skill.ID, 0, len(l.boosts))
	for id := range l.boosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// secondsLeft rounds a remaining duration up to whole seconds, never below 0.
func secondsLeft(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func copyOf(b *Boost) *Boost {
	c := *b
	return &c
}
