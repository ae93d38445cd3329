package boost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boostbar/internal/restore"
)

const period = 60 * time.Second

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func newTestLedger() (*Ledger, *restore.Tracker) {
	tr := restore.NewTracker(period)
	return NewLedger(tr), tr
}

// tick delivers a restore tick the way the plugin does: anchor first, decay second.
func tick(l *Ledger, tr *restore.Tracker, now time.Time) []Transition {
	tr.Observe(now)
	return l.DecayOneTick(now)
}

func TestLedger_InstallBeforeFirstTickIsIndeterminate(t *testing.T) {
	l, _ := newTestLedger()

	tr := l.Install(at(0), 2, 3, 101)
	assert.Equal(t, Installed, tr.Kind)
	assert.Nil(t, tr.Before)
	require.NotNil(t, tr.After)
	assert.False(t, tr.After.ExpiryKnown())
	assert.True(t, tr.After.IsNewSource)

	statuses := l.Reconcile(at(0))
	require.Len(t, statuses, 1)
	assert.Equal(t, StateIndeterminate, statuses[0].State)
	assert.Equal(t, 3, statuses[0].Boost.Magnitude)

	// Never expires while the deadline is unknown, however late it gets.
	statuses = l.Reconcile(at(10 * 60 * 1000))
	require.Len(t, statuses, 1)
	assert.Equal(t, StateIndeterminate, statuses[0].State)
	assert.Equal(t, 1, l.Len())
}

func TestLedger_FirstTickResolvesDeadline(t *testing.T) {
	l, tr := newTestLedger()
	l.Install(at(0), 2, 3, 101)

	trs := tick(l, tr, at(500))
	require.Len(t, trs, 1)
	assert.Equal(t, Resolved, trs[0].Kind)
	assert.Equal(t, 3, trs[0].Before.Magnitude)
	assert.Equal(t, 2, trs[0].After.Magnitude)

	b, ok := l.Get(2)
	require.True(t, ok)
	// Two decrements left: 60500 and 120500.
	assert.Equal(t, at(120500), b.ExpiresAt)

	statuses := l.Reconcile(at(1000))
	require.Len(t, statuses, 1)
	assert.Equal(t, StateActive, statuses[0].State)
	assert.Equal(t, 120, statuses[0].SecondsLeft)
}

func TestLedger_InstallAfterAnchorHasDeadline(t *testing.T) {
	l, tr := newTestLedger()
	tr.Observe(at(0))

	l.Install(at(10000), 2, 2, 101)
	b, ok := l.Get(2)
	require.True(t, ok)
	// Decrements at 60000 and 120000.
	assert.Equal(t, at(120000), b.ExpiresAt)
}

func TestLedger_TicksResyncDeadline(t *testing.T) {
	l, tr := newTestLedger()
	tr.Observe(at(0))
	l.Install(at(1000), 2, 3, 101)

	b, _ := l.Get(2)
	assert.Equal(t, at(180000), b.ExpiresAt)

	// Host phase drifted: ticks arrive 2s late.
	tick(l, tr, at(62000))
	b, _ = l.Get(2)
	assert.Equal(t, 2, b.Magnitude)
	assert.Equal(t, at(182000), b.ExpiresAt)

	tick(l, tr, at(122000))
	b, _ = l.Get(2)
	assert.Equal(t, 1, b.Magnitude)
	assert.Equal(t, at(182000), b.ExpiresAt)

	statuses := l.Reconcile(at(122000))
	require.Len(t, statuses, 1)
	assert.Equal(t, 60, statuses[0].SecondsLeft)

	tick(l, tr, at(182000))
	statuses = l.Reconcile(at(182000))
	require.Len(t, statuses, 1)
	assert.Equal(t, StateExpired, statuses[0].State)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_RemainingShrinksEachTick(t *testing.T) {
	l, tr := newTestLedger()
	l.Install(at(0), 2, 3, 101)

	var remaining []int
	for _, ms := range []int{500, 60500} {
		tick(l, tr, at(ms))
		s := l.Reconcile(at(ms + 100))
		require.Len(t, s, 1)
		remaining = append(remaining, s[0].SecondsLeft)
	}
	assert.Greater(t, remaining[0], remaining[1])
	b, _ := l.Get(2)
	assert.Equal(t, 1, b.Magnitude)
}

func TestLedger_MagnitudeApproachesZeroWithoutCrossing(t *testing.T) {
	for _, m := range []int{-4, -1, 1, 5} {
		l, tr := newTestLedger()
		l.Install(at(0), 7, m, 101)

		prev := m
		for i := 1; i <= 8; i++ {
			tick(l, tr, at(i*60000))
			b, ok := l.Get(7)
			if !ok {
				break
			}
			if prev != 0 {
				assert.Equal(t, 1, abs(prev)-abs(b.Magnitude), "magnitude %d tick %d", m, i)
			} else {
				assert.Equal(t, 0, b.Magnitude)
			}
			assert.GreaterOrEqual(t, b.Magnitude*m, 0, "sign flipped for %d at tick %d", m, i)
			prev = b.Magnitude
		}
	}
}

func TestLedger_ZeroMagnitudeDecayIsNoop(t *testing.T) {
	l, tr := newTestLedger()
	tr.Observe(at(0))
	l.Install(at(1000), 2, 1, 101)

	tick(l, tr, at(60000))
	b, _ := l.Get(2)
	require.Equal(t, 0, b.Magnitude)
	deadline := b.ExpiresAt

	trs := tick(l, tr, at(60010))
	assert.Empty(t, trs)
	b, _ = l.Get(2)
	assert.Equal(t, 0, b.Magnitude)
	assert.Equal(t, deadline, b.ExpiresAt)

	l.Reconcile(at(60010))
	assert.Equal(t, 0, l.Len())

	// A later tick must not bring it back.
	tick(l, tr, at(120000))
	_, ok := l.Get(2)
	assert.False(t, ok)
}

func TestLedger_ReplaceTracksSource(t *testing.T) {
	l, _ := newTestLedger()

	l.Install(at(0), 2, 3, 101)
	tr := l.Install(at(100), 2, 5, 101)
	require.NotNil(t, tr.Before)
	assert.Equal(t, 3, tr.Before.Magnitude)
	assert.False(t, tr.After.IsNewSource)
	b, _ := l.Get(2)
	assert.Equal(t, 5, b.Magnitude, "last potion wins, no stacking")

	tr = l.Install(at(200), 2, 2, 202)
	assert.True(t, tr.After.IsNewSource)
	b, _ = l.Get(2)
	assert.Equal(t, 2, b.Magnitude)
	assert.Equal(t, 202, int(b.SourceItem))
}

func TestLedger_ReconcileIsIdempotent(t *testing.T) {
	l, tr := newTestLedger()
	l.Install(at(0), 2, 3, 101)
	l.Install(at(0), 8, -2, 303)

	first := l.Reconcile(at(50))
	second := l.Reconcile(at(50))
	assert.Equal(t, first, second)

	tick(l, tr, at(500))
	first = l.Reconcile(at(700))
	second = l.Reconcile(at(700))
	assert.Equal(t, first, second)
}

func TestLedger_ReconcileOrderAndNoNegativeRemaining(t *testing.T) {
	l, tr := newTestLedger()
	tr.Observe(at(0))
	l.Install(at(0), 9, 1, 1)
	l.Install(at(0), 1, 2, 1)
	l.Install(at(0), 4, -1, 1)

	for ms := 0; ms < 130000; ms += 7000 {
		for _, s := range l.Reconcile(at(ms)) {
			assert.GreaterOrEqual(t, s.SecondsLeft, 0)
		}
	}

	l2, tr2 := newTestLedger()
	tr2.Observe(at(0))
	l2.Install(at(0), 9, 1, 1)
	l2.Install(at(0), 1, 2, 1)
	l2.Install(at(0), 4, -1, 1)
	statuses := l2.Reconcile(at(0))
	require.Len(t, statuses, 3)
	assert.Equal(t, 1, int(statuses[0].Boost.Skill))
	assert.Equal(t, 4, int(statuses[1].Boost.Skill))
	assert.Equal(t, 9, int(statuses[2].Boost.Skill))
}

func TestSecondsLeft(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{-time.Second, 0},
		{0, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{time.Second + time.Millisecond, 2},
		{119500 * time.Millisecond, 120},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, secondsLeft(tt.in), "%v", tt.in)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
