package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boostbar/internal/boost"
	"github.com/abhisek/boostbar/internal/restore"
	"github.com/abhisek/boostbar/internal/sched"
	"github.com/abhisek/boostbar/internal/skill"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

// fakeLevels is a mutable live-state stand-in.
type fakeLevels map[skill.ID]skill.Level

func (f fakeLevels) Level(id skill.ID) (skill.Level, bool) {
	l, ok := f[id]
	return l, ok
}

type fixture struct {
	levels    fakeLevels
	ledger    *boost.Ledger
	queue     *sched.Queue
	c         *Correlator
	installed []boost.Transition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		levels: fakeLevels{},
		ledger: boost.NewLedger(restore.NewTracker(time.Minute)),
		queue:  sched.NewQueue(),
	}
	f.c = New(f.levels, f.ledger, f.queue, nil, Options{
		OnInstall: func(_ context.Context, tr boost.Transition) {
			f.installed = append(f.installed, tr)
		},
	})
	return f
}

func (f *fixture) run(ms int) {
	f.queue.RunDue(context.Background(), at(ms))
}

func TestCorrelator_MatchesBatchAfterDelay(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 13, Base: 10}
	f.levels[2] = skill.Level{Current: 12, Base: 10}

	f.c.OnConsumed(101, []skill.ID{1, 2}, true)
	f.c.OnLevelChanged(at(0), 1, 13, true)
	f.c.OnLevelChanged(at(20), 2, 12, true)
	assert.Equal(t, 2, f.c.Queued())
	assert.Equal(t, 1, f.queue.Len(), "one flush per batch")

	f.run(99)
	assert.Equal(t, 0, f.ledger.Len(), "nothing resolves before the delay")

	f.run(100)
	require.Len(t, f.installed, 2)
	assert.Equal(t, 0, f.c.Queued())

	b1, ok := f.ledger.Get(1)
	require.True(t, ok)
	assert.Equal(t, 3, b1.Magnitude)
	assert.Equal(t, 101, int(b1.SourceItem))

	b2, ok := f.ledger.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, b2.Magnitude)

	// Pending potion is retained for later changes.
	p, ok := f.c.Pending()
	require.True(t, ok)
	assert.Equal(t, 101, int(p.ItemID))
}

func TestCorrelator_FailedChangeIgnored(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 13, Base: 10}
	f.c.OnConsumed(101, []skill.ID{1}, true)

	f.c.OnLevelChanged(at(0), 1, 13, false)
	assert.Equal(t, 0, f.c.Queued())
	assert.Equal(t, 0, f.queue.Len())
}

func TestCorrelator_UnattributedChangesDropped(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 13, Base: 10}
	f.levels[5] = skill.Level{Current: 41, Base: 41}

	// No pending potion at all.
	f.c.OnLevelChanged(at(0), 1, 13, true)
	f.run(100)
	assert.Equal(t, 0, f.ledger.Len())

	// Potion that does not touch skill 5.
	f.c.OnConsumed(101, []skill.ID{1}, true)
	f.c.OnLevelChanged(at(200), 5, 41, true)
	f.run(300)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestCorrelator_NonConsumableClearsPending(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 13, Base: 10}

	f.c.OnConsumed(101, []skill.ID{1}, true)
	f.c.OnConsumed(500, nil, false)
	_, ok := f.c.Pending()
	assert.False(t, ok)

	f.c.OnLevelChanged(at(0), 1, 13, true)
	f.run(100)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestCorrelator_LastConsumptionWins(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 13, Base: 10}
	f.levels[2] = skill.Level{Current: 14, Base: 10}

	f.c.OnConsumed(101, []skill.ID{1}, true)
	f.c.OnLevelChanged(at(0), 1, 13, true)

	// B is consumed before A's batch resolves; A's change to skill 1 is not on
	// B's list and is dropped.
	f.c.OnConsumed(202, []skill.ID{2}, true)
	f.c.OnLevelChanged(at(30), 2, 14, true)
	f.run(100)

	_, ok := f.ledger.Get(1)
	assert.False(t, ok)
	b2, ok := f.ledger.Get(2)
	require.True(t, ok)
	assert.Equal(t, 202, int(b2.SourceItem))
	assert.Equal(t, 4, b2.Magnitude)
}

func TestCorrelator_ZeroDeltaNotInstalled(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 10, Base: 10}
	f.c.OnConsumed(101, []skill.ID{1}, true)
	f.c.OnLevelChanged(at(0), 1, 10, true)
	f.run(100)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestCorrelator_NegativeBoost(t *testing.T) {
	f := newFixture(t)
	f.levels[3] = skill.Level{Current: 7, Base: 10}
	f.c.OnConsumed(303, []skill.ID{3}, true)
	f.c.OnLevelChanged(at(0), 3, 7, true)
	f.run(100)

	b, ok := f.ledger.Get(3)
	require.True(t, ok)
	assert.Equal(t, -3, b.Magnitude)
}

func TestCorrelator_ReadsLevelAtResolution(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 12, Base: 10}
	f.c.OnConsumed(101, []skill.ID{1}, true)
	f.c.OnLevelChanged(at(0), 1, 12, true)

	// Second effect on the same skill lands inside the window.
	f.levels[1] = skill.Level{Current: 15, Base: 10}
	f.c.OnLevelChanged(at(40), 1, 15, true)
	f.run(100)

	b, _ := f.ledger.Get(1)
	assert.Equal(t, 5, b.Magnitude)
	require.Len(t, f.installed, 2)
	assert.True(t, f.installed[0].After.IsNewSource)
	assert.False(t, f.installed[1].After.IsNewSource)
}

func TestCorrelator_NewBatchAfterFlush(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 12, Base: 10}
	f.c.OnConsumed(101, []skill.ID{1}, true)

	f.c.OnLevelChanged(at(0), 1, 12, true)
	f.run(100)
	require.Len(t, f.installed, 1)

	f.c.OnLevelChanged(at(500), 1, 12, true)
	assert.Equal(t, 1, f.queue.Len())
	f.run(600)
	assert.Len(t, f.installed, 2)
}

func TestCorrelator_ResetInvalidatesArmedFlush(t *testing.T) {
	f := newFixture(t)
	f.levels[1] = skill.Level{Current: 12, Base: 10}
	f.c.OnConsumed(101, []skill.ID{1}, true)
	f.c.OnLevelChanged(at(0), 1, 12, true)

	f.c.Reset()
	f.c.OnConsumed(101, []skill.ID{1}, true)
	f.run(100)
	assert.Empty(t, f.installed)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestCorrelator_DefaultDelay(t *testing.T) {
	c := New(fakeLevels{}, boost.NewLedger(nil), sched.NewQueue(), nil, Options{})
	assert.Equal(t, DefaultDelay, c.delay)
}
