package replay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boostbar/internal/config"
	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/infobar"
	"github.com/abhisek/boostbar/internal/scenario"
	"github.com/abhisek/boostbar/internal/sim"
	"github.com/abhisek/boostbar/internal/store"
)

var start = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

const doc = `
restore: {period: 60s, phase: 20s}
duration: 5m
skills:
  - {id: 0, base: 40}
  - {id: 2, base: 45}
  - {id: 10, base: 30}
items:
  - {id: 113, name: Attack potion, effects: [{skill: 0, amount: 3}]}
  - {id: 9739, name: Combat potion, effects: [{skill: 0, amount: 4}, {skill: 2, amount: 4}]}
  - {id: 2438, name: Fishing potion, effects: [{skill: 10, amount: 2}]}
  - {id: 1917, name: Beer, effects: [{skill: 0, amount: -2}]}
  - {id: 2309, name: Bread}
timeline:
  - {at: 0s, action: login}
  - {at: 5s, action: consume, item: 113}
  - {at: 8s, action: consume, item: 2438}
  - {at: 12s, action: consume, item: 2309}
  - {at: 25s, action: use, item: 9739, code: 19}
  - {at: 40s, action: consume, item: 9739}
  - {at: 95s, action: level_up, skill: 10}
  - {at: 130s, action: consume, item: 1917}
  - {at: 170s, action: logout}
  - {at: 200s, action: login}
  - {at: 210s, action: consume, item: 113}
`

func openRepo(t *testing.T) store.EventRepo {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.EventRepo()
}

// record plays the scenario against a journaled info bar.
func record(t *testing.T, repo store.EventRepo) {
	t.Helper()
	sc, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)

	cfg := config.Default()
	e := sim.New(sc, sim.Options{Start: start, Partition: cfg.Partition()})
	p := infobar.New(infobar.Options{
		Config:  cfg,
		Player:  e,
		Catalog: e.Catalog(),
		Journal: repo,
	})
	e.Bind(p)
	ctx := context.Background()
	p.Start(ctx, start)
	require.NoError(t, e.Run(ctx))
}

func TestReplay_ReproducesRecordedSessions(t *testing.T) {
	repo := openRepo(t)
	record(t, repo)
	ctx := context.Background()

	sessions, err := repo.Sessions(ctx, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	r := New(repo, config.Default(), nil)
	for _, sess := range sessions {
		res, err := r.Replay(ctx, sess.ID, nil)
		require.NoError(t, err)
		assert.True(t, res.Faithful(), "mismatches: %v", res.Mismatches)
		assert.NotEmpty(t, res.Replayed)
		assert.Positive(t, res.HostEvents)
		assert.Positive(t, res.Frames)
	}
}

func TestReplay_FirstSessionLifecycle(t *testing.T) {
	repo := openRepo(t)
	record(t, repo)
	ctx := context.Background()

	sessions, err := repo.Sessions(ctx, store.QueryOpts{})
	require.NoError(t, err)
	first := sessions[len(sessions)-1]
	assert.False(t, first.Open())

	log := &display.Log{}
	res, err := New(repo, config.Default(), nil).Replay(ctx, first.ID, log)
	require.NoError(t, err)
	require.True(t, res.Faithful(), "mismatches: %v", res.Mismatches)

	var installed, expired int
	for _, ev := range res.Replayed {
		switch ev.Kind {
		case store.KindBoostInstalled:
			installed++
		case store.KindBoostExpired:
			expired++
		}
	}
	// Attack potion, fishing potion, combat potion (two skills), beer.
	assert.Equal(t, 5, installed)
	assert.Positive(t, expired)

	// The logout removes whatever was still showing.
	require.NotEmpty(t, log.Instructions)
	assert.Equal(t, display.OpRemove, log.Instructions[len(log.Instructions)-1].Op)
}

func TestReplay_RejectsRestorePeriodInsideDebounce(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	id, err := repo.StartSession(ctx, start, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = New(repo, config.Default(), nil).Replay(ctx, id, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shorter than restore period")
}

func TestReplay_DetectsTampering(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	id, err := repo.StartSession(ctx, start, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, store.Event{
		SessionID: id, At: start, Kind: store.KindBoostInstalled, Skill: 0, Item: 113, Value: 3,
	}))

	res, err := New(repo, config.Default(), nil).Replay(ctx, id, nil)
	require.NoError(t, err)
	assert.False(t, res.Faithful())
	require.Len(t, res.Mismatches, 1)
	assert.Nil(t, res.Mismatches[0].Replayed)
	assert.Contains(t, res.Mismatches[0].String(), "replayed nothing")
}

func TestReplay_UnknownSession(t *testing.T) {
	repo := openRepo(t)
	_, err := New(repo, config.Default(), nil).Replay(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
