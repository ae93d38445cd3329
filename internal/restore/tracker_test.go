package restore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestTracker_UnanchoredIsUnknown(t *testing.T) {
	tr := NewTracker(time.Minute)
	assert.False(t, tr.Anchored())

	_, err := tr.UntilNextTick(at(0))
	assert.ErrorIs(t, err, ErrPhaseUnknown)

	_, err = tr.EstimateExpiry(at(0), 3)
	assert.ErrorIs(t, err, ErrPhaseUnknown)
}

func TestTracker_DefaultPeriod(t *testing.T) {
	assert.Equal(t, DefaultPeriod, NewTracker(0).Period())
	assert.Equal(t, DefaultPeriod, NewTracker(-time.Second).Period())
}

func TestTracker_UntilNextTick(t *testing.T) {
	tr := NewTracker(60 * time.Second)
	tr.Observe(at(500))

	tests := []struct {
		name string
		now  int
		want time.Duration
	}{
		{"at the tick", 500, 60 * time.Second},
		{"shortly after", 1000, 59500 * time.Millisecond},
		{"just before next", 60499, time.Millisecond},
		{"on next boundary", 60500, 60 * time.Second},
		{"several cycles later", 180600, 59900 * time.Millisecond},
		{"before the anchor", 0, 500 * time.Millisecond},
		{"a cycle before the anchor", -59600, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.UntilNextTick(at(tt.now))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Greater(t, got, time.Duration(0))
			assert.LessOrEqual(t, got, tr.Period())
		})
	}
}

func TestTracker_LatestTickWins(t *testing.T) {
	tr := NewTracker(60 * time.Second)
	tr.Observe(at(0))
	tr.Observe(at(20000))

	last, ok := tr.LastTick()
	require.True(t, ok)
	assert.Equal(t, at(20000), last)

	got, err := tr.UntilNextTick(at(30000))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Second, got)
}

func TestTracker_EstimateExpiry(t *testing.T) {
	tr := NewTracker(60 * time.Second)
	tr.Observe(at(500))

	tests := []struct {
		ticks int
		now   int
		want  int
	}{
		{1, 1000, 60500},
		{2, 1000, 120500},
		{3, 1000, 180500},
		{2, 500, 120500},
		{0, 1000, 500},
	}
	for _, tt := range tests {
		got, err := tr.EstimateExpiry(at(tt.now), tt.ticks)
		require.NoError(t, err)
		assert.Equal(t, at(tt.want), got, "ticks=%d now=%d", tt.ticks, tt.now)
	}
}
