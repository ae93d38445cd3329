package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boostbar/internal/skill"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60*time.Second, cfg.RestorePeriod)
	assert.Equal(t, 100*time.Millisecond, cfg.DebounceDelay)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 15}, cfg.CombatSkills)
	assert.Equal(t, 9, cfg.AmmoSlot)
	assert.True(t, cfg.Ignores(19))
	assert.False(t, cfg.Ignores(1))
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BOOSTBAR_RESTORE_PERIOD", "30s")
	t.Setenv("BOOSTBAR_DEBOUNCE_DELAY", "250ms")
	t.Setenv("BOOSTBAR_COMBAT_SKILLS", "1,2")
	t.Setenv("BOOSTBAR_IGNORED_ACTIONS", "19,20")
	t.Setenv("BOOSTBAR_CLOCK_TIMERS", "true")
	t.Setenv("BOOSTBAR_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.RestorePeriod)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceDelay)
	assert.True(t, cfg.ClockTimers)
	assert.True(t, cfg.Ignores(20))
	assert.Equal(t, skill.Combat, cfg.Partition().KindOf(2))
	assert.Equal(t, skill.NonCombat, cfg.Partition().KindOf(0))
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("BOOSTBAR_RESTORE_PERIOD", "not-a-duration")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero period", func(c *Config) { c.RestorePeriod = 0 }, false},
		{"zero debounce", func(c *Config) { c.DebounceDelay = 0 }, false},
		{"debounce longer than period", func(c *Config) { c.DebounceDelay = 2 * time.Minute }, false},
		{"zero frame", func(c *Config) { c.FrameInterval = 0 }, false},
		{"negative skill", func(c *Config) { c.CombatSkills = []int{-1} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWithRestorePeriod(t *testing.T) {
	cfg, err := Default().WithRestorePeriod(6 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Second, cfg.RestorePeriod)

	// A period the debounce window cannot fit in is rejected.
	_, err = Default().WithRestorePeriod(100 * time.Millisecond)
	assert.ErrorContains(t, err, "shorter than restore period")

	_, err = Default().WithRestorePeriod(0)
	assert.Error(t, err)
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("BOOSTBAR_DB", filepath.Join(dir, "a", "journal.db"))
	p, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "journal.db"), p)
	assert.DirExists(t, filepath.Join(dir, "a"))

	t.Setenv("BOOSTBAR_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "boostbar", "boostbar.db"), p)
}
