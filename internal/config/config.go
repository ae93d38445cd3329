package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/abhisek/boostbar/internal/correlate"
	"github.com/abhisek/boostbar/internal/restore"
	"github.com/abhisek/boostbar/internal/skill"
)

// EnvPrefix prefixes every environment variable, e.g. BOOSTBAR_RESTORE_PERIOD.
const EnvPrefix = "BOOSTBAR"

// Config holds the info bar's tunables.
type Config struct {
	// Enabled gates the bar entirely, like the in-game plugin toggle.
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// RestorePeriod is the host's stat restoration interval.
	RestorePeriod time.Duration `envconfig:"RESTORE_PERIOD" default:"60s"`

	// DebounceDelay is how long level changes are batched before being
	// matched against the last consumed potion.
	DebounceDelay time.Duration `envconfig:"DEBOUNCE_DELAY" default:"100ms"`

	// FrameInterval is the update loop cadence for simulated hosts.
	FrameInterval time.Duration `envconfig:"FRAME_INTERVAL" default:"50ms"`

	CombatSkills   []int `envconfig:"COMBAT_SKILLS" default:"0,1,2,3,4,15"`
	AmmoSlot       int   `envconfig:"AMMO_SLOT" default:"9"`
	IgnoredActions []int `envconfig:"IGNORED_ACTIONS" default:"19"`

	// ClockTimers renders timers as m:ss instead of plain seconds.
	ClockTimers bool `envconfig:"CLOCK_TIMERS" default:"false"`

	// DB is the journal database path. Empty means DefaultDBPath.
	DB string `envconfig:"DB"`
}

// Default returns the built-in configuration.
func Default() Config {
	combat := make([]int, len(skill.DefaultCombatIDs))
	for i, id := range skill.DefaultCombatIDs {
		combat[i] = int(id)
	}
	return Config{
		Enabled:        true,
		RestorePeriod:  restore.DefaultPeriod,
		DebounceDelay:  correlate.DefaultDelay,
		FrameInterval:  50 * time.Millisecond,
		CombatSkills:   combat,
		AmmoSlot:       9,
		IgnoredActions: []int{19},
	}
}

// FromEnv builds a Config from BOOSTBAR_* variables, falling back to the
// defaults for unset values.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the estimator cannot work with.
func (c Config) Validate() error {
	if c.RestorePeriod <= 0 {
		return fmt.Errorf("restore period must be positive, got %v", c.RestorePeriod)
	}
	if c.DebounceDelay <= 0 {
		return fmt.Errorf("debounce delay must be positive, got %v", c.DebounceDelay)
	}
	if c.DebounceDelay >= c.RestorePeriod {
		return fmt.Errorf("debounce delay %v must be shorter than restore period %v", c.DebounceDelay, c.RestorePeriod)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %v", c.FrameInterval)
	}
	for _, id := range c.CombatSkills {
		if id < 0 {
			return fmt.Errorf("combat skill id must not be negative, got %d", id)
		}
	}
	return nil
}

// WithRestorePeriod returns a copy using the host's restore period, validated
// against the rest of the settings.
func (c Config) WithRestorePeriod(period time.Duration) (Config, error) {
	c.RestorePeriod = period
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Partition returns the skill partition for CombatSkills.
func (c Config) Partition() skill.Partition {
	ids := make([]skill.ID, len(c.CombatSkills))
	for i, id := range c.CombatSkills {
		ids[i] = skill.ID(id)
	}
	return skill.NewPartition(ids)
}

// Ignores reports whether an item action code should never start a correlation.
func (c Config) Ignores(actionCode int) bool {
	for _, a := range c.IgnoredActions {
		if a == actionCode {
			return true
		}
	}
	return false
}

// DefaultDBPath resolves the journal path in priority order:
// 1. BOOSTBAR_DB environment variable
// 2. $XDG_DATA_HOME/boostbar/boostbar.db
// 3. ~/.local/share/boostbar/boostbar.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv(EnvPrefix + "_DB"); p != "" {
		return p, EnsureDir(p)
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "boostbar.db")
	return p, EnsureDir(p)
}

// DataDir returns the directory boostbar keeps its files in.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "boostbar"), nil
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
