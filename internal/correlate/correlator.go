package correlate

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/boost"
	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/sched"
	"github.com/abhisek/boostbar/internal/skill"
)

// DefaultDelay spans one host simulation tick, long enough for every level
// change caused by a single consumption to arrive before the batch resolves.
const DefaultDelay = 100 * time.Millisecond

// PendingPotion is the most recently consumed item still believed to be
// producing level changes.
type PendingPotion struct {
	ItemID         item.ID
	ImpactedSkills []skill.ID
}

// PendingLevelChange is a level-change notification waiting for its batch.
type PendingLevelChange struct {
	Skill     skill.ID
	NewValue  int
	Succeeded bool
	At        time.Time
}

// Scheduler runs single-shot deferred tasks. *sched.Queue implements it.
type Scheduler interface {
	After(now time.Time, d time.Duration, task sched.Task)
}

// LevelReader reads live skill levels. *skill.Source implements it.
type LevelReader interface {
	Level(id skill.ID) (skill.Level, bool)
}

// Installer receives matched boosts. *boost.Ledger implements it.
type Installer interface {
	Install(now time.Time, id skill.ID, magnitude int, source item.ID) boost.Transition
}

// Options configures a Correlator.
type Options struct {
	// Delay is the debounce window. Zero means DefaultDelay.
	Delay time.Duration

	// OnInstall, if set, is called for every boost installed by a deferred
	// flush.
	OnInstall func(ctx context.Context, tr boost.Transition)
}

// Correlator links consumption notifications to the level changes they cause.
// Only one potion is tracked at a time; level changes are batched for Delay
// before being matched against it.
type Correlator struct {
	logger    *zap.Logger
	levels    LevelReader
	installer Installer
	sched     Scheduler
	delay     time.Duration
	onInstall func(ctx context.Context, tr boost.Transition)

	pending *PendingPotion
	queue   []PendingLevelChange
	armed   bool
	gen     uint64
}

// New creates a Correlator.
func New(levels LevelReader, installer Installer, s Scheduler, logger *zap.Logger, opts Options) *Correlator {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{
		logger:    logger.Named("correlator"),
		levels:    levels,
		installer: installer,
		sched:     s,
		delay:     opts.Delay,
		onInstall: opts.OnInstall,
	}
}

// OnConsumed records a consumption. ok is false for items without an effect
// list, which clears the pending potion; otherwise it replaces it.
func (c *Correlator) OnConsumed(id item.ID, impacted []skill.ID, ok bool) {
	if !ok {
		if c.pending != nil {
			c.logger.Debug("pending potion cleared", zap.Int("item", int(id)))
		}
		c.pending = nil
		return
	}
	c.pending = &PendingPotion{ItemID: id, ImpactedSkills: slices.Clone(impacted)}
	c.logger.Debug("pending potion set",
		zap.Int("item", int(id)),
		zap.Ints("skills", skillInts(impacted)))
}

// OnLevelChanged queues a successful level change and arms the batch flush
// if one is not already scheduled. Failed changes are ignored.
func (c *Correlator) OnLevelChanged(now time.Time, id skill.ID, newValue int, succeeded bool) {
	if !succeeded {
		return
	}
	c.queue = append(c.queue, PendingLevelChange{Skill: id, NewValue: newValue, Succeeded: succeeded, At: now})
	if c.armed {
		return
	}
	c.armed = true
	gen := c.gen
	c.sched.After(now, c.delay, func(ctx context.Context, at time.Time) {
		if gen != c.gen {
			return
		}
		for _, tr := range c.Flush(at) {
			if c.onInstall != nil {
				c.onInstall(ctx, tr)
			}
		}
	})
}

// Flush drains the queued level changes in arrival order and resolves each
// against the pending potion as it stands now.
func (c *Correlator) Flush(now time.Time) []boost.Transition {
	c.armed = false
	queued := c.queue
	c.queue = nil

	var out []boost.Transition
	for _, ch := range queued {
		if tr, ok := c.resolve(now, ch); ok {
			out = append(out, tr)
		}
	}
	return out
}

func (c *Correlator) resolve(now time.Time, ch PendingLevelChange) (boost.Transition, bool) {
	if c.pending == nil || !slices.Contains(c.pending.ImpactedSkills, ch.Skill) {
		c.logger.Debug("level change not attributed to a potion",
			zap.Int("skill", int(ch.Skill)),
			zap.Int("value", ch.NewValue))
		return boost.Transition{}, false
	}

	lvl, ok := c.levels.Level(ch.Skill)
	if !ok {
		c.logger.Debug("no live level for skill", zap.Int("skill", int(ch.Skill)))
		return boost.Transition{}, false
	}
	magnitude := lvl.Delta()
	if magnitude == 0 {
		return boost.Transition{}, false
	}

	tr := c.installer.Install(now, ch.Skill, magnitude, c.pending.ItemID)
	c.logger.Info("boost installed",
		zap.Int("skill", int(ch.Skill)),
		zap.Int("item", int(c.pending.ItemID)),
		zap.Int("magnitude", magnitude),
		zap.Bool("expiry_known", tr.After.ExpiryKnown()))
	return tr, true
}

// Pending returns the pending potion, if any.
func (c *Correlator) Pending() (PendingPotion, bool) {
	if c.pending == nil {
		return PendingPotion{}, false
	}
	return *c.pending, true
}

// Queued returns the number of level changes waiting for the flush.
func (c *Correlator) Queued() int {
	return len(c.queue)
}

// Reset drops the pending potion and queued changes. A flush already handed
// to the scheduler becomes a no-op.
func (c *Correlator) Reset() {
	c.pending = nil
	c.queue = nil
	c.armed = false
	c.gen++
}

func skillInts(ids []skill.ID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
