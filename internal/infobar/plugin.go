// Package infobar is the host-facing plugin: it owns one boost-tracking
// session per login, routes host notifications into the correlator, tracker
// and ledger, and turns each frame's ledger state into display instructions.
package infobar

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/boost"
	"github.com/abhisek/boostbar/internal/config"
	"github.com/abhisek/boostbar/internal/correlate"
	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/host"
	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/restore"
	"github.com/abhisek/boostbar/internal/sched"
	"github.com/abhisek/boostbar/internal/skill"
	"github.com/abhisek/boostbar/internal/store"
)

// Options configures a Plugin.
type Options struct {
	Config  config.Config
	Player  host.Player
	Catalog item.Catalog
	Surface display.Surface

	// Journal, if set, records every session. Failures are logged and
	// never interrupt tracking.
	Journal store.EventRepo

	Logger *zap.Logger
}

// Plugin is the info bar. All methods must be called from the host's single
// callback goroutine.
type Plugin struct {
	cfg     config.Config
	player  host.Player
	levels  *skill.Source
	catalog item.Catalog
	surface display.Surface
	journal store.EventRepo
	logger  *zap.Logger

	running  bool
	loggedIn bool
	sess     *session
}

// session is the state of one logged-in stretch. It is rebuilt on every login
// so nothing leaks between characters.
type session struct {
	journalID string

	tracker    *restore.Tracker
	ledger     *boost.Ledger
	queue      *sched.Queue
	correlator *correlate.Correlator

	// shown is the last instruction emitted per slot, for dedup.
	shown map[string]display.Instruction
	// refresh marks boost slots whose item changed since the last emission.
	refresh map[skill.ID]bool

	ammo      item.ID
	ammoKnown bool
}

// New creates a stopped plugin.
func New(opts Options) *Plugin {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	surface := opts.Surface
	if surface == nil {
		surface = &display.Log{}
	}
	return &Plugin{
		cfg:     opts.Config,
		player:  opts.Player,
		levels:  host.LevelSource(opts.Player, opts.Config.Partition()),
		catalog: opts.Catalog,
		surface: surface,
		journal: opts.Journal,
		logger:  logger.Named("infobar"),
	}
}

// Start enables the plugin. If the player is already logged in a session
// begins immediately.
func (p *Plugin) Start(ctx context.Context, now time.Time) {
	p.endSession(ctx, now)
	p.running = true
	if p.cfg.Enabled && p.loggedIn {
		p.beginSession(ctx, now)
	}
}

// Stop tears down the current session and removes every slot.
func (p *Plugin) Stop(ctx context.Context, now time.Time) {
	p.endSession(ctx, now)
	p.running = false
}

// HandleLoggedIn starts a fresh session.
func (p *Plugin) HandleLoggedIn(ctx context.Context, now time.Time, _ host.LoggedIn) {
	p.loggedIn = true
	if !p.running || !p.cfg.Enabled {
		return
	}
	p.endSession(ctx, now)
	p.beginSession(ctx, now)
}

// HandleLoggedOut ends the session. Pending correlations and deferred flushes
// are dropped with it.
func (p *Plugin) HandleLoggedOut(ctx context.Context, now time.Time, _ host.LoggedOut) {
	p.loggedIn = false
	p.endSession(ctx, now)
}

// HandleItemAction updates the pending potion from a completed item action.
func (p *Plugin) HandleItemAction(ctx context.Context, now time.Time, ev host.ItemActionInvoked) {
	s := p.sess
	if s == nil {
		return
	}

	def, found := p.catalog.Lookup(ev.ItemID)
	consumable := found && def.Consumable()
	p.recordItemAction(ctx, now, ev, def, consumable)

	if !ev.Succeeded || p.cfg.Ignores(ev.ActionCode) {
		return
	}
	s.correlator.OnConsumed(ev.ItemID, def.ImpactedSkills(), consumable)
}

// HandleSkillLevelChanged queues a level change for correlation.
func (p *Plugin) HandleSkillLevelChanged(ctx context.Context, now time.Time, ev host.SkillLevelChanged) {
	s := p.sess
	if s == nil {
		return
	}
	p.recordLevelChange(ctx, now, ev)
	s.correlator.OnLevelChanged(now, ev.Skill, ev.NewValue, ev.Succeeded)
}

// HandleStatsRestored anchors the restore cycle and decays every boost.
func (p *Plugin) HandleStatsRestored(ctx context.Context, now time.Time, _ host.StatsRestored) {
	s := p.sess
	if s == nil {
		return
	}
	p.record(ctx, store.Event{At: now, Kind: store.KindStatsRestored})

	s.tracker.Observe(now)
	for _, tr := range s.ledger.DecayOneTick(now) {
		p.logger.Debug("boost "+string(tr.Kind),
			zap.Int("skill", int(tr.After.Skill)),
			zap.Int("magnitude", tr.After.Magnitude),
			zap.Time("expires_at", tr.After.ExpiresAt))
		p.recordTransition(ctx, tr)
	}
}

// Frame is the host's per-frame callback. It runs due deferred work,
// refreshes the ammo slot and reconciles the ledger into the display.
func (p *Plugin) Frame(ctx context.Context, now time.Time) {
	s := p.sess
	if s == nil {
		return
	}
	if n := s.queue.RunDue(ctx, now); n > 0 {
		p.logger.Debug("deferred tasks ran", zap.Int("count", n))
	}
	if p.sess != s {
		return
	}

	p.drawAmmo(s)

	for _, st := range s.ledger.Reconcile(now) {
		id := st.Boost.Skill
		slot := display.BoostSlotID(id)
		switch st.State {
		case boost.StateExpired:
			delete(s.refresh, id)
			p.remove(s, slot)
			p.logger.Info("boost expired", zap.Int("skill", int(id)), zap.Int("item", int(st.Boost.SourceItem)))
			b := st.Boost
			p.recordTransition(ctx, boost.Transition{Kind: boost.Expired, At: now, Before: &b})
		case boost.StateIndeterminate:
			p.upsert(s, display.Upsert(slot, st.Boost.SourceItem, st.Boost.Magnitude, display.TimerUnknown, s.refresh[id]))
			delete(s.refresh, id)
		case boost.StateActive:
			p.upsert(s, display.Upsert(slot, st.Boost.SourceItem, st.Boost.Magnitude, display.SecondsTimer(st.SecondsLeft), s.refresh[id]))
			delete(s.refresh, id)
		}
	}
}

// Active reports whether a session is running.
func (p *Plugin) Active() bool {
	return p.sess != nil
}

// SessionID returns the journal id of the running session, or "" when there
// is none or the journal is off.
func (p *Plugin) SessionID() string {
	if p.sess == nil {
		return ""
	}
	return p.sess.journalID
}

// Boosts returns the current ledger contents ordered by skill.
func (p *Plugin) Boosts() []boost.Boost {
	if p.sess == nil {
		return nil
	}
	return p.sess.ledger.All()
}

// Anchored reports whether a restore tick has been seen this session.
func (p *Plugin) Anchored() bool {
	return p.sess != nil && p.sess.tracker.Anchored()
}

// NextDue returns when the next deferred task fires.
func (p *Plugin) NextDue() (time.Time, bool) {
	if p.sess == nil {
		return time.Time{}, false
	}
	return p.sess.queue.NextDue()
}

func (p *Plugin) beginSession(ctx context.Context, now time.Time) {
	tracker := restore.NewTracker(p.cfg.RestorePeriod)
	ledger := boost.NewLedger(tracker)
	queue := sched.NewQueue()
	s := &session{
		tracker: tracker,
		ledger:  ledger,
		queue:   queue,
		shown:   make(map[string]display.Instruction),
		refresh: make(map[skill.ID]bool),
	}
	s.correlator = correlate.New(p.levels, ledger, queue, p.logger, correlate.Options{
		Delay: p.cfg.DebounceDelay,
		OnInstall: func(ctx context.Context, tr boost.Transition) {
			if tr.After.IsNewSource {
				s.refresh[tr.After.Skill] = true
			}
			p.recordTransition(ctx, tr)
		},
	})

	if p.journal != nil {
		id, err := p.journal.StartSession(ctx, now, tracker.Period())
		if err != nil {
			p.logger.Warn("journal session not started", zap.Error(err))
		} else {
			s.journalID = id
		}
	}

	p.sess = s
	p.logger.Info("session started",
		zap.String("journal", s.journalID),
		zap.Duration("restore_period", tracker.Period()))
}

func (p *Plugin) endSession(ctx context.Context, now time.Time) {
	s := p.sess
	if s == nil {
		return
	}
	p.sess = nil

	slots := make([]string, 0, len(s.shown))
	for slot := range s.shown {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		p.surface.Apply(display.Remove(slot))
	}

	s.correlator.Reset()
	s.queue.Clear()
	s.ledger.Clear()

	if p.journal != nil && s.journalID != "" {
		if err := p.journal.EndSession(ctx, s.journalID, now); err != nil {
			p.logger.Warn("journal session not ended", zap.String("journal", s.journalID), zap.Error(err))
		}
	}
	p.logger.Info("session ended", zap.String("journal", s.journalID))
}

func (p *Plugin) drawAmmo(s *session) {
	slot := display.AmmoSlotID(p.cfg.AmmoSlot)
	ammo, ok := p.player.Ammo()
	if !ok {
		s.ammoKnown = false
		p.remove(s, slot)
		return
	}
	changed := s.ammoKnown && s.ammo != ammo.ItemID
	s.ammo = ammo.ItemID
	s.ammoKnown = true
	p.upsert(s, display.Upsert(slot, ammo.ItemID, ammo.Amount, "", changed))
}

// upsert emits in unless the slot already shows exactly that. An icon
// refresh is always emitted.
func (p *Plugin) upsert(s *session, in display.Instruction) {
	shown := in
	shown.RefreshIcon = false
	if prev, ok := s.shown[in.Slot]; ok && !in.RefreshIcon && prev == shown {
		return
	}
	s.shown[in.Slot] = shown
	p.surface.Apply(in)
}

func (p *Plugin) remove(s *session, slot string) {
	if _, ok := s.shown[slot]; !ok {
		return
	}
	delete(s.shown, slot)
	p.surface.Apply(display.Remove(slot))
}
