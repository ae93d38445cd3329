// Package sim is a virtual-time game host. It plays a scenario timeline,
// generates restore ticks and frames, and delivers them to a Handler in the
// order a real client would.
package sim

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/host"
	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/scenario"
	"github.com/abhisek/boostbar/internal/skill"
)

// ConsumeAction is the action code the simulated host uses for eating and
// drinking.
const ConsumeAction = 1

// Handler receives host notifications. *infobar.Plugin implements it.
type Handler interface {
	HandleLoggedIn(ctx context.Context, now time.Time, ev host.LoggedIn)
	HandleLoggedOut(ctx context.Context, now time.Time, ev host.LoggedOut)
	HandleItemAction(ctx context.Context, now time.Time, ev host.ItemActionInvoked)
	HandleSkillLevelChanged(ctx context.Context, now time.Time, ev host.SkillLevelChanged)
	HandleStatsRestored(ctx context.Context, now time.Time, ev host.StatsRestored)
	Frame(ctx context.Context, now time.Time)
}

// Note describes one delivered host event, for timelines and logs.
type Note struct {
	At   time.Time
	Kind string
	Text string
}

// Options configures an Engine.
type Options struct {
	// Start is the virtual time of the scenario's zero offset.
	Start time.Time

	Partition skill.Partition

	// Notify, if set, is called for every delivered host event except
	// frames.
	Notify func(Note)

	Logger *zap.Logger
}

// Engine is the simulated host. It also serves as the live-state view
// (host.Player) the plugin reads from.
type Engine struct {
	sc      *scenario.Scenario
	catalog *item.Registry
	part    skill.Partition
	notify  func(Note)
	logger  *zap.Logger
	handler Handler

	start     time.Time
	now       time.Time
	step      int
	nextTick  time.Time
	nextFrame time.Time

	levels   map[skill.ID]*skill.Level
	ammo     *host.AmmoSlot
	loggedIn bool
}

// New creates an engine positioned at the scenario start. Bind a handler
// before advancing.
func New(sc *scenario.Scenario, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	part := opts.Partition
	if len(part.CombatIDs()) == 0 {
		part = skill.DefaultPartition()
	}

	e := &Engine{
		sc:        sc,
		catalog:   sc.Catalog(),
		part:      part,
		notify:    opts.Notify,
		logger:    logger.Named("sim"),
		start:     start,
		now:       start,
		nextTick:  start.Add(sc.Restore.Phase.Std()),
		nextFrame: start,
		levels:    make(map[skill.ID]*skill.Level, len(sc.Skills)),
	}
	for _, s := range sc.Skills {
		e.levels[skill.ID(s.ID)] = &skill.Level{Current: s.Base, Base: s.Base}
	}
	if sc.Ammo != nil {
		e.ammo = &host.AmmoSlot{ItemID: item.ID(sc.Ammo.Item), Amount: sc.Ammo.Amount}
	}
	return e
}

// Bind sets the handler that receives host notifications.
func (e *Engine) Bind(h Handler) {
	e.handler = h
}

// Now returns the virtual clock.
func (e *Engine) Now() time.Time { return e.now }

// Start returns the virtual time of the scenario's zero offset.
func (e *Engine) Start() time.Time { return e.start }

// End returns the virtual time the scenario finishes.
func (e *Engine) End() time.Time {
	return e.start.Add(e.sc.Duration.Std())
}

// Done reports whether the whole scenario has been played.
func (e *Engine) Done() bool {
	return e.step >= len(e.sc.Timeline) && !e.now.Before(e.End())
}

// LoggedIn reports whether the simulated player is in the world.
func (e *Engine) LoggedIn() bool { return e.loggedIn }

// Catalog returns the item definitions.
func (e *Engine) Catalog() item.Catalog { return e.catalog }

// Run plays the scenario to its end.
func (e *Engine) Run(ctx context.Context) error {
	return e.Advance(ctx, e.End())
}

// Advance delivers every timeline step, restore tick and frame due up to and
// including to, in time order. At the same instant a timeline step goes
// first, then the restore tick, then the frame.
func (e *Engine) Advance(ctx context.Context, to time.Time) error {
	if e.handler == nil {
		return fmt.Errorf("advance: no handler bound")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, kind := e.nextEvent()
		if next.After(to) {
			if to.After(e.now) {
				e.now = to
			}
			return nil
		}
		e.now = next

		switch kind {
		case eventStep:
			st := e.sc.Timeline[e.step]
			e.step++
			e.apply(ctx, st)
		case eventTick:
			e.nextTick = e.nextTick.Add(e.sc.Restore.Period.Std())
			e.restore(ctx)
		case eventFrame:
			e.nextFrame = e.nextFrame.Add(e.sc.FrameInterval.Std())
			e.handler.Frame(ctx, e.now)
		}
	}
}

type eventKind int

const (
	eventStep eventKind = iota
	eventTick
	eventFrame
)

func (e *Engine) nextEvent() (time.Time, eventKind) {
	next, kind := e.nextFrame, eventFrame
	if !e.nextTick.After(next) {
		next, kind = e.nextTick, eventTick
	}
	if e.step < len(e.sc.Timeline) {
		if at := e.start.Add(e.sc.Timeline[e.step].At.Std()); !at.After(next) {
			next, kind = at, eventStep
		}
	}
	return next, kind
}

func (e *Engine) apply(ctx context.Context, st scenario.Step) {
	now := e.now
	switch st.Action {
	case scenario.ActionLogin:
		e.loggedIn = true
		e.note("login", "player logged in")
		e.handler.HandleLoggedIn(ctx, now, host.LoggedIn{})

	case scenario.ActionLogout:
		e.loggedIn = false
		e.note("logout", "player logged out")
		e.handler.HandleLoggedOut(ctx, now, host.LoggedOut{})

	case scenario.ActionConsume:
		e.consume(ctx, item.ID(st.Item))

	case scenario.ActionFailConsume:
		id := item.ID(st.Item)
		e.note("consume", fmt.Sprintf("failed to consume %s", e.sc.ItemName(id)))
		e.deliverItemAction(ctx, host.ItemActionInvoked{ActionCode: ConsumeAction, ItemID: id, Succeeded: false})

	case scenario.ActionUse:
		id := item.ID(st.Item)
		e.note("use", fmt.Sprintf("action %d on %s", st.Code, e.sc.ItemName(id)))
		e.deliverItemAction(ctx, host.ItemActionInvoked{ActionCode: st.Code, ItemID: id, Succeeded: true})

	case scenario.ActionEquipAmmo:
		amount := st.Amount
		if amount <= 0 {
			amount = 1
		}
		e.ammo = &host.AmmoSlot{ItemID: item.ID(st.Item), Amount: amount}
		e.note("ammo", fmt.Sprintf("equipped %d x %s", amount, e.sc.ItemName(item.ID(st.Item))))

	case scenario.ActionUnequipAmmo:
		e.ammo = nil
		e.note("ammo", "ammo unequipped")

	case scenario.ActionFireAmmo:
		if e.ammo == nil {
			return
		}
		n := st.Amount
		if n <= 0 {
			n = 1
		}
		e.ammo.Amount -= n
		if e.ammo.Amount <= 0 {
			e.ammo = nil
			e.note("ammo", "ammo ran out")
			return
		}
		e.note("ammo", fmt.Sprintf("fired %d, %d left", n, e.ammo.Amount))

	case scenario.ActionLevelUp:
		id := skill.ID(st.Skill)
		lvl := e.levels[id]
		n := st.Amount
		if n == 0 {
			n = 1
		}
		lvl.Base += n
		lvl.Current += n
		e.note("level", fmt.Sprintf("%s levelled to %d", id, lvl.Base))
		e.deliverLevel(ctx, id, lvl.Current)
	}
}

// consume applies an item's effects the way the host does: the item action
// arrives first, then one forced level change per effect.
func (e *Engine) consume(ctx context.Context, id item.ID) {
	def, _ := e.catalog.Lookup(id)
	e.note("consume", fmt.Sprintf("consumed %s", e.sc.ItemName(id)))
	e.deliverItemAction(ctx, host.ItemActionInvoked{ActionCode: ConsumeAction, ItemID: id, Succeeded: true})

	for _, eff := range def.Effects {
		lvl, ok := e.levels[eff.Skill]
		if !ok {
			continue
		}
		lvl.Current = lvl.Base + eff.Amount
		e.deliverLevel(ctx, eff.Skill, lvl.Current)
	}
}

// restore moves every modified skill one level back toward its base, then
// announces the tick.
func (e *Engine) restore(ctx context.Context) {
	for _, lvl := range e.levels {
		switch {
		case lvl.Current > lvl.Base:
			lvl.Current--
		case lvl.Current < lvl.Base:
			lvl.Current++
		}
	}
	if !e.loggedIn {
		return
	}
	e.note("restore", "stats restored")
	e.handler.HandleStatsRestored(ctx, e.now, host.StatsRestored{})
}

func (e *Engine) deliverItemAction(ctx context.Context, ev host.ItemActionInvoked) {
	if !e.loggedIn {
		return
	}
	e.handler.HandleItemAction(ctx, e.now, ev)
}

func (e *Engine) deliverLevel(ctx context.Context, id skill.ID, value int) {
	if !e.loggedIn {
		return
	}
	e.handler.HandleSkillLevelChanged(ctx, e.now, host.SkillLevelChanged{Skill: id, NewValue: value, Succeeded: true})
}

func (e *Engine) note(kind, text string) {
	e.logger.Debug(text, zap.String("kind", kind), zap.Duration("at", e.now.Sub(e.start)))
	if e.notify != nil {
		e.notify(Note{At: e.now, Kind: kind, Text: text})
	}
}

// CombatSkill implements host.Player.
func (e *Engine) CombatSkill(id skill.ID) (skill.Level, bool) {
	if e.part.KindOf(id) != skill.Combat {
		return skill.Level{}, false
	}
	return e.level(id)
}

// Skill implements host.Player.
func (e *Engine) Skill(id skill.ID) (skill.Level, bool) {
	if e.part.KindOf(id) != skill.NonCombat {
		return skill.Level{}, false
	}
	return e.level(id)
}

func (e *Engine) level(id skill.ID) (skill.Level, bool) {
	lvl, ok := e.levels[id]
	if !ok {
		return skill.Level{}, false
	}
	return *lvl, true
}

// Ammo implements host.Player.
func (e *Engine) Ammo() (host.AmmoSlot, bool) {
	if e.ammo == nil {
		return host.AmmoSlot{}, false
	}
	return *e.ammo, true
}

// Sprites returns the simulated icon atlas: a two-letter glyph per known
// item. Unknown items fail the lookup.
func (e *Engine) Sprites() display.SpriteIndex {
	return display.SpriteFunc(func(id item.ID) (string, error) {
		def, ok := e.catalog.Lookup(id)
		if !ok {
			return "", fmt.Errorf("no sprite for %s", id)
		}
		return glyph(def.Name, id), nil
	})
}

func glyph(name string, id item.ID) string {
	var b strings.Builder
	n := 0
	for _, w := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
		if n++; n == 2 {
			break
		}
	}
	if n == 0 {
		return fmt.Sprintf("%02d", int(id)%100)
	}
	return b.String()
}
