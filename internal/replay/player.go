package replay

import (
	"context"
	"time"

	"github.com/abhisek/boostbar/internal/host"
	"github.com/abhisek/boostbar/internal/skill"
	"github.com/abhisek/boostbar/internal/store"
)

// player rebuilds live levels from journaled level changes. Restore ticks
// move every modified skill one step back toward base, as the host does.
type player struct {
	levels map[skill.ID]skill.Level
}

func newPlayer() *player {
	return &player{levels: make(map[skill.ID]skill.Level)}
}

func (p *player) set(id skill.ID, lvl skill.Level) {
	p.levels[id] = lvl
}

func (p *player) restore() {
	for id, lvl := range p.levels {
		switch {
		case lvl.Current > lvl.Base:
			lvl.Current--
		case lvl.Current < lvl.Base:
			lvl.Current++
		}
		p.levels[id] = lvl
	}
}

// Both lookup paths read the same map; the journal already resolved which
// sub-object each level came from.
func (p *player) CombatSkill(id skill.ID) (skill.Level, bool) {
	lvl, ok := p.levels[id]
	return lvl, ok
}

func (p *player) Skill(id skill.ID) (skill.Level, bool) {
	lvl, ok := p.levels[id]
	return lvl, ok
}

// Ammo is not journaled.
func (p *player) Ammo() (host.AmmoSlot, bool) {
	return host.AmmoSlot{}, false
}

// captureJournal is an in-memory EventRepo holding one replayed session.
type captureJournal struct {
	events []store.Event
}

func (c *captureJournal) StartSession(context.Context, time.Time, time.Duration) (string, error) {
	return "replay", nil
}

func (c *captureJournal) EndSession(context.Context, string, time.Time) error { return nil }

func (c *captureJournal) Append(_ context.Context, ev store.Event) error {
	ev.Sequence = int64(len(c.events) + 1)
	c.events = append(c.events, ev)
	return nil
}

func (c *captureJournal) Events(context.Context, string, store.QueryOpts) ([]store.Event, error) {
	return c.events, nil
}

func (c *captureJournal) Sessions(context.Context, store.QueryOpts) ([]store.Session, error) {
	return nil, nil
}

func (c *captureJournal) Session(context.Context, string) (*store.Session, error) {
	return nil, store.ErrSessionNotFound
}

func (c *captureJournal) LatestSession(context.Context) (*store.Session, error) { return nil, nil }

func (c *captureJournal) PruneSessions(context.Context, int) error { return nil }

func (c *captureJournal) boostEvents() []store.Event {
	return boostEvents(c.events)
}
