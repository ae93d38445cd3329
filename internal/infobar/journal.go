package infobar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/boost"
	"github.com/abhisek/boostbar/internal/host"
	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/store"
)

// record appends ev to the session journal. Journal errors only cost the
// audit trail.
func (p *Plugin) record(ctx context.Context, ev store.Event) {
	if p.journal == nil || p.sess == nil || p.sess.journalID == "" {
		return
	}
	ev.SessionID = p.sess.journalID
	if err := p.journal.Append(ctx, ev); err != nil {
		p.logger.Warn("journal append failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

func (p *Plugin) recordItemAction(ctx context.Context, now time.Time, ev host.ItemActionInvoked, def item.Definition, consumable bool) {
	rec := store.Event{
		At:        now,
		Kind:      store.KindItemAction,
		Item:      int(ev.ItemID),
		Value:     ev.ActionCode,
		Succeeded: ev.Succeeded,
	}
	if consumable {
		effects := make([]int, 0, len(def.Effects))
		for _, id := range def.ImpactedSkills() {
			effects = append(effects, int(id))
		}
		rec.Payload = map[string]any{"effects": effects}
	}
	p.record(ctx, rec)
}

func (p *Plugin) recordLevelChange(ctx context.Context, now time.Time, ev host.SkillLevelChanged) {
	rec := store.Event{
		At:        now,
		Kind:      store.KindLevelChanged,
		Skill:     int(ev.Skill),
		Value:     ev.NewValue,
		Succeeded: ev.Succeeded,
	}
	if lvl, ok := p.levels.Level(ev.Skill); ok {
		rec.Base = lvl.Base
		rec.Payload = map[string]any{"current": lvl.Current}
	}
	p.record(ctx, rec)
}

var transitionKinds = map[boost.TransitionKind]store.EventKind{
	boost.Installed: store.KindBoostInstalled,
	boost.Decayed:   store.KindBoostDecayed,
	boost.Resolved:  store.KindBoostResolved,
	boost.Expired:   store.KindBoostExpired,
}

func (p *Plugin) recordTransition(ctx context.Context, tr boost.Transition) {
	b := tr.After
	if b == nil {
		b = tr.Before
	}
	if b == nil {
		return
	}
	payload := map[string]any{"new_source": b.IsNewSource}
	if b.ExpiryKnown() {
		payload["expires_at_ms"] = b.ExpiresAt.UnixMilli()
	}
	p.record(ctx, store.Event{
		At:      tr.At,
		Kind:    transitionKinds[tr.Kind],
		Skill:   int(b.Skill),
		Item:    int(b.SourceItem),
		Value:   b.Magnitude,
		Payload: payload,
	})
}
