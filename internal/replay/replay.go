// Package replay re-drives a journaled session through a fresh info bar and
// checks that the boost lifecycle comes out the same.
package replay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/boostbar/internal/config"
	"github.com/abhisek/boostbar/internal/display"
	"github.com/abhisek/boostbar/internal/host"
	"github.com/abhisek/boostbar/internal/infobar"
	"github.com/abhisek/boostbar/internal/item"
	"github.com/abhisek/boostbar/internal/skill"
	"github.com/abhisek/boostbar/internal/store"
)

// Mismatch is a boost transition that differs between the recording and the
// replay. Either side is nil when one run produced more transitions.
type Mismatch struct {
	Index    int
	Recorded *store.Event
	Replayed *store.Event
}

func (m Mismatch) String() string {
	return fmt.Sprintf("#%d recorded %s, replayed %s", m.Index, describe(m.Recorded), describe(m.Replayed))
}

// Result summarizes a replay.
type Result struct {
	Session    store.Session
	HostEvents int
	Frames     int

	// Replayed holds the boost transitions the replay produced.
	Replayed   []store.Event
	Mismatches []Mismatch
}

// Faithful reports whether the replay reproduced every recorded transition.
func (r *Result) Faithful() bool {
	return len(r.Mismatches) == 0
}

// Replayer replays sessions from a journal.
type Replayer struct {
	repo   store.EventRepo
	cfg    config.Config
	logger *zap.Logger
}

// New creates a Replayer. cfg supplies the frame interval, debounce delay and
// skill partition; the restore period comes from the recorded session.
func New(repo store.EventRepo, cfg config.Config, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{repo: repo, cfg: cfg, logger: logger.Named("replay")}
}

// Replay re-drives sessionID, sending display instructions to surface (which
// may be nil).
func (r *Replayer) Replay(ctx context.Context, sessionID string, surface display.Surface) (*Result, error) {
	sess, err := r.repo.Session(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	events, err := r.repo.Events(ctx, sessionID, store.QueryOpts{})
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	cfg := r.cfg
	cfg.Enabled = true
	if sess.RestorePeriod > 0 {
		if cfg, err = cfg.WithRestorePeriod(sess.RestorePeriod); err != nil {
			return nil, fmt.Errorf("session %s: %w", sessionID, err)
		}
	}

	player := newPlayer()
	capture := &captureJournal{}
	plugin := infobar.New(infobar.Options{
		Config:  cfg,
		Player:  player,
		Catalog: catalogFrom(events),
		Surface: surface,
		Journal: capture,
		Logger:  r.logger,
	})

	res := &Result{Session: *sess}
	d := &driver{plugin: plugin, interval: cfg.FrameInterval, lastFrame: sess.StartedAt, res: res}

	plugin.Start(ctx, sess.StartedAt)
	plugin.HandleLoggedIn(ctx, sess.StartedAt, host.LoggedIn{})

	end := sess.StartedAt
	for _, ev := range events {
		if ev.At.After(end) {
			end = ev.At
		}
		if !ev.Kind.IsHost() {
			continue
		}
		d.framesBefore(ctx, ev.At)
		res.HostEvents++

		switch ev.Kind {
		case store.KindItemAction:
			plugin.HandleItemAction(ctx, ev.At, host.ItemActionInvoked{
				ActionCode: ev.Value,
				ItemID:     item.ID(ev.Item),
				Succeeded:  ev.Succeeded,
			})
		case store.KindLevelChanged:
			current, ok := store.PayloadInt(ev, "current")
			if !ok {
				current = ev.Value
			}
			player.set(skill.ID(ev.Skill), skill.Level{Current: current, Base: ev.Base})
			plugin.HandleSkillLevelChanged(ctx, ev.At, host.SkillLevelChanged{
				Skill:     skill.ID(ev.Skill),
				NewValue:  ev.Value,
				Succeeded: ev.Succeeded,
			})
		case store.KindStatsRestored:
			player.restore()
			plugin.HandleStatsRestored(ctx, ev.At, host.StatsRestored{})
		}
	}

	if sess.Open() {
		// The recording stopped mid-session; its last frame may share the
		// last event's instant.
		d.framesBefore(ctx, end.Add(time.Nanosecond))
	} else {
		// A logout is delivered ahead of the frame at the same instant.
		if sess.EndedAt.After(end) {
			end = sess.EndedAt
		}
		d.framesBefore(ctx, end)
	}
	plugin.HandleLoggedOut(ctx, end, host.LoggedOut{})

	res.Replayed = capture.boostEvents()
	res.Mismatches = compare(boostEvents(events), res.Replayed)
	r.logger.Info("session replayed",
		zap.String("session", sessionID),
		zap.Int("host_events", res.HostEvents),
		zap.Int("frames", res.Frames),
		zap.Int("mismatches", len(res.Mismatches)))
	return res, nil
}

// driver runs frames on a fixed grid from the session start.
type driver struct {
	plugin    *infobar.Plugin
	interval  time.Duration
	lastFrame time.Time
	res       *Result
}

// framesBefore runs every grid frame strictly before to, so an event at a
// frame instant is delivered ahead of that frame as the host does.
func (d *driver) framesBefore(ctx context.Context, to time.Time) {
	for next := d.lastFrame.Add(d.interval); next.Before(to); next = next.Add(d.interval) {
		d.plugin.Frame(ctx, next)
		d.lastFrame = next
		d.res.Frames++
	}
}

func catalogFrom(events []store.Event) *item.Registry {
	reg := item.NewRegistry()
	for _, ev := range events {
		if ev.Kind != store.KindItemAction {
			continue
		}
		def := item.Definition{ID: item.ID(ev.Item)}
		if effects, ok := store.PayloadInts(ev, "effects"); ok {
			def.Effects = make([]item.Effect, 0, len(effects))
			for _, id := range effects {
				def.Effects = append(def.Effects, item.Effect{Skill: skill.ID(id)})
			}
		}
		reg.Add(def)
	}
	return reg
}

func boostEvents(events []store.Event) []store.Event {
	var out []store.Event
	for _, ev := range events {
		if !ev.Kind.IsHost() {
			out = append(out, ev)
		}
	}
	return out
}

func compare(recorded, replayed []store.Event) []Mismatch {
	var out []Mismatch
	n := max(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		var rec, rep *store.Event
		if i < len(recorded) {
			rec = &recorded[i]
		}
		if i < len(replayed) {
			rep = &replayed[i]
		}
		if rec != nil && rep != nil && same(*rec, *rep) {
			continue
		}
		out = append(out, Mismatch{Index: i, Recorded: rec, Replayed: rep})
	}
	return out
}

// same compares what the lifecycle decided, not when the frame grid noticed.
func same(a, b store.Event) bool {
	return a.Kind == b.Kind && a.Skill == b.Skill && a.Item == b.Item && a.Value == b.Value
}

func describe(ev *store.Event) string {
	if ev == nil {
		return "nothing"
	}
	return fmt.Sprintf("%s skill=%d item=%d value=%d", ev.Kind, ev.Skill, ev.Item, ev.Value)
}
