package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const (
	tableSessions = "sessions"
	tableEvents   = "journal_events"
)

var eventColumns = []string{
	"sequence", "session_id", "at_ms", "kind", "skill_id", "item_id",
	"value", "base", "succeeded", "payload",
}

// eventRepo implements EventRepo on the ent SQL driver.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *eventRepo) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *eventRepo) StartSession(ctx context.Context, startedAt time.Time, restorePeriod time.Duration) (string, error) {
	id := uuid.NewString()
	query, args := builder().Insert(tableSessions).
		Columns("id", "started_at", "restore_period_ms").
		Values(id, startedAt.UnixMilli(), restorePeriod.Milliseconds()).
		Query()
	if _, err := r.exec(ctx, query, args); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

func (r *eventRepo) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	query, args := builder().Update(tableSessions).
		Set("ended_at", endedAt.UnixMilli()).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := r.exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

func (r *eventRepo) Append(ctx context.Context, ev Event) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	payload := []byte("{}")
	if len(ev.Payload) > 0 {
		payload, err = json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	query, args := builder().Insert(tableEvents).
		Columns(eventColumns...).
		Values(seqNum, ev.SessionID, ev.At.UnixMilli(), string(ev.Kind), ev.Skill, ev.Item,
			ev.Value, ev.Base, ev.Succeeded, string(payload)).
		Query()
	if _, err := r.exec(ctx, query, args); err != nil {
		return fmt.Errorf("save %s event: %w", ev.Kind, err)
	}
	return nil
}

func (r *eventRepo) Events(ctx context.Context, sessionID string, opts QueryOpts) ([]Event, error) {
	sel := builder().Select(eventColumns...).
		From(entsql.Table(tableEvents)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Asc("sequence"))

	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	if opts.After > 0 {
		sel = sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel = sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel = sel.Where(entsql.GTE("at_ms", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		sel = sel.Where(entsql.LTE("at_ms", opts.To.UnixMilli()))
	}
	if len(opts.Kinds) > 0 {
		kinds := make([]any, len(opts.Kinds))
		for i, k := range opts.Kinds {
			kinds[i] = string(k)
		}
		sel = sel.Where(entsql.In("kind", kinds...))
	}

	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev      Event
			atMs    int64
			kind    string
			payload string
		)
		if err := rows.Scan(&ev.Sequence, &ev.SessionID, &atMs, &kind, &ev.Skill, &ev.Item,
			&ev.Value, &ev.Base, &ev.Succeeded, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.At = time.UnixMilli(atMs).UTC()
		ev.Kind = EventKind(kind)
		if payload != "" && payload != "{}" {
			if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload of event %d: %w", ev.Sequence, err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) Sessions(ctx context.Context, opts QueryOpts) ([]Session, error) {
	sel := builder().Select("id", "started_at", "ended_at", "restore_period_ms").
		From(entsql.Table(tableSessions)).
		// rowid keeps sessions with the same start in insertion order.
		OrderBy(entsql.Desc("started_at"), entsql.Desc("rowid"))

	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	if !opts.From.IsZero() {
		sel = sel.Where(entsql.GTE("started_at", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		sel = sel.Where(entsql.LTE("started_at", opts.To.UnixMilli()))
	}

	sessions, err := r.querySessions(ctx, sel)
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		n, err := r.countEvents(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].EventCount = n
	}
	return sessions, nil
}

func (r *eventRepo) Session(ctx context.Context, id string) (*Session, error) {
	sel := builder().Select("id", "started_at", "ended_at", "restore_period_ms").
		From(entsql.Table(tableSessions)).
		Where(entsql.EQ("id", id))

	sessions, err := r.querySessions(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	s := sessions[0]
	s.EventCount, err = r.countEvents(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *eventRepo) LatestSession(ctx context.Context) (*Session, error) {
	sessions, err := r.Sessions(ctx, QueryOpts{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (r *eventRepo) PruneSessions(ctx context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("prune sessions: keep must not be negative, got %d", keep)
	}
	// Prune by id rather than by start time: sessions recorded against a
	// virtual clock can share a start.
	query := `DELETE FROM ` + tableSessions + ` WHERE id NOT IN (
		SELECT id FROM ` + tableSessions + ` ORDER BY started_at DESC, rowid DESC LIMIT ?
	)`
	if _, err := r.exec(ctx, query, []any{keep}); err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	return nil
}

func (r *eventRepo) querySessions(ctx context.Context, sel *entsql.Selector) ([]Session, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s         Session
			startedAt int64
			endedAt   sql.NullInt64
			periodMs  int64
		)
		if err := rows.Scan(&s.ID, &startedAt, &endedAt, &periodMs); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.StartedAt = time.UnixMilli(startedAt).UTC()
		if endedAt.Valid {
			s.EndedAt = time.UnixMilli(endedAt.Int64).UTC()
		}
		s.RestorePeriod = time.Duration(periodMs) * time.Millisecond
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (r *eventRepo) countEvents(ctx context.Context, sessionID string) (int, error) {
	query, args := builder().Select(entsql.Count("*")).
		From(entsql.Table(tableEvents)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	n := 0
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scan event count: %w", err)
		}
	}
	return n, rows.Err()
}

// PayloadInt reads an integer payload field. JSON numbers decode as float64.
func PayloadInt(ev Event, key string) (int, bool) {
	switch v := ev.Payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// PayloadInts reads an integer list payload field.
func PayloadInts(ev Event, key string) ([]int, bool) {
	switch v := ev.Payload[key].(type) {
	case []any:
		out := make([]int, 0, len(v))
		for _, x := range v {
			f, ok := x.(float64)
			if !ok {
				return nil, false
			}
			out = append(out, int(f))
		}
		return out, true
	case []int:
		return v, true
	}
	return nil, false
}

// PayloadBool reads a boolean payload field.
func PayloadBool(ev Event, key string) (bool, bool) {
	b, ok := ev.Payload[key].(bool)
	return b, ok
}
