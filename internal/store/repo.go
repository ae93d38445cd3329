package store

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session id has no journal entry.
var ErrSessionNotFound = errors.New("session not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
	Kinds  []EventKind
}

// EventKind names a journal entry.
type EventKind string

const (
	KindItemAction    EventKind = "host.item_action"
	KindLevelChanged  EventKind = "host.level_changed"
	KindStatsRestored EventKind = "host.stats_restored"

	KindBoostInstalled EventKind = "boost.installed"
	KindBoostDecayed   EventKind = "boost.decayed"
	KindBoostResolved  EventKind = "boost.resolved"
	KindBoostExpired   EventKind = "boost.expired"
)

// IsHost reports whether the kind records an inbound host notification.
func (k EventKind) IsHost() bool {
	switch k {
	case KindItemAction, KindLevelChanged, KindStatsRestored:
		return true
	}
	return false
}

// Session is one logged-in stretch of play.
type Session struct {
	ID            string
	StartedAt     time.Time
	EndedAt       time.Time // zero while open
	RestorePeriod time.Duration
	EventCount    int
}

// Open reports whether the session has not been ended.
func (s Session) Open() bool {
	return s.EndedAt.IsZero()
}

// Event is one journal entry. Which numeric fields are meaningful depends
// on Kind:
//
//   - host.item_action: Item, Value (action code), Succeeded, Payload
//     "effects" ([]int skill ids) when the item is consumable.
//   - host.level_changed: Skill, Value (new level), Base, Succeeded, Payload
//     "current" (live current level).
//   - boost.*: Skill, Item (source), Value (magnitude), Payload
//     "expires_at_ms" (absent while unknown) and "new_source".
type Event struct {
	Sequence  int64
	SessionID string
	At        time.Time
	Kind      EventKind
	Skill     int
	Item      int
	Value     int
	Base      int
	Succeeded bool
	Payload   map[string]any
}

// EventRepo provides append and query access to the session journal.
type EventRepo interface {
	// StartSession opens a new session and returns its id.
	StartSession(ctx context.Context, startedAt time.Time, restorePeriod time.Duration) (string, error)

	// EndSession marks a session as ended.
	EndSession(ctx context.Context, id string, endedAt time.Time) error

	// Append records an event; Sequence is assigned by the store.
	Append(ctx context.Context, ev Event) error

	// Events returns a session's events in sequence order.
	Events(ctx context.Context, sessionID string, opts QueryOpts) ([]Event, error)

	// Sessions returns sessions, newest first.
	Sessions(ctx context.Context, opts QueryOpts) ([]Session, error)

	// Session returns one session or ErrSessionNotFound.
	Session(ctx context.Context, id string) (*Session, error)

	// LatestSession returns the most recently started session, or nil if
	// none exist.
	LatestSession(ctx context.Context) (*Session, error)

	// PruneSessions deletes all but the keep most recent sessions.
	PruneSessions(ctx context.Context, keep int) error
}
