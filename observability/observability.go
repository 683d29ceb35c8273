// Package observability provides SQLite-native operational visibility for
// feedwatch. Events are plain rows in a dedicated database, queryable with
// plain SQL.
//
// The event log is the operator-visible channel for enrichment failures:
// a change record that exhausts its retry budget is recorded here and stays
// visible until an operator acts on it.
package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hazyhaar/feedwatch/idgen"
)

// Event represents a domain-level event to record.
type Event struct {
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Details    string `json:"details"` // optional JSON
	Success    bool   `json:"success"`
	CreatedAt  int64  `json:"created_at"` // milliseconds since epoch
}

// EventLogger writes business events and manages retention cleanup.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// Option configures an EventLogger.
type Option func(*EventLogger)

// WithIDGenerator sets a custom ID generator for event IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given observability database.
func NewEventLogger(db *sql.DB, opts ...Option) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records a business event. Errors are logged via slog but do not
// propagate, so a failing observability store never blocks the pipeline.
func (l *EventLogger) LogEvent(ctx context.Context, event Event) {
	if event.CreatedAt == 0 {
		event.CreatedAt = time.Now().UnixMilli()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO event_log (event_id, event_type, entity_type, entity_id, details, success, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		l.newID(), event.EventType, event.EntityType, event.EntityID,
		event.Details, event.Success, event.CreatedAt)
	if err != nil {
		slog.Error("observability: event log failed", "error", err, "event_type", event.EventType)
	}
}

// RecentEvents returns the newest events of the given type, newest first.
// An empty eventType returns events of every type.
func (l *EventLogger) RecentEvents(ctx context.Context, eventType string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT event_type, entity_type, entity_id, details, success, created_at
		FROM event_log`
	args := []any{}
	if eventType != "" {
		q += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.EventType, &e.EntityType, &e.EntityID, &e.Details, &e.Success, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Cleanup deletes events older than the retention window. Zero days means
// no cleanup.
func (l *EventLogger) Cleanup(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	_, err := l.db.ExecContext(ctx, `DELETE FROM event_log WHERE created_at < ?`, cutoff)
	return err
}
