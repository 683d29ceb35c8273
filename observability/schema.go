package observability

import "database/sql"

// Schema contains the DDL for the observability tables. Call Init(db) to
// apply it, or embed the constant in your own schema management.
//
// The observability database is kept separate from the application database
// to avoid write contention on the change-record store.
const Schema = `
-- Business events: enrichment outcomes, dead-letters, operational actions.
CREATE TABLE IF NOT EXISTS event_log (
    event_id    TEXT PRIMARY KEY,
    event_type  TEXT NOT NULL,
    entity_type TEXT NOT NULL DEFAULT '',
    entity_id   TEXT NOT NULL DEFAULT '',
    details     TEXT NOT NULL DEFAULT '{}',
    success     INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_log_type_time
    ON event_log(event_type, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_event_log_entity
    ON event_log(entity_type, entity_id);
`

// Init applies the observability schema.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
