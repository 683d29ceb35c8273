package store

// Schema is the complete gazette schema.
const Schema = `
-- Monitored resources. The core registers and reads these; the change
-- detection pipeline that feeds them lives elsewhere.
CREATE TABLE IF NOT EXISTS resources (
    id              TEXT PRIMARY KEY,
    owner_id        TEXT NOT NULL,
    name            TEXT NOT NULL,
    url             TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    visibility      TEXT NOT NULL DEFAULT 'private',
    slug            TEXT NOT NULL DEFAULT '',
    enrich_enabled  INTEGER NOT NULL DEFAULT 1,
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resources_owner ON resources(owner_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_slug
    ON resources(slug) WHERE slug != '';

-- Immutable change records. summary is the single mutable field, written at
-- most once by the enrichment worker.
CREATE TABLE IF NOT EXISTS change_records (
    id              TEXT PRIMARY KEY,
    resource_id     TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
    title           TEXT NOT NULL DEFAULT '',
    changes_json    TEXT NOT NULL DEFAULT '[]',
    summary         TEXT NOT NULL DEFAULT '',
    guid            TEXT NOT NULL UNIQUE,
    published_at    INTEGER NOT NULL,
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_resource_time
    ON change_records(resource_id, published_at DESC);

-- Readers (feed consumers).
CREATE TABLE IF NOT EXISTS readers (
    id                          TEXT PRIMARY KEY,
    email_notifications_enabled INTEGER NOT NULL DEFAULT 1,
    created_at                  INTEGER NOT NULL
);

-- Reader subscriptions to resources.
CREATE TABLE IF NOT EXISTS subscriptions (
    reader_id             TEXT NOT NULL REFERENCES readers(id) ON DELETE CASCADE,
    resource_id           TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
    notifications_enabled INTEGER NOT NULL DEFAULT 1,
    created_at            INTEGER NOT NULL,
    PRIMARY KEY (reader_id, resource_id)
);

-- Per-reader read/starred state. Rows are created lazily; a missing row
-- means unread and unstarred.
CREATE TABLE IF NOT EXISTS read_states (
    reader_id   TEXT NOT NULL REFERENCES readers(id) ON DELETE CASCADE,
    record_id   TEXT NOT NULL REFERENCES change_records(id) ON DELETE CASCADE,
    is_read     INTEGER NOT NULL DEFAULT 0,
    read_at     INTEGER,
    is_starred  INTEGER NOT NULL DEFAULT 0,
    updated_at  INTEGER NOT NULL,
    PRIMARY KEY (reader_id, record_id)
);
CREATE INDEX IF NOT EXISTS idx_read_states_starred
    ON read_states(reader_id, is_starred);
`
