package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/feedwatch/dbopen"
)

// visibleRecords is the SQL fragment selecting the records a reader may see:
// records of resources the reader owns, plus records of public resources the
// reader subscribes to. Takes the reader ID twice as a bind parameter.
const visibleRecords = `
	FROM change_records r
	JOIN resources res ON res.id = r.resource_id
	WHERE (res.owner_id = ?
	   OR (res.visibility = 'public' AND EXISTS (
	       SELECT 1 FROM subscriptions s
	       WHERE s.reader_id = ? AND s.resource_id = res.id)))`

// MarkRead upserts the read flag for one (reader, record) pair. read_at is
// set iff isRead; marking unread clears it. Starred state is preserved.
func (s *Store) MarkRead(ctx context.Context, readerID, recordID string, isRead bool) error {
	now := time.Now().UnixMilli()
	var readAt any
	if isRead {
		readAt = now
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO read_states (reader_id, record_id, is_read, read_at, is_starred, updated_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(reader_id, record_id) DO UPDATE SET
			is_read = excluded.is_read,
			read_at = excluded.read_at,
			updated_at = excluded.updated_at`,
		readerID, recordID, isRead, readAt, now,
	)
	return err
}

// ToggleStarred flips the starred flag for one (reader, record) pair,
// creating the row on first touch, and returns the resulting state.
func (s *Store) ToggleStarred(ctx context.Context, readerID, recordID string) (*ReadState, error) {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO read_states (reader_id, record_id, is_read, read_at, is_starred, updated_at)
		VALUES (?, ?, 0, NULL, 1, ?)
		ON CONFLICT(reader_id, record_id) DO UPDATE SET
			is_starred = NOT read_states.is_starred,
			updated_at = excluded.updated_at`,
		readerID, recordID, now,
	)
	if err != nil {
		return nil, err
	}
	return s.GetReadState(ctx, readerID, recordID)
}

// GetReadState retrieves the state for one (reader, record) pair. A missing
// row is returned as the zero state (unread, unstarred), not an error.
func (s *Store) GetReadState(ctx context.Context, readerID, recordID string) (*ReadState, error) {
	var st ReadState
	var isRead, isStarred int
	err := s.DB.QueryRowContext(ctx,
		`SELECT reader_id, record_id, is_read, read_at, is_starred, updated_at
		FROM read_states WHERE reader_id = ? AND record_id = ?`,
		readerID, recordID).
		Scan(&st.ReaderID, &st.RecordID, &isRead, &st.ReadAt, &isStarred, &st.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return &ReadState{ReaderID: readerID, RecordID: recordID}, nil
		}
		return nil, fmt.Errorf("scan read state: %w", err)
	}
	st.IsRead = isRead != 0
	st.IsStarred = isStarred != 0
	return &st, nil
}

// BulkMarkRead marks every listed record in a single transaction. Either
// all rows are written or none are. Duplicate ids count once; returns the
// number of distinct records touched.
func (s *Store) BulkMarkRead(ctx context.Context, readerID string, recordIDs []string, isRead bool) (int, error) {
	ids := make([]string, 0, len(recordIDs))
	seen := make(map[string]struct{}, len(recordIDs))
	for _, id := range recordIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UnixMilli()
	var readAt any
	if isRead {
		readAt = now
	}
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO read_states (reader_id, record_id, is_read, read_at, is_starred, updated_at)
			VALUES (?, ?, ?, ?, 0, ?)
			ON CONFLICT(reader_id, record_id) DO UPDATE SET
				is_read = excluded.is_read,
				read_at = excluded.read_at,
				updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, readerID, id, isRead, readAt, now); err != nil {
				return fmt.Errorf("mark %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ListStarred returns the reader's starred records among the records visible
// to them, newest first.
func (s *Store) ListStarred(ctx context.Context, readerID string) ([]*ChangeRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT r.id, r.resource_id, r.title, r.changes_json, r.summary, r.guid,
		r.published_at, r.created_at`+visibleRecords+`
		AND EXISTS (SELECT 1 FROM read_states rs
			WHERE rs.reader_id = ? AND rs.record_id = r.id AND rs.is_starred = 1)
		ORDER BY r.published_at DESC, r.id ASC`,
		readerID, readerID, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListUnread returns the reader's unread records among the records visible
// to them, newest first. A missing read_states row counts as unread. An
// empty resourceID returns unread records across all visible resources.
func (s *Store) ListUnread(ctx context.Context, readerID, resourceID string) ([]*ChangeRecord, error) {
	q := `SELECT r.id, r.resource_id, r.title, r.changes_json, r.summary, r.guid,
		r.published_at, r.created_at` + visibleRecords + `
		AND NOT EXISTS (SELECT 1 FROM read_states rs
			WHERE rs.reader_id = ? AND rs.record_id = r.id AND rs.is_read = 1)`
	args := []any{readerID, readerID, readerID}
	if resourceID != "" {
		q += ` AND r.resource_id = ?`
		args = append(args, resourceID)
	}
	q += ` ORDER BY r.published_at DESC, r.id ASC`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}
