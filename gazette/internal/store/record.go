package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertRecord adds a new change record. The caller supplies id, guid, and
// published_at; created_at defaults to now.
func (s *Store) InsertRecord(ctx context.Context, rec *ChangeRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}
	if rec.ChangesJSON == "" {
		rec.ChangesJSON = "[]"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO change_records (id, resource_id, title, changes_json, summary,
		guid, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ResourceID, rec.Title, rec.ChangesJSON, rec.Summary,
		rec.GUID, rec.PublishedAt, rec.CreatedAt,
	)
	return err
}

// GetRecord retrieves a change record by ID. Returns (nil, nil) if absent.
func (s *Store) GetRecord(ctx context.Context, id string) (*ChangeRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, resource_id, title, changes_json, summary, guid, published_at, created_at
		FROM change_records WHERE id = ?`, id)
	return scanRecord(row)
}

// ListRecords returns the newest records for a resource, ordered by
// published_at descending with record ID as tiebreaker so the ordering is
// total and reproducible.
func (s *Store) ListRecords(ctx context.Context, resourceID string, limit int) ([]*ChangeRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, resource_id, title, changes_json, summary, guid, published_at, created_at
		FROM change_records
		WHERE resource_id = ?
		ORDER BY published_at DESC, id ASC
		LIMIT ?`, resourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// SetSummary writes the enrichment summary for a record, but only if the
// record has no summary yet. Returns false when the record is absent or
// already enriched, so concurrent enrichment attempts cannot overwrite each
// other.
func (s *Store) SetSummary(ctx context.Context, id, summary string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE change_records SET summary = ? WHERE id = ? AND summary = ''`,
		summary, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountRecords returns the number of records for a resource.
func (s *Store) CountRecords(ctx context.Context, resourceID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM change_records WHERE resource_id = ?`, resourceID).Scan(&count)
	return count, err
}

func scanRecord(row *sql.Row) (*ChangeRecord, error) {
	var rec ChangeRecord
	err := row.Scan(&rec.ID, &rec.ResourceID, &rec.Title, &rec.ChangesJSON,
		&rec.Summary, &rec.GUID, &rec.PublishedAt, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*ChangeRecord, error) {
	var records []*ChangeRecord
	for rows.Next() {
		var rec ChangeRecord
		if err := rows.Scan(&rec.ID, &rec.ResourceID, &rec.Title, &rec.ChangesJSON,
			&rec.Summary, &rec.GUID, &rec.PublishedAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
