package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertResource adds a new resource.
func (s *Store) InsertResource(ctx context.Context, r *Resource) error {
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	if r.Visibility == "" {
		r.Visibility = "private"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO resources (id, owner_id, name, url, description, visibility,
		slug, enrich_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.Name, r.URL, r.Description, r.Visibility,
		r.Slug, r.EnrichEnabled, r.CreatedAt,
	)
	return err
}

// GetResource retrieves a resource by ID. Returns (nil, nil) if absent.
func (s *Store) GetResource(ctx context.Context, id string) (*Resource, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, owner_id, name, url, description, visibility, slug, enrich_enabled, created_at
		FROM resources WHERE id = ?`, id)
	return scanResource(row)
}

// GetResourceBySlug retrieves a public resource by its slug.
func (s *Store) GetResourceBySlug(ctx context.Context, slug string) (*Resource, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, owner_id, name, url, description, visibility, slug, enrich_enabled, created_at
		FROM resources WHERE slug = ? AND visibility = 'public'`, slug)
	return scanResource(row)
}

// ListResources returns all resources owned by the given owner.
func (s *Store) ListResources(ctx context.Context, ownerID string) ([]*Resource, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, owner_id, name, url, description, visibility, slug, enrich_enabled, created_at
		FROM resources WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []*Resource
	for rows.Next() {
		var r Resource
		var enrich int
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Name, &r.URL, &r.Description,
			&r.Visibility, &r.Slug, &enrich, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		r.EnrichEnabled = enrich != 0
		resources = append(resources, &r)
	}
	return resources, rows.Err()
}

func scanResource(row *sql.Row) (*Resource, error) {
	var r Resource
	var enrich int
	err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.URL, &r.Description,
		&r.Visibility, &r.Slug, &enrich, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	r.EnrichEnabled = enrich != 0
	return &r, nil
}
