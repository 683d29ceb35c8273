package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertReader adds a new reader.
func (s *Store) InsertReader(ctx context.Context, r *Reader) error {
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO readers (id, email_notifications_enabled, created_at)
		VALUES (?, ?, ?)`,
		r.ID, r.EmailNotificationsEnabled, r.CreatedAt,
	)
	return err
}

// GetReader retrieves a reader by ID. Returns (nil, nil) if absent.
func (s *Store) GetReader(ctx context.Context, id string) (*Reader, error) {
	var r Reader
	var enabled int
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email_notifications_enabled, created_at FROM readers WHERE id = ?`, id).
		Scan(&r.ID, &enabled, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan reader: %w", err)
	}
	r.EmailNotificationsEnabled = enabled != 0
	return &r, nil
}

// SetReaderNotifications updates the reader-level notification preference.
func (s *Store) SetReaderNotifications(ctx context.Context, id string, enabled bool) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE readers SET email_notifications_enabled = ? WHERE id = ?`, enabled, id)
	return err
}

// InsertSubscription links a reader to a resource. Re-subscribing updates
// the notification preference in place.
func (s *Store) InsertSubscription(ctx context.Context, sub *Subscription) error {
	if sub.CreatedAt == 0 {
		sub.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO subscriptions (reader_id, resource_id, notifications_enabled, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(reader_id, resource_id) DO UPDATE SET notifications_enabled = excluded.notifications_enabled`,
		sub.ReaderID, sub.ResourceID, sub.NotificationsEnabled, sub.CreatedAt,
	)
	return err
}

// GetSubscription retrieves a subscription. Returns (nil, nil) if absent.
func (s *Store) GetSubscription(ctx context.Context, readerID, resourceID string) (*Subscription, error) {
	var sub Subscription
	var enabled int
	err := s.DB.QueryRowContext(ctx,
		`SELECT reader_id, resource_id, notifications_enabled, created_at
		FROM subscriptions WHERE reader_id = ? AND resource_id = ?`,
		readerID, resourceID).
		Scan(&sub.ReaderID, &sub.ResourceID, &enabled, &sub.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.NotificationsEnabled = enabled != 0
	return &sub, nil
}
