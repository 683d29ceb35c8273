package gazette

import (
	"context"
	"fmt"

	"github.com/hazyhaar/feedwatch/gazette/internal/store"
)

// MarkRead sets or clears the read flag for one record. Idempotent: marking
// an already-read record read again is a no-op with the same final state.
func (svc *Service) MarkRead(ctx context.Context, readerID, recordID string, isRead bool) error {
	if _, err := svc.mustReader(ctx, readerID); err != nil {
		return err
	}
	if _, err := svc.GetRecord(ctx, recordID); err != nil {
		return err
	}
	return svc.store.MarkRead(ctx, readerID, recordID, isRead)
}

// BulkMarkRead marks every listed record in a single transaction; a batch
// containing an unknown record fails as a whole. Returns the touched count.
func (svc *Service) BulkMarkRead(ctx context.Context, readerID string, recordIDs []string, isRead bool) (int, error) {
	if _, err := svc.mustReader(ctx, readerID); err != nil {
		return 0, err
	}
	count, err := svc.store.BulkMarkRead(ctx, readerID, recordIDs, isRead)
	if err != nil {
		if store.IsForeignKey(err) {
			return 0, fmt.Errorf("%w: batch references an unknown record", ErrNotFound)
		}
		return 0, err
	}
	return count, nil
}

// ToggleStarred flips the star on one record and returns the new state.
func (svc *Service) ToggleStarred(ctx context.Context, readerID, recordID string) (*ReadState, error) {
	if _, err := svc.mustReader(ctx, readerID); err != nil {
		return nil, err
	}
	if _, err := svc.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}
	return svc.store.ToggleStarred(ctx, readerID, recordID)
}

// ListStarred returns the reader's starred records among the records visible
// to them (owned resources plus public resources they subscribe to).
func (svc *Service) ListStarred(ctx context.Context, readerID string) ([]*ChangeRecord, error) {
	if _, err := svc.mustReader(ctx, readerID); err != nil {
		return nil, err
	}
	return svc.store.ListStarred(ctx, readerID)
}

// ListUnread returns the reader's unread visible records, optionally scoped
// to one resource. A record with no read state counts as unread.
func (svc *Service) ListUnread(ctx context.Context, readerID, resourceID string) ([]*ChangeRecord, error) {
	if _, err := svc.mustReader(ctx, readerID); err != nil {
		return nil, err
	}
	return svc.store.ListUnread(ctx, readerID, resourceID)
}

// SetReaderNotifications flips the reader-level notification switch. Turning
// it off silences every subscription the reader holds.
func (svc *Service) SetReaderNotifications(ctx context.Context, readerID string, enabled bool) error {
	if _, err := svc.mustReader(ctx, readerID); err != nil {
		return err
	}
	return svc.store.SetReaderNotifications(ctx, readerID, enabled)
}

// IsNotifiable reports whether a notification about the given resource may
// be sent to the reader: the reader-level switch and the subscription-level
// switch must both be on. A reader-level disable always wins, and a missing
// subscription means no.
func (svc *Service) IsNotifiable(ctx context.Context, readerID, resourceID string) (bool, error) {
	reader, err := svc.mustReader(ctx, readerID)
	if err != nil {
		return false, err
	}
	if !reader.EmailNotificationsEnabled {
		return false, nil
	}
	sub, err := svc.store.GetSubscription(ctx, readerID, resourceID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return sub.NotificationsEnabled, nil
}
