// Package stores implements the persistence interfaces on top of SQLite.
package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/backoffice/internal/core/notify"
	"github.com/colonyops/backoffice/internal/data/db"
)

const busyRetries = 3

// NotifyStore implements notify.Store using SQLite.
type NotifyStore struct {
	db   *db.DB
	keep int64
}

var _ notify.Store = (*NotifyStore)(nil)

// NewNotifyStore creates a SQLite-backed notification store. When keep is
// positive only the newest keep notifications are retained.
func NewNotifyStore(db *db.DB, keep int) *NotifyStore {
	return &NotifyStore{db: db, keep: int64(keep)}
}

// Save persists a notification and returns its auto-generated ID.
func (s *NotifyStore) Save(ctx context.Context, n notify.Notification) (int64, error) {
	var (
		id  int64
		err error
	)

	for range busyRetries {
		err = s.db.WithTx(ctx, func(q *db.Queries) error {
			var ierr error
			id, ierr = q.InsertNotification(ctx, db.InsertNotificationParams{
				Level:     string(n.Level),
				Message:   n.Message,
				CreatedAt: n.CreatedAt.UnixNano(),
			})
			if ierr != nil {
				return ierr
			}
			if s.keep > 0 {
				_, ierr = q.PruneNotifications(ctx, s.keep)
			}
			return ierr
		})
		if !IsBusyError(err) {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}

	return id, nil
}

// List returns up to limit notifications ordered by newest first. A
// non-positive limit returns all of them.
func (s *NotifyStore) List(ctx context.Context, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Queries().ListNotifications(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	result := make([]notify.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, rowToNotification(row))
	}

	return result, nil
}

// Clear deletes all notifications.
func (s *NotifyStore) Clear(ctx context.Context) error {
	if err := s.db.Queries().DeleteAllNotifications(ctx); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// Count returns the total number of notifications.
func (s *NotifyStore) Count(ctx context.Context) (int64, error) {
	count, err := s.db.Queries().CountNotifications(ctx)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func rowToNotification(row db.Notification) notify.Notification {
	return notify.Notification{
		ID:        row.ID,
		Level:     notify.Level(row.Level),
		Message:   row.Message,
		CreatedAt: time.Unix(0, row.CreatedAt),
	}
}
