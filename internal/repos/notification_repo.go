package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type NotificationRepo struct{ base }

func NewNotificationRepo(db *sqlx.DB, opts ...Options) *NotificationRepo {
	return &NotificationRepo{newBase(db, opts)}
}

// Create inserts n. Re-inserting an existing id is a no-op so redelivery is safe.
func (r *NotificationRepo) Create(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt == "" {
		n.CreatedAt = now()
	}
	return r.write(ctx, "notification.create", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO notifications(id, user_id, type, title, message, read, created_at)
			VALUES(?,?,?,?,?,0,?)
			ON CONFLICT(id) DO NOTHING
		`, n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.CreatedAt)
		return err
	})
}

// ListByUser returns the newest limit notifications of userID.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	err := r.read(ctx, "notification.list", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &out, `
			SELECT id, user_id, type, title, message, read, created_at FROM notifications
			WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ?
		`, userID, limit)
	})
	return out, err
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.read(ctx, "notification.count_unread", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID)
	})
	return n, err
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	return r.write(ctx, "notification.mark_read", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotificationNotFound
		}
		return nil
	})
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	var n int64
	err := r.write(ctx, "notification.mark_all_read", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return int(n), err
}

func (r *NotificationRepo) Delete(ctx context.Context, id, userID string) error {
	return r.write(ctx, "notification.delete", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotificationNotFound
		}
		return nil
	})
}
