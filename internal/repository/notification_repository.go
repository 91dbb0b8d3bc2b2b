package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/campus-booking/internal/model"
)

// NotificationRepo stores in-app notifications.
type NotificationRepo struct{ db *sqlx.DB }

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert stores n unread and fills its ID.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, reservation_id) VALUES (?,?,?)",
		n.UserID, n.Message, n.ReservationID)
	if err != nil {
		return wrap(err, "insert notification")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrap(err, "notification id")
	}
	n.ID = uint64(id)
	n.IsRead = false
	return nil
}

// ListByUser returns the notifications of userID, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error) {
	items := []model.Notification{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT id, user_id, message, reservation_id, is_read, created_at
		 FROM notifications WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, wrap(err, "list notifications")
	}
	return items, nil
}

// MarkRead flags one notification of userID as read.  A notification of
// another user is reported as ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return wrap(err, "mark notification read")
	}
	return affected(res, "mark notification read")
}

// MarkAllRead flags every unread notification of userID and returns how
// many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE user_id=? AND is_read=0", userID)
	if err != nil {
		return 0, wrap(err, "mark all read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(err, "mark all read")
	}
	return n, nil
}
