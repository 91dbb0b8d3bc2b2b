package service

import (
	"context"

	"github.com/iliyamo/campus-booking/internal/model"
)

// NotificationService is the read side of in-app notifications.
type NotificationService struct {
	d Deps
}

func NewNotificationService(d Deps) *NotificationService {
	return &NotificationService{d: d.withDefaults()}
}

func (s *NotificationService) List(ctx context.Context, userID uint64) ([]model.Notification, error) {
	return s.d.Store.ListNotifications(ctx, userID)
}

// MarkRead flags one of the user's notifications as read.  Notifications
// of other users are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) error {
	return translate(s.d.Store.MarkNotificationRead(ctx, userID, id))
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	return s.d.Store.MarkAllNotificationsRead(ctx, userID)
}
