package services

import (
	"context"

	"makiti/internal/domain"
)

const notificationPageSize = 50

type NotificationService struct {
	Notifications NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{Notifications: store}
}

func (s *NotificationService) List(ctx context.Context, p domain.Principal) ([]domain.Notification, error) {
	return s.Notifications.ListByUser(ctx, p.UserID, notificationPageSize)
}

func (s *NotificationService) UnreadCount(ctx context.Context, p domain.Principal) (int, error) {
	return s.Notifications.CountUnread(ctx, p.UserID)
}

func (s *NotificationService) MarkRead(ctx context.Context, p domain.Principal, id string) error {
	return s.Notifications.MarkRead(ctx, id, p.UserID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, p domain.Principal) (int, error) {
	return s.Notifications.MarkAllRead(ctx, p.UserID)
}

func (s *NotificationService) Delete(ctx context.Context, p domain.Principal, id string) error {
	return s.Notifications.Delete(ctx, id, p.UserID)
}
