package store

import (
	"context"

	"github.com/google/uuid"

	"projectflow/models"
)

// Notify stores a notification for its user; system notifications have no actor.
func (s *Store) Notify(ctx context.Context, n *models.Notification) error {
	if n.Title == "" || n.Message == "" {
		return invalid("Notify", models.KindNotification, "title and message are required")
	}
	if n.Type == "" {
		n.Type = models.NotifySystem
	}
	if n.Priority == "" {
		n.Priority = models.NotificationNormal
	}
	n.IsRead = false
	n.ReadAt = nil
	return s.Begin(nil).Create(n).Commit(ctx)
}

// MarkRead flips a user's notification to read. Reading twice keeps the first read time.
func (s *Store) MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error) {
	const op = "MarkRead"
	var n models.Notification
	err := s.read(ctx, models.KindNotification, ReadOptions{}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error
	if err != nil {
		return nil, translate(op, models.KindNotification, err)
	}
	if !n.MarkRead(s.now()) {
		return &n, nil
	}
	if err := s.Begin(&userID).Update(&n).Commit(ctx); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead reads every unread notification of the user and reports how many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.read(ctx, models.KindNotification, ReadOptions{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	return res.RowsAffected, translate("MarkAllRead", models.KindNotification, res.Error)
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, opts ReadOptions) ([]models.Notification, error) {
	q := s.read(ctx, models.KindNotification, opts).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Find(&out).Error
	return out, translate("ListNotifications", models.KindNotification, err)
}

// DeleteNotification hides one of the user's notifications.
func (s *Store) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	var n models.Notification
	err := s.read(ctx, models.KindNotification, ReadOptions{}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error
	if err != nil {
		return translate("DeleteNotification", models.KindNotification, err)
	}
	return s.Begin(&userID).Delete(&n).Commit(ctx)
}
