package ports

import (
	"context"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// NotificationRepository stores per-user notifications. Every read and
// mutation is scoped to the owning user.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead returns domain.ErrNotificationNotFound when id does not belong
	// to userID.
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
