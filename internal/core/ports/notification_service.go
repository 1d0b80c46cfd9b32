package ports

import (
	"context"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// NotifyInput describes one notification to create.
type NotifyInput struct {
	UserID    string
	Title     string
	Message   string
	Kind      domain.NotificationKind
	RelatedID string
}

// Notifier is the write side used by the other services.
type Notifier interface {
	Notify(ctx context.Context, input NotifyInput) (*domain.Notification, error)
}

// NotificationService is the notification dispatcher.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
