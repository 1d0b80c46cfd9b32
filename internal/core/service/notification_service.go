package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
	"github.com/syncroweb/launchpad/internal/pkg/ids"
)

type NotificationService struct {
	repo      ports.NotificationRepository
	publisher ports.EventPublisher
	limits    Limits
	logger    zerolog.Logger
}

func NewNotificationService(repo ports.NotificationRepository, publisher ports.EventPublisher, limits Limits, logger zerolog.Logger) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, limits: limits, logger: logger}
}

// Notify stores a notification for one user and pushes it on the user's
// topic. A push without a listener is simply lost; the stored row remains.
func (s *NotificationService) Notify(ctx context.Context, input ports.NotifyInput) (*domain.Notification, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, domain.ErrUserNotFound
	}
	kind := input.Kind
	if kind == "" {
		kind = domain.NotificationInfo
	}

	now := nowUTC()
	n := &domain.Notification{
		ID:        ids.NewAt(now),
		UserID:    input.UserID,
		Title:     input.Title,
		Message:   input.Message,
		Kind:      kind,
		CreatedAt: now,
		RelatedID: input.RelatedID,
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, err
	}

	metrics.NotificationsCreatedTotal.WithLabelValues(string(n.Kind)).Inc()
	s.publisher.Enqueue(domain.Event{
		Type:         domain.EventNotificationCreated,
		Topic:        domain.UserTopic(n.UserID),
		Notification: n,
		At:           now,
	})

	s.logger.Info().
		Str("notification_id", n.ID).
		Str("user_id", n.UserID).
		Str("kind", string(n.Kind)).
		Msg("notification created")
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, s.limits.pageSize(limit))
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
