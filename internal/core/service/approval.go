package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// DecideInitialStatus is the approval-gate policy: only staff-initiated
// direct chats are trusted by default.
func DecideInitialStatus(requesterRole string) (domain.ApprovalStatus, error) {
	switch requesterRole {
	case domain.RoleIntern:
		return domain.ApprovalPending, nil
	case domain.RoleAdmin, domain.RoleEmployee:
		return domain.ApprovalApproved, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidRole, requesterRole)
	}
}

// ApprovalGate implements ports.ApprovalService.
type ApprovalGate struct {
	repo      ports.ConversationRepository
	identity  ports.IdentityProvider
	notifier  ports.Notifier
	publisher ports.EventPublisher
	logger    zerolog.Logger
}

func NewApprovalGate(
	repo ports.ConversationRepository,
	identity ports.IdentityProvider,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
	logger zerolog.Logger,
) *ApprovalGate {
	return &ApprovalGate{repo: repo, identity: identity, notifier: notifier, publisher: publisher, logger: logger}
}

func (g *ApprovalGate) DecideInitialStatus(requesterRole string) (domain.ApprovalStatus, error) {
	return DecideInitialStatus(requesterRole)
}

// Approve moves a pending conversation to approved on behalf of a staff
// member. Approving an approved conversation is a no-op.
func (g *ApprovalGate) Approve(ctx context.Context, staffID, conversationID string) (*domain.Conversation, error) {
	staff, err := g.requireStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}

	conv, err := g.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.ApprovalStatus == domain.ApprovalApproved {
		metrics.ApprovalsTotal.WithLabelValues("noop").Inc()
		return conv, nil
	}
	if !conv.ApprovalStatus.CanTransitionTo(domain.ApprovalApproved) {
		return nil, fmt.Errorf("%w: cannot approve from %s", domain.ErrInvalidOperation, conv.ApprovalStatus)
	}

	err = g.repo.Approve(ctx, conversationID, staffID, nowUTC())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		// Another staff member approved concurrently; their call owns the side effects.
		metrics.ApprovalsTotal.WithLabelValues("noop").Inc()
		return g.repo.FindByID(ctx, conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}

	conv.ApprovalStatus = domain.ApprovalApproved
	conv.ApprovedBy = staffID
	metrics.ApprovalsTotal.WithLabelValues("approved").Inc()

	evt := newConversationEvent(domain.EventConversationApproved, conv, staffID)
	evt.Conversation = conv
	g.publisher.Enqueue(evt)

	if _, err := g.notifier.Notify(ctx, ports.NotifyInput{
		UserID:    conv.CreatedBy,
		Title:     "Chat request approved",
		Message:   fmt.Sprintf("%s approved your chat request.", staff.DisplayName),
		Kind:      domain.NotificationSuccess,
		RelatedID: conv.ID,
	}); err != nil {
		g.logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("approval notification failed")
	}

	g.logger.Info().
		Str("conversation_id", conv.ID).
		Str("approved_by", staffID).
		Msg("conversation approved")

	return conv, nil
}

// ListPending returns the direct requests awaiting approval that staffID can
// act on: every one for admins, the ones addressed to them for employees.
func (g *ApprovalGate) ListPending(ctx context.Context, staffID string) ([]*domain.Conversation, error) {
	staff, err := g.requireStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	scope := staffID
	if staff.Role == domain.RoleAdmin {
		scope = ""
	}
	return g.repo.ListPending(ctx, scope)
}

func (g *ApprovalGate) requireStaff(ctx context.Context, userID string) (*domain.User, error) {
	user, err := g.identity.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !domain.IsStaff(user.Role) {
		return nil, domain.ErrForbidden
	}
	return user, nil
}
