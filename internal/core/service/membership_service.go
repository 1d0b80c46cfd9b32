package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// errAlreadyMember short-circuits AddMembers for ids that joined meanwhile.
var errAlreadyMember = errors.New("already a member")

type MembershipService struct {
	repo          ports.ConversationRepository
	identity      ports.IdentityProvider
	notifier      ports.Notifier
	publisher     ports.EventPublisher
	confirmations ports.ConfirmationStore
	locks         *ConversationLocks
	limits        Limits
	logger        zerolog.Logger
}

func NewMembershipService(
	repo ports.ConversationRepository,
	identity ports.IdentityProvider,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
	confirmations ports.ConfirmationStore,
	locks *ConversationLocks,
	limits Limits,
	logger zerolog.Logger,
) *MembershipService {
	return &MembershipService{
		repo:          repo,
		identity:      identity,
		notifier:      notifier,
		publisher:     publisher,
		confirmations: confirmations,
		locks:         locks,
		limits:        limits,
		logger:        logger,
	}
}

// AddMembers adds userIDs to a group as plain members. Ids that already
// belong to the group are skipped; the returned slice holds the new rows.
func (s *MembershipService) AddMembers(ctx context.Context, actorID, conversationID string, userIDs []string) ([]domain.Member, error) {
	ids := uniqueExcept(userIDs, "")
	if len(ids) == 0 {
		return nil, domain.ErrNoMembers
	}

	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CheckGroupAdmin(actorID); err != nil {
		return nil, err
	}

	users, err := s.identity.ResolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
		}
	}

	actorName := actorID
	if actor, err := s.identity.ResolveUser(ctx, actorID); err == nil {
		actorName = actor.DisplayName
	}

	added := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		m := domain.Member{
			ConversationID: conversationID,
			UserID:         id,
			Role:           domain.MemberRoleMember,
			JoinedAt:       nowUTC(),
		}
		conv, err = guardedWrite(ctx, s.repo, conv,
			func(c *domain.Conversation) error {
				if err := c.CheckGroupAdmin(actorID); err != nil {
					return err
				}
				if c.IsMember(id) {
					return errAlreadyMember
				}
				if s.limits.MaxGroupMembers > 0 && len(c.Members) >= s.limits.MaxGroupMembers {
					return domain.ErrGroupTooLarge
				}
				return nil
			},
			func() error { return s.repo.AddMember(ctx, conversationID, actorID, m, s.limits.MaxGroupMembers) },
		)
		if errors.Is(err, errAlreadyMember) {
			continue
		}
		if err != nil {
			return added, err
		}
		conv.Members = append(conv.Members, m)
		added = append(added, m)

		metrics.MembershipChangesTotal.WithLabelValues("added").Inc()
		s.publishMember(domain.EventMemberAdded, conv, actorID, m)
		s.notify(ctx, ports.NotifyInput{
			UserID:    id,
			Title:     "Added to group",
			Message:   fmt.Sprintf("%s added you to %s.", actorName, conv.Name),
			Kind:      domain.NotificationInfo,
			RelatedID: conversationID,
		})
	}

	s.logger.Info().
		Str("conversation_id", conversationID).
		Str("actor_id", actorID).
		Int("added", len(added)).
		Msg("members added")
	return added, nil
}

// RemoveMember removes memberID from a group. The group always keeps at
// least one admin, and admins leave through a different flow than removal.
func (s *MembershipService) RemoveMember(ctx context.Context, actorID, conversationID, memberID string) error {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}

	// Appends hold the same lock, so no message sequenced after the removal
	// reaches the topic ahead of member.removed.
	unlock := s.locks.Lock(conversationID)
	conv, err = guardedWrite(ctx, s.repo, conv,
		func(c *domain.Conversation) error { return c.CheckRemoval(actorID, memberID) },
		func() error { return s.repo.RemoveMember(ctx, conversationID, actorID, memberID) },
	)
	if err != nil {
		unlock()
		if errors.Is(err, domain.ErrLastAdmin) {
			metrics.MembershipChangesTotal.WithLabelValues("rejected_last_admin").Inc()
		}
		return err
	}
	removed, _ := conv.Member(memberID)
	s.publishMember(domain.EventMemberRemoved, conv, actorID, removed)
	unlock()

	metrics.MembershipChangesTotal.WithLabelValues("removed").Inc()
	s.notify(ctx, ports.NotifyInput{
		UserID:    memberID,
		Title:     "Removed from group",
		Message:   fmt.Sprintf("You were removed from %s.", conv.Name),
		Kind:      domain.NotificationWarning,
		RelatedID: conversationID,
	})

	s.logger.Info().
		Str("conversation_id", conversationID).
		Str("actor_id", actorID).
		Str("member_id", memberID).
		Msg("member removed")
	return nil
}

// RequestMemberRemoval validates a removal and parks it behind a one-time
// token that the same actor must confirm before it expires.
func (s *MembershipService) RequestMemberRemoval(ctx context.Context, actorID, conversationID, memberID string) (*ports.RemovalConfirmation, error) {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CheckRemoval(actorID, memberID); err != nil {
		return nil, err
	}

	req := ports.RemovalRequest{
		Token:          uuid.NewString(),
		ConversationID: conversationID,
		ActorID:        actorID,
		MemberID:       memberID,
		ExpiresAt:      nowUTC().Add(s.limits.RemovalConfirmTTL),
	}
	if err := s.confirmations.Save(ctx, req, s.limits.RemovalConfirmTTL); err != nil {
		return nil, fmt.Errorf("save removal request: %w", err)
	}
	return &ports.RemovalConfirmation{Token: req.Token, ExpiresAt: req.ExpiresAt}, nil
}

// ConfirmMemberRemoval consumes a token issued to actorID and performs the
// removal it describes.
func (s *MembershipService) ConfirmMemberRemoval(ctx context.Context, actorID, token string) error {
	req, err := s.confirmations.Take(ctx, token, actorID)
	if err != nil {
		return err
	}
	return s.RemoveMember(ctx, actorID, req.ConversationID, req.MemberID)
}

// Promote grants the admin role. Promoting an admin is a no-op.
func (s *MembershipService) Promote(ctx context.Context, actorID, conversationID, memberID string) error {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := conv.CheckPromotion(actorID, memberID); err != nil {
		return err
	}
	if conv.IsAdmin(memberID) {
		return nil
	}

	conv, err = guardedWrite(ctx, s.repo, conv,
		func(c *domain.Conversation) error { return c.CheckPromotion(actorID, memberID) },
		func() error { return s.repo.PromoteMember(ctx, conversationID, actorID, memberID) },
	)
	if err != nil {
		return err
	}

	m, _ := conv.Member(memberID)
	m.Role = domain.MemberRoleAdmin
	metrics.MembershipChangesTotal.WithLabelValues("promoted").Inc()
	s.publishMember(domain.EventMemberPromoted, conv, actorID, m)
	s.notify(ctx, ports.NotifyInput{
		UserID:    memberID,
		Title:     "You are now an admin",
		Message:   fmt.Sprintf("You can now manage %s.", conv.Name),
		Kind:      domain.NotificationInfo,
		RelatedID: conversationID,
	})

	s.logger.Info().
		Str("conversation_id", conversationID).
		Str("actor_id", actorID).
		Str("member_id", memberID).
		Msg("member promoted")
	return nil
}

// ListMembers returns the members of a conversation the actor belongs to,
// joined with their directory profile.
func (s *MembershipService) ListMembers(ctx context.Context, actorID, conversationID string) ([]ports.MemberView, error) {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CheckCanRead(actorID); err != nil {
		return nil, err
	}

	ids := make([]string, len(conv.Members))
	for i, m := range conv.Members {
		ids[i] = m.UserID
	}
	users, err := s.identity.ResolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ports.MemberView, 0, len(conv.Members))
	for _, m := range conv.Members {
		v := ports.MemberView{Member: m}
		v.ConversationID = conv.ID
		if u, ok := users[m.UserID]; ok {
			v.DisplayName = u.DisplayName
			v.UserRole = u.Role
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *MembershipService) publishMember(typ domain.EventType, conv *domain.Conversation, actorID string, m domain.Member) {
	evt := newConversationEvent(typ, conv, actorID)
	evt.Member = &m
	s.publisher.Enqueue(evt)
}

func (s *MembershipService) notify(ctx context.Context, in ports.NotifyInput) {
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		s.logger.Warn().Err(err).Str("user_id", in.UserID).Str("related_id", in.RelatedID).Msg("notification failed")
	}
}
