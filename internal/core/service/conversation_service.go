package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

type ConversationService struct {
	repo      ports.ConversationRepository
	identity  ports.IdentityProvider
	notifier  ports.Notifier
	publisher ports.EventPublisher
	limits    Limits
	logger    zerolog.Logger
}

func NewConversationService(
	repo ports.ConversationRepository,
	identity ports.IdentityProvider,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
	limits Limits,
	logger zerolog.Logger,
) *ConversationService {
	return &ConversationService{
		repo:      repo,
		identity:  identity,
		notifier:  notifier,
		publisher: publisher,
		limits:    limits,
		logger:    logger,
	}
}

// StartDirect returns the direct conversation between requester and target,
// creating it when none exists. Concurrent calls for the same pair converge
// on one conversation through the store's unique pair constraint.
func (s *ConversationService) StartDirect(ctx context.Context, requesterID, targetID string) (*ports.StartDirectResult, error) {
	if requesterID == targetID {
		return nil, domain.ErrSelfChat
	}
	requester, err := s.identity.ResolveUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	target, err := s.identity.ResolveUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindDirect(ctx, requesterID, targetID)
	if err == nil {
		metrics.DirectConversationsReusedTotal.Inc()
		return &ports.StartDirectResult{Conversation: existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	status, err := DecideInitialStatus(requester.Role)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	conv := &domain.Conversation{
		Kind:           domain.KindDirect,
		Name:           target.DisplayName,
		CreatedBy:      requesterID,
		ApprovalStatus: status,
		CreatedAt:      now,
		Members: []domain.Member{
			{UserID: requesterID, Role: domain.MemberRoleMember, JoinedAt: now},
			{UserID: targetID, Role: domain.MemberRoleMember, JoinedAt: now},
		},
	}
	if status == domain.ApprovalApproved {
		conv.ApprovedBy = requesterID
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		if !errors.Is(err, domain.ErrDuplicateConversation) {
			s.logger.Error().Err(err).Msg("failed to create direct conversation")
			return nil, err
		}
		// lost the race for this pair; the winner's row is the conversation
		existing, err := s.repo.FindDirect(ctx, requesterID, targetID)
		if err != nil {
			return nil, err
		}
		metrics.DirectConversationsReusedTotal.Inc()
		return &ports.StartDirectResult{Conversation: existing}, nil
	}
	stampMembers(conv)

	metrics.ConversationsCreatedTotal.WithLabelValues(string(conv.Kind), string(conv.ApprovalStatus)).Inc()
	s.logger.Info().
		Str("conversation_id", conv.ID).
		Str("requester_id", requesterID).
		Str("target_id", targetID).
		Str("approval_status", string(conv.ApprovalStatus)).
		Msg("direct conversation created")

	if conv.ApprovalStatus == domain.ApprovalPending && domain.IsStaff(target.Role) {
		s.notify(ctx, ports.NotifyInput{
			UserID:    targetID,
			Title:     "New chat request",
			Message:   fmt.Sprintf("%s wants to start a conversation with you.", requester.DisplayName),
			Kind:      domain.NotificationTask,
			RelatedID: conv.ID,
		})
	}

	return &ports.StartDirectResult{Conversation: conv, Created: true}, nil
}

// CreateGroup creates an approved group with the creator as its first admin.
// The conversation and every member row are written as one document.
func (s *ConversationService) CreateGroup(ctx context.Context, input ports.CreateGroupInput) (*domain.Conversation, error) {
	name, err := s.validGroupName(input.Name)
	if err != nil {
		return nil, err
	}

	memberIDs := uniqueExcept(input.MemberIDs, input.CreatorID)
	if len(memberIDs) == 0 {
		return nil, domain.ErrNoMembers
	}
	if s.limits.MaxGroupMembers > 0 && len(memberIDs)+1 > s.limits.MaxGroupMembers {
		return nil, domain.ErrGroupTooLarge
	}

	creator, err := s.identity.ResolveUser(ctx, input.CreatorID)
	if err != nil {
		return nil, err
	}
	users, err := s.identity.ResolveUsers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		if _, ok := users[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
		}
	}

	now := nowUTC()
	conv := &domain.Conversation{
		Kind:           domain.KindGroup,
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		AvatarRef:      input.AvatarRef,
		CreatedBy:      creator.ID,
		ApprovalStatus: domain.ApprovalApproved,
		ApprovedBy:     creator.ID,
		CreatedAt:      now,
		Members:        make([]domain.Member, 0, len(memberIDs)+1),
	}
	conv.Members = append(conv.Members, domain.Member{UserID: creator.ID, Role: domain.MemberRoleAdmin, JoinedAt: now})
	for _, id := range memberIDs {
		conv.Members = append(conv.Members, domain.Member{UserID: id, Role: domain.MemberRoleMember, JoinedAt: now})
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		s.logger.Error().Err(err).Msg("failed to create group")
		return nil, err
	}
	stampMembers(conv)

	metrics.ConversationsCreatedTotal.WithLabelValues(string(conv.Kind), string(conv.ApprovalStatus)).Inc()
	s.logger.Info().
		Str("conversation_id", conv.ID).
		Str("creator_id", creator.ID).
		Int("members", len(conv.Members)).
		Msg("group created")

	for _, id := range memberIDs {
		s.notify(ctx, ports.NotifyInput{
			UserID:    id,
			Title:     "Added to group",
			Message:   fmt.Sprintf("%s added you to %s.", creator.DisplayName, conv.Name),
			Kind:      domain.NotificationInfo,
			RelatedID: conv.ID,
		})
	}
	return conv, nil
}

func (s *ConversationService) RenameGroup(ctx context.Context, actorID, conversationID, newName string) (*domain.Conversation, error) {
	name, err := s.validGroupName(newName)
	if err != nil {
		return nil, err
	}
	conv, err := s.updateProfile(ctx, actorID, conversationID, ports.ProfileUpdate{Name: &name})
	if err != nil {
		return nil, err
	}
	conv.Name = name
	s.publishUpdated(conv, actorID)
	return conv, nil
}

// SetAvatar stores an opaque blob reference; the content is never inspected.
func (s *ConversationService) SetAvatar(ctx context.Context, actorID, conversationID, ref string) (*domain.Conversation, error) {
	conv, err := s.updateProfile(ctx, actorID, conversationID, ports.ProfileUpdate{AvatarRef: &ref})
	if err != nil {
		return nil, err
	}
	conv.AvatarRef = ref
	s.publishUpdated(conv, actorID)
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, actorID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CheckCanRead(actorID); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	return s.repo.ListByMember(ctx, userID)
}

func (s *ConversationService) updateProfile(ctx context.Context, actorID, conversationID string, upd ports.ProfileUpdate) (*domain.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return guardedWrite(ctx, s.repo, conv,
		func(c *domain.Conversation) error { return c.CheckGroupAdmin(actorID) },
		func() error { return s.repo.UpdateProfile(ctx, conversationID, actorID, upd) },
	)
}

func (s *ConversationService) publishUpdated(conv *domain.Conversation, actorID string) {
	evt := newConversationEvent(domain.EventConversationUpdated, conv, actorID)
	evt.Conversation = conv
	s.publisher.Enqueue(evt)
	s.logger.Info().Str("conversation_id", conv.ID).Str("actor_id", actorID).Msg("group updated")
}

func (s *ConversationService) validGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrEmptyGroupName
	}
	if s.limits.MaxGroupNameLen > 0 && utf8.RuneCountInString(name) > s.limits.MaxGroupNameLen {
		return "", domain.ErrGroupNameTooLong
	}
	return name, nil
}

// notify creates a notification and only logs a failure: the triggering
// operation has already been committed.
func (s *ConversationService) notify(ctx context.Context, in ports.NotifyInput) {
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		s.logger.Warn().Err(err).Str("user_id", in.UserID).Str("related_id", in.RelatedID).Msg("notification failed")
	}
}

// stampMembers copies the conversation id assigned on insert into its members.
func stampMembers(c *domain.Conversation) {
	for i := range c.Members {
		c.Members[i].ConversationID = c.ID
	}
}

// uniqueExcept returns ids without duplicates, blanks and skip, in input order.
func uniqueExcept(ids []string, skip string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == skip {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
