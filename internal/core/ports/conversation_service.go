package ports

import (
	"context"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// CreateGroupInput carries the data needed to create a group conversation.
type CreateGroupInput struct {
	CreatorID   string
	Name        string
	Description string
	AvatarRef   string
	MemberIDs   []string
}

// StartDirectResult is returned by StartDirect. Created is false when an
// existing conversation for the pair was reused.
type StartDirectResult struct {
	Conversation *domain.Conversation
	Created      bool
}

// ConversationService covers conversation lifecycle and group settings.
type ConversationService interface {
	StartDirect(ctx context.Context, requesterID, targetID string) (*StartDirectResult, error)
	CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Conversation, error)
	RenameGroup(ctx context.Context, actorID, conversationID, newName string) (*domain.Conversation, error)
	SetAvatar(ctx context.Context, actorID, conversationID, ref string) (*domain.Conversation, error)
	Get(ctx context.Context, actorID, conversationID string) (*domain.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error)
}

// ApprovalService is the approval gate for intern-initiated direct chats.
type ApprovalService interface {
	DecideInitialStatus(requesterRole string) (domain.ApprovalStatus, error)
	Approve(ctx context.Context, staffID, conversationID string) (*domain.Conversation, error)
	ListPending(ctx context.Context, staffID string) ([]*domain.Conversation, error)
}
