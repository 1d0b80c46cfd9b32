package ports

import (
	"context"
	"time"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// MemberView is the presentation projection of a member.
type MemberView struct {
	domain.Member
	DisplayName string `json:"display_name"`
	UserRole    string `json:"user_role"`
}

// RemovalConfirmation is handed back by RequestMemberRemoval.
type RemovalConfirmation struct {
	Token     string
	ExpiresAt time.Time
}

// MembershipService manages group membership and member roles.
type MembershipService interface {
	AddMembers(ctx context.Context, actorID, conversationID string, userIDs []string) ([]domain.Member, error)
	RemoveMember(ctx context.Context, actorID, conversationID, memberID string) error
	RequestMemberRemoval(ctx context.Context, actorID, conversationID, memberID string) (*RemovalConfirmation, error)
	ConfirmMemberRemoval(ctx context.Context, actorID, token string) error
	Promote(ctx context.Context, actorID, conversationID, memberID string) error
	ListMembers(ctx context.Context, actorID, conversationID string) ([]MemberView, error)
}
