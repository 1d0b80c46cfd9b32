package ports

import (
	"context"
	"time"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// ProfileUpdate carries the group settings to change; nil fields are kept.
type ProfileUpdate struct {
	Name        *string
	Description *string
	AvatarRef   *string
}

// ConversationRepository persists conversations together with their members.
//
// Conditional writes enforce their authorization and invariants inside the
// store; when the condition does not hold they return
// domain.ErrPreconditionFailed and leave the document untouched.
type ConversationRepository interface {
	// Create inserts c with its members as one unit and sets c.ID. A direct
	// conversation colliding with an existing pair returns
	// domain.ErrDuplicateConversation.
	Create(ctx context.Context, c *domain.Conversation) error
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindDirect(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	ListByMember(ctx context.Context, userID string) ([]*domain.Conversation, error)
	// ListPending returns pending direct conversations. An empty memberID
	// lists all of them.
	ListPending(ctx context.Context, memberID string) ([]*domain.Conversation, error)

	// Approve moves a pending conversation to approved.
	Approve(ctx context.Context, id, staffID string, at time.Time) error
	// UpdateProfile requires actorID to be an admin of the group.
	UpdateProfile(ctx context.Context, id, actorID string, upd ProfileUpdate) error
	// AddMember requires actorID to be a group admin, m.UserID not to be a
	// member yet and the group to hold fewer than maxMembers members.
	AddMember(ctx context.Context, id, actorID string, m domain.Member, maxMembers int) error
	// RemoveMember requires actorID to be a group admin, memberID to be a
	// member and at least one admin other than memberID to remain.
	RemoveMember(ctx context.Context, id, actorID, memberID string) error
	// PromoteMember requires actorID to be a group admin and memberID a member.
	PromoteMember(ctx context.Context, id, actorID, memberID string) error
	// ReserveSeq allocates the next message sequence number. It requires
	// senderID to be a member of an approved conversation.
	ReserveSeq(ctx context.Context, id, senderID string) (SeqReservation, error)
}

// SeqReservation is an allocated sequence number and the kind of the
// conversation it belongs to.
type SeqReservation struct {
	Seq  int64
	Kind domain.ConversationKind
}
