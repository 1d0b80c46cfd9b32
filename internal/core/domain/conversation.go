package domain

import (
	"sort"
	"strings"
	"time"
)

// ConversationKind distinguishes two-party chats from groups.
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// ApprovalStatus is the approval-gate state of a conversation.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
)

// validApprovalTransitions defines the approval state machine. approved is
// terminal: there is no way back to pending.
var validApprovalTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalPending: {ApprovalApproved},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	for _, allowed := range validApprovalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MemberRole is the per-conversation authorization tag.
type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin"
)

// Member is one participant of a conversation.
type Member struct {
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	Role           MemberRole `json:"role"`
	JoinedAt       time.Time  `json:"joined_at"`
}

// Conversation is the aggregate root of the messaging core. Members are part
// of the aggregate so that creation and membership checks are atomic.
type Conversation struct {
	ID             string           `json:"id"`
	Kind           ConversationKind `json:"kind"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	AvatarRef      string           `json:"avatar_ref,omitempty"`
	CreatedBy      string           `json:"created_by"`
	ApprovalStatus ApprovalStatus   `json:"approval_status"`
	ApprovedBy     string           `json:"approved_by,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Members        []Member         `json:"members,omitempty"`
	LastSeq        int64            `json:"last_seq"`
}

// DirectPairKey returns the order-independent key identifying the direct
// conversation between a and b.
func DirectPairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Member returns the membership row of userID, if any.
func (c *Conversation) Member(userID string) (Member, bool) {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

func (c *Conversation) IsMember(userID string) bool {
	_, ok := c.Member(userID)
	return ok
}

func (c *Conversation) IsAdmin(userID string) bool {
	m, ok := c.Member(userID)
	return ok && m.Role == MemberRoleAdmin
}

// AdminCount returns the number of members holding the admin role.
func (c *Conversation) AdminCount() int {
	n := 0
	for _, m := range c.Members {
		if m.Role == MemberRoleAdmin {
			n++
		}
	}
	return n
}

// CounterpartOf returns the other participant of a direct conversation.
func (c *Conversation) CounterpartOf(userID string) string {
	for _, m := range c.Members {
		if m.UserID != userID {
			return m.UserID
		}
	}
	return ""
}

// CheckCanRead fails unless userID is a member.
func (c *Conversation) CheckCanRead(userID string) error {
	if !c.IsMember(userID) {
		return ErrForbidden
	}
	return nil
}

// CheckCanAppend fails unless senderID is a member of an approved conversation.
func (c *Conversation) CheckCanAppend(senderID string) error {
	if !c.IsMember(senderID) {
		return ErrForbidden
	}
	if c.ApprovalStatus != ApprovalApproved {
		return ErrNotApproved
	}
	return nil
}

// CheckGroupAdmin fails unless c is a group and actorID one of its admins.
func (c *Conversation) CheckGroupAdmin(actorID string) error {
	if c.Kind != KindGroup {
		return ErrNotGroup
	}
	if !c.IsAdmin(actorID) {
		return ErrForbidden
	}
	return nil
}

// CheckRemoval validates removing memberID on behalf of actorID. The
// last-admin rule is evaluated before the self-removal rule, so the sole
// admin trying to remove themselves gets ErrLastAdmin.
func (c *Conversation) CheckRemoval(actorID, memberID string) error {
	if err := c.CheckGroupAdmin(actorID); err != nil {
		return err
	}
	target, ok := c.Member(memberID)
	if !ok {
		return ErrMemberNotFound
	}
	if target.Role == MemberRoleAdmin && c.AdminCount() <= 1 {
		return ErrLastAdmin
	}
	if actorID == memberID {
		return ErrSelfRemoval
	}
	return nil
}

// CheckPromotion validates promoting memberID on behalf of actorID.
func (c *Conversation) CheckPromotion(actorID, memberID string) error {
	if err := c.CheckGroupAdmin(actorID); err != nil {
		return err
	}
	if !c.IsMember(memberID) {
		return ErrMemberNotFound
	}
	return nil
}
