package handler

import (
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// --- Domain → Response ---

func toConversationResponse(c *domain.Conversation) conversationResponse {
	base := "/v1/conversations/" + c.ID
	resp := conversationResponse{
		ID:             c.ID,
		Kind:           string(c.Kind),
		Name:           c.Name,
		Description:    c.Description,
		AvatarRef:      c.AvatarRef,
		CreatedBy:      c.CreatedBy,
		ApprovalStatus: string(c.ApprovalStatus),
		ApprovedBy:     c.ApprovedBy,
		CreatedAt:      c.CreatedAt,
		LastSeq:        c.LastSeq,
		Members:        make([]memberResponse, len(c.Members)),
		Links: conversationLinks{
			Self:     base,
			Messages: base + "/messages",
			Members:  base + "/members",
		},
	}
	for i, m := range c.Members {
		resp.Members[i] = memberResponse{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt}
	}
	return resp
}

func toConversationList(convs []*domain.Conversation) conversationListResponse {
	items := make([]conversationResponse, len(convs))
	for i, c := range convs {
		items[i] = toConversationResponse(c)
	}
	return conversationListResponse{Items: items}
}

func toMemberList(views []ports.MemberView) memberListResponse {
	items := make([]memberResponse, len(views))
	for i, v := range views {
		items[i] = memberResponse{
			UserID:      v.UserID,
			Role:        string(v.Role),
			JoinedAt:    v.JoinedAt,
			DisplayName: v.DisplayName,
			UserRole:    v.UserRole,
		}
	}
	return memberListResponse{Items: items}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Seq:            m.Seq,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderRole:     m.SenderRole,
		Body:           m.Body,
		AttachmentRef:  m.AttachmentRef,
		AttachmentName: m.AttachmentName,
		AttachmentType: m.AttachmentType,
		CreatedAt:      m.CreatedAt,
	}
}

func toMessageList(msgs []*domain.Message) messageListResponse {
	items := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		items[i] = toMessageResponse(m)
	}
	return messageListResponse{Items: items}
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Kind:      string(n.Kind),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		RelatedID: n.RelatedID,
	}
}
