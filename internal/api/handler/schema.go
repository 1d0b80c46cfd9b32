package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Requests ---

type startDirectRequest struct {
	TargetID string `json:"target_id" validate:"required,notblank"`
}

type createGroupRequest struct {
	Name        string   `json:"name"        validate:"required,notblank"`
	Description string   `json:"description" validate:"max=1000"`
	AvatarRef   string   `json:"avatar_ref"`
	MemberIDs   []string `json:"member_ids"  validate:"required,min=1,dive,required"`
}

type renameGroupRequest struct {
	Name string `json:"name" validate:"required,notblank"`
}

type setAvatarRequest struct {
	AvatarRef string `json:"avatar_ref" validate:"required"`
}

type addMembersRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

type appendMessageRequest struct {
	Body           string `json:"body"`
	AttachmentRef  string `json:"attachment_ref"`
	AttachmentName string `json:"attachment_name"`
	AttachmentType string `json:"attachment_type"`
}

// --- Responses ---

type memberResponse struct {
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	DisplayName string    `json:"display_name,omitempty"`
	UserRole    string    `json:"user_role,omitempty"`
}

type conversationLinks struct {
	Self     string `json:"self"`
	Messages string `json:"messages"`
	Members  string `json:"members"`
}

type conversationResponse struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind"`
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	AvatarRef      string            `json:"avatar_ref,omitempty"`
	CreatedBy      string            `json:"created_by"`
	ApprovalStatus string            `json:"approval_status"`
	ApprovedBy     string            `json:"approved_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastSeq        int64             `json:"last_seq"`
	Members        []memberResponse  `json:"members"`
	Links          conversationLinks `json:"_links"`
}

type startDirectResponse struct {
	Conversation conversationResponse `json:"conversation"`
	Created      bool                 `json:"created"`
}

type conversationListResponse struct {
	Items []conversationResponse `json:"items"`
}

type memberListResponse struct {
	Items []memberResponse `json:"items"`
}

type removalResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	ConfirmURL string    `json:"confirm_url"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int64     `json:"seq"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderRole     string    `json:"sender_role"`
	Body           string    `json:"body,omitempty"`
	AttachmentRef  string    `json:"attachment_ref,omitempty"`
	AttachmentName string    `json:"attachment_name,omitempty"`
	AttachmentType string    `json:"attachment_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type messageListResponse struct {
	Items []messageResponse `json:"items"`
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
	RelatedID string    `json:"related_id,omitempty"`
}

type notificationListResponse struct {
	Items       []notificationResponse `json:"items"`
	UnreadCount int64                  `json:"unread_count"`
}

type markAllReadResponse struct {
	Updated int64 `json:"updated"`
}
