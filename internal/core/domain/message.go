package domain

import "time"

// Message is an immutable entry of a conversation log. Seq is assigned by the
// store and totally orders messages within one conversation.
type Message struct {
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

// ValidateContent checks the body/attachment invariant and the body size
// bound. maxBodyBytes <= 0 disables the size check.
func ValidateContent(body, attachmentRef string, maxBodyBytes int) error {
	if body == "" && attachmentRef == "" {
		return ErrEmptyMessage
	}
	if maxBodyBytes > 0 && len(body) > maxBodyBytes {
		return ErrMessageTooLong
	}
	return nil
}
