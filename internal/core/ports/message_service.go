package ports

import (
	"context"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// AppendMessageInput is the DTO passed from the transport layer to Append.
type AppendMessageInput struct {
	SenderID       string
	ConversationID string
	Body           string
	AttachmentRef  string // opaque blob-store reference
	AttachmentName string
	AttachmentType string
}

// ListMessagesInput selects a window of the log. Before is inclusive; zero
// means "latest".
type ListMessagesInput struct {
	ActorID        string
	ConversationID string
	Limit          int
	Before         int64
}

// MessageService appends to and reads from conversation logs.
type MessageService interface {
	Append(ctx context.Context, input AppendMessageInput) (*domain.Message, error)
	List(ctx context.Context, input ListMessagesInput) ([]*domain.Message, error)
	// ListSince is the reconnect contract: messages with seq > afterSeq.
	ListSince(ctx context.Context, actorID, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error)
	// Authorize reports whether actorID may subscribe to the conversation.
	Authorize(ctx context.Context, actorID, conversationID string) error
}
