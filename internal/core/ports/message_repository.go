package ports

import (
	"context"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// MessageRepository is the append-only message log. Both list methods return
// messages oldest-first.
type MessageRepository interface {
	Insert(ctx context.Context, m *domain.Message) error
	// ListBefore returns the latest limit messages with seq <= beforeSeq, or
	// the latest limit overall when beforeSeq <= 0.
	ListBefore(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]*domain.Message, error)
	// ListAfter returns the first limit messages with seq > afterSeq.
	ListAfter(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error)
}
