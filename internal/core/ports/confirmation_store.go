package ports

import (
	"context"
	"time"
)

// RemovalRequest is the first half of the two-step member removal.
type RemovalRequest struct {
	Token          string    `json:"token"`
	ConversationID string    `json:"conversation_id"`
	ActorID        string    `json:"actor_id"`
	MemberID       string    `json:"member_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// ConfirmationStore keeps pending removal requests until confirmed or expired.
type ConfirmationStore interface {
	Save(ctx context.Context, req RemovalRequest, ttl time.Duration) error
	// Take returns and deletes the request atomically when actorID created
	// it. A missing or expired token yields domain.ErrConfirmationNotFound;
	// another actor gets domain.ErrForbidden and the request stays in place.
	Take(ctx context.Context, token, actorID string) (*RemovalRequest, error)
}
