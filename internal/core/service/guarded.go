package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// guardedWrite validates conv with check, then runs the conditional write.
// The store re-evaluates the same rule atomically; when it reports the
// precondition as stale, the conversation is reloaded, check decides the
// typed error, and the write is retried once. The returned conversation is
// the state the successful write was checked against.
func guardedWrite(
	ctx context.Context,
	repo ports.ConversationRepository,
	conv *domain.Conversation,
	check func(*domain.Conversation) error,
	write func() error,
) (*domain.Conversation, error) {
	for attempt := 0; ; attempt++ {
		if err := check(conv); err != nil {
			return conv, err
		}
		err := write()
		if !errors.Is(err, domain.ErrPreconditionFailed) {
			return conv, err
		}
		if attempt == 1 {
			return conv, fmt.Errorf("conversation %s: %w", conv.ID, err)
		}
		conv, err = repo.FindByID(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
	}
}

// newConversationEvent stamps an event for the conversation topic.
func newConversationEvent(typ domain.EventType, conv *domain.Conversation, actorID string) domain.Event {
	return domain.Event{
		Type:           typ,
		Topic:          domain.ConversationTopic(conv.ID),
		ConversationID: conv.ID,
		ActorID:        actorID,
		At:             nowUTC(),
	}
}
