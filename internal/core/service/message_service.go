package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
	"github.com/syncroweb/launchpad/internal/pkg/ids"
)

type MessageService struct {
	convs     ports.ConversationRepository
	messages  ports.MessageRepository
	identity  ports.IdentityProvider
	publisher ports.EventPublisher
	locks     *ConversationLocks
	limits    Limits
	logger    zerolog.Logger
}

func NewMessageService(
	convs ports.ConversationRepository,
	messages ports.MessageRepository,
	identity ports.IdentityProvider,
	publisher ports.EventPublisher,
	locks *ConversationLocks,
	limits Limits,
	logger zerolog.Logger,
) *MessageService {
	return &MessageService{
		convs:     convs,
		messages:  messages,
		identity:  identity,
		publisher: publisher,
		locks:     locks,
		limits:    limits,
		logger:    logger,
	}
}

// Append validates, sequences, stores and publishes one message.
//
// Seq reservation, insert and enqueue run under the conversation's lock so
// that the enqueue order (and therefore the delivery order) equals seq order.
func (s *MessageService) Append(ctx context.Context, input ports.AppendMessageInput) (*domain.Message, error) {
	start := time.Now()

	if err := domain.ValidateContent(input.Body, input.AttachmentRef, s.limits.MaxMessageBytes); err != nil {
		metrics.MessageAppendRejectedTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	sender, err := s.identity.ResolveUser(ctx, input.SenderID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(input.ConversationID)
	defer unlock()

	res, err := s.reserveSeq(ctx, input.ConversationID, input.SenderID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotApproved):
			metrics.MessageAppendRejectedTotal.WithLabelValues("not_approved").Inc()
		case errors.Is(err, domain.ErrForbidden):
			metrics.MessageAppendRejectedTotal.WithLabelValues("forbidden").Inc()
		}
		return nil, err
	}

	now := nowUTC()
	msg := &domain.Message{
		ID:             ids.NewAt(now),
		ConversationID: input.ConversationID,
		Seq:            res.Seq,
		SenderID:       sender.ID,
		SenderName:     sender.DisplayName,
		SenderRole:     sender.Role,
		Body:           input.Body,
		AttachmentRef:  input.AttachmentRef,
		AttachmentName: input.AttachmentName,
		AttachmentType: input.AttachmentType,
		CreatedAt:      now,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		s.logger.Error().Err(err).
			Str("conversation_id", input.ConversationID).
			Int64("seq", res.Seq).
			Msg("failed to insert message")
		return nil, err
	}

	s.publisher.Enqueue(domain.Event{
		Type:           domain.EventMessageCreated,
		Topic:          domain.ConversationTopic(msg.ConversationID),
		ConversationID: msg.ConversationID,
		ActorID:        msg.SenderID,
		Message:        msg,
		At:             now,
	})

	metrics.MessagesAppendedTotal.WithLabelValues(string(res.Kind)).Inc()
	metrics.MessageAppendDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug().
		Str("conversation_id", msg.ConversationID).
		Str("message_id", msg.ID).
		Int64("seq", msg.Seq).
		Msg("message appended")
	return msg, nil
}

// reserveSeq asks the store for the next seq. The store checks membership
// and approval atomically; on refusal the conversation is loaded to report
// the precise reason, and the reservation is retried once when the reload
// shows the sender may append after all.
func (s *MessageService) reserveSeq(ctx context.Context, conversationID, senderID string) (ports.SeqReservation, error) {
	for attempt := 0; ; attempt++ {
		res, err := s.convs.ReserveSeq(ctx, conversationID, senderID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrPreconditionFailed) || attempt == 1 {
			return res, err
		}
		conv, err := s.convs.FindByID(ctx, conversationID)
		if err != nil {
			return res, err
		}
		if err := conv.CheckCanAppend(senderID); err != nil {
			return res, err
		}
	}
}

// List returns a page of the log oldest-first. Before is inclusive.
func (s *MessageService) List(ctx context.Context, input ports.ListMessagesInput) ([]*domain.Message, error) {
	if err := s.Authorize(ctx, input.ActorID, input.ConversationID); err != nil {
		return nil, err
	}
	return s.messages.ListBefore(ctx, input.ConversationID, input.Before, s.limits.pageSize(input.Limit))
}

func (s *MessageService) ListSince(ctx context.Context, actorID, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error) {
	if err := s.Authorize(ctx, actorID, conversationID); err != nil {
		return nil, err
	}
	if afterSeq < 0 {
		return nil, fmt.Errorf("%w: negative sequence", domain.ErrInvalidOperation)
	}
	return s.messages.ListAfter(ctx, conversationID, afterSeq, s.limits.pageSize(limit))
}

// Authorize fails unless actorID is a member of the conversation. Pending
// conversations are readable: they are empty until approved.
func (s *MessageService) Authorize(ctx context.Context, actorID, conversationID string) error {
	conv, err := s.convs.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	return conv.CheckCanRead(actorID)
}
