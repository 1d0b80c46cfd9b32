package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

const collectionMessages = "messages"

// MessageRepository implements ports.MessageRepository. Messages are never
// updated after insert.
type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection(collectionMessages)}
}

type messageDoc struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversation_id"`
	Seq            int64     `bson:"seq"`
	SenderID       string    `bson:"sender_id"`
	SenderName     string    `bson:"sender_name"`
	SenderRole     string    `bson:"sender_role"`
	Body           string    `bson:"body,omitempty"`
	AttachmentRef  string    `bson:"attachment_ref,omitempty"`
	AttachmentName string    `bson:"attachment_name,omitempty"`
	AttachmentType string    `bson:"attachment_type,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toMessageDoc(m *domain.Message) messageDoc {
	return messageDoc{
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
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

func (d messageDoc) toDomain() *domain.Message {
	return &domain.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		Seq:            d.Seq,
		SenderID:       d.SenderID,
		SenderName:     d.SenderName,
		SenderRole:     d.SenderRole,
		Body:           d.Body,
		AttachmentRef:  d.AttachmentRef,
		AttachmentName: d.AttachmentName,
		AttachmentType: d.AttachmentType,
		CreatedAt:      d.CreatedAt,
	}
}

func (r *MessageRepository) Insert(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toMessageDoc(m)); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListBefore(ctx context.Context, conversationID string, beforeSeq int64, limit int) ([]*domain.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	if beforeSeq > 0 {
		filter["seq"] = bson.M{"$lte": beforeSeq}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(limit))

	msgs, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	// fetched newest-first to apply the limit; callers get oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *MessageRepository) ListAfter(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"seq":             bson.M{"$gt": afterSeq},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *MessageRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Message, error) {
	var docs []messageDoc
	err := retryRead(func() error {
		ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()

		cursor, err := r.col.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		docs = docs[:0]
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	out := make([]*domain.Message, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}

// EnsureIndexes creates the unique (conversation_id, seq) index that backs
// both ordering and cursor pagination.
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
