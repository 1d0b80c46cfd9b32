package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

const collectionConversations = "conversations"

// ConversationRepository implements ports.ConversationRepository. Members are
// embedded in the conversation document, so every membership rule is checked
// and applied by a single-document atomic update.
type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{col: db.Collection(collectionConversations)}
}

type memberDoc struct {
	UserID   string    `bson:"user_id"`
	Role     string    `bson:"role"`
	JoinedAt time.Time `bson:"joined_at"`
}

type conversationDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Kind           string             `bson:"kind"`
	Name           string             `bson:"name,omitempty"`
	Description    string             `bson:"description,omitempty"`
	AvatarRef      string             `bson:"avatar_ref,omitempty"`
	CreatedBy      string             `bson:"created_by"`
	ApprovalStatus string             `bson:"approval_status"`
	ApprovedBy     string             `bson:"approved_by,omitempty"`
	ApprovedAt     *time.Time         `bson:"approved_at,omitempty"`
	PairKey        string             `bson:"pair_key,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	Members        []memberDoc        `bson:"members"`
	LastSeq        int64              `bson:"last_seq"`
}

func toConversationDoc(c *domain.Conversation) conversationDoc {
	doc := conversationDoc{
		Kind:           string(c.Kind),
		Name:           c.Name,
		Description:    c.Description,
		AvatarRef:      c.AvatarRef,
		CreatedBy:      c.CreatedBy,
		ApprovalStatus: string(c.ApprovalStatus),
		ApprovedBy:     c.ApprovedBy,
		CreatedAt:      c.CreatedAt.UTC(),
		Members:        make([]memberDoc, len(c.Members)),
		LastSeq:        c.LastSeq,
	}
	for i, m := range c.Members {
		doc.Members[i] = memberDoc{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt.UTC()}
	}
	if c.Kind == domain.KindDirect && len(c.Members) == 2 {
		doc.PairKey = domain.DirectPairKey(c.Members[0].UserID, c.Members[1].UserID)
	}
	return doc
}

func (d conversationDoc) toDomain() *domain.Conversation {
	c := &domain.Conversation{
		ID:             d.ID.Hex(),
		Kind:           domain.ConversationKind(d.Kind),
		Name:           d.Name,
		Description:    d.Description,
		AvatarRef:      d.AvatarRef,
		CreatedBy:      d.CreatedBy,
		ApprovalStatus: domain.ApprovalStatus(d.ApprovalStatus),
		ApprovedBy:     d.ApprovedBy,
		CreatedAt:      d.CreatedAt,
		Members:        make([]domain.Member, len(d.Members)),
		LastSeq:        d.LastSeq,
	}
	for i, m := range d.Members {
		c.Members[i] = domain.Member{
			ConversationID: c.ID,
			UserID:         m.UserID,
			Role:           domain.MemberRole(m.Role),
			JoinedAt:       m.JoinedAt,
		}
	}
	return c
}

// Create inserts the conversation and its members as one document.
func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toConversationDoc(c)
	doc.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateConversation
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	c.ID = doc.ID.Hex()
	return nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrConversationNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ConversationRepository) FindDirect(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"pair_key": domain.DirectPairKey(userA, userB)})
}

func (r *ConversationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Conversation, error) {
	var doc conversationDoc
	err := retryRead(func() error {
		ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return r.col.FindOne(ctx, filter).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return doc.toDomain(), nil
}

// ListByMember returns the conversations userID belongs to, newest first.
func (r *ConversationRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"members.user_id": userID}, opts)
}

// ListPending returns pending direct conversations, oldest first.
func (r *ConversationRepository) ListPending(ctx context.Context, memberID string) ([]*domain.Conversation, error) {
	filter := bson.M{
		"kind":            string(domain.KindDirect),
		"approval_status": string(domain.ApprovalPending),
	}
	if memberID != "" {
		filter["members.user_id"] = memberID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *ConversationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Conversation, error) {
	var docs []conversationDoc
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
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	out := make([]*domain.Conversation, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}

func (r *ConversationRepository) Approve(ctx context.Context, id, staffID string, at time.Time) error {
	filter, err := byID(id)
	if err != nil {
		return err
	}
	filter["approval_status"] = string(domain.ApprovalPending)
	update := bson.M{"$set": bson.M{
		"approval_status": string(domain.ApprovalApproved),
		"approved_by":     staffID,
		"approved_at":     at.UTC(),
	}}
	return r.updateOne(ctx, filter, update)
}

func (r *ConversationRepository) UpdateProfile(ctx context.Context, id, actorID string, upd ports.ProfileUpdate) error {
	filter, err := groupAdminFilter(id, actorID)
	if err != nil {
		return err
	}
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.AvatarRef != nil {
		set["avatar_ref"] = *upd.AvatarRef
	}
	if len(set) == 0 {
		return nil
	}
	return r.updateOne(ctx, filter, bson.M{"$set": set})
}

func (r *ConversationRepository) AddMember(ctx context.Context, id, actorID string, m domain.Member, maxMembers int) error {
	filter, err := addMemberFilter(id, actorID, m.UserID, maxMembers)
	if err != nil {
		return err
	}
	update := bson.M{"$push": bson.M{"members": memberDoc{
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt.UTC(),
	}}}
	return r.updateOne(ctx, filter, update)
}

func (r *ConversationRepository) RemoveMember(ctx context.Context, id, actorID, memberID string) error {
	filter, err := removeMemberFilter(id, actorID, memberID)
	if err != nil {
		return err
	}
	update := bson.M{"$pull": bson.M{"members": bson.M{"user_id": memberID}}}
	return r.updateOne(ctx, filter, update)
}

func (r *ConversationRepository) PromoteMember(ctx context.Context, id, actorID, memberID string) error {
	filter, err := groupAdminFilter(id, actorID)
	if err != nil {
		return err
	}
	filter["members.user_id"] = memberID
	update := bson.M{"$set": bson.M{"members.$[target].role": string(domain.MemberRoleAdmin)}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"target.user_id": memberID}},
	})
	return r.updateOne(ctx, filter, update, opts)
}

// ReserveSeq increments last_seq atomically and returns the new value.
func (r *ConversationRepository) ReserveSeq(ctx context.Context, id, senderID string) (ports.SeqReservation, error) {
	filter, err := byID(id)
	if err != nil {
		return ports.SeqReservation{}, err
	}
	filter["approval_status"] = string(domain.ApprovalApproved)
	filter["members.user_id"] = senderID

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"last_seq": 1, "kind": 1})

	var out struct {
		LastSeq int64  `bson:"last_seq"`
		Kind    string `bson:"kind"`
	}
	err = r.col.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"last_seq": 1}}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ports.SeqReservation{}, domain.ErrPreconditionFailed
		}
		return ports.SeqReservation{}, fmt.Errorf("reserve seq: %w", err)
	}
	return ports.SeqReservation{Seq: out.LastSeq, Kind: domain.ConversationKind(out.Kind)}, nil
}

func (r *ConversationRepository) updateOne(ctx context.Context, filter, update bson.M, opts ...*options.UpdateOptions) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPreconditionFailed
	}
	return nil
}

// EnsureIndexes creates the indexes of the conversations collection.
func (r *ConversationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"pair_key": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "members.user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "approval_status", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func byID(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrConversationNotFound
	}
	return bson.M{"_id": oid}, nil
}

func adminElem(userID string) bson.M {
	return bson.M{"$elemMatch": bson.M{"user_id": userID, "role": string(domain.MemberRoleAdmin)}}
}

// groupAdminFilter matches the group only while actorID is one of its admins.
func groupAdminFilter(id, actorID string) (bson.M, error) {
	filter, err := byID(id)
	if err != nil {
		return nil, err
	}
	filter["kind"] = string(domain.KindGroup)
	filter["members"] = adminElem(actorID)
	return filter, nil
}

// addMemberFilter also requires userID to be absent and the group to hold
// fewer than maxMembers members.
func addMemberFilter(id, actorID, userID string, maxMembers int) (bson.M, error) {
	filter, err := groupAdminFilter(id, actorID)
	if err != nil {
		return nil, err
	}
	filter["members.user_id"] = bson.M{"$ne": userID}
	if maxMembers > 0 {
		filter[fmt.Sprintf("members.%d", maxMembers-1)] = bson.M{"$exists": false}
	}
	return filter, nil
}

// removeMemberFilter also requires memberID to be present and an admin other
// than memberID to remain, evaluated against the stored member set.
func removeMemberFilter(id, actorID, memberID string) (bson.M, error) {
	filter, err := byID(id)
	if err != nil {
		return nil, err
	}
	filter["kind"] = string(domain.KindGroup)
	filter["members.user_id"] = memberID
	filter["$and"] = bson.A{
		bson.M{"members": adminElem(actorID)},
		bson.M{"members": bson.M{"$elemMatch": bson.M{
			"user_id": bson.M{"$ne": memberID},
			"role":    string(domain.MemberRoleAdmin),
		}}},
	}
	return filter, nil
}
