package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

const collectionUsers = "users"

// UserDirectory implements ports.IdentityProvider on top of the users
// collection maintained by the onboarding pipeline. It never writes.
type UserDirectory struct {
	col *mongo.Collection
}

func NewUserDirectory(db *mongo.Database) *UserDirectory {
	return &UserDirectory{col: db.Collection(collectionUsers)}
}

type userDoc struct {
	ID          string `bson:"_id"`
	DisplayName string `bson:"display_name"`
	Role        string `bson:"role"`
	Active      bool   `bson:"active"`
}

// toDomain applies the resolution precedence: the recorded role decides,
// and an inactive user or an unknown role grants nothing.
func (d userDoc) toDomain() (*domain.User, error) {
	if !d.Active {
		return nil, domain.ErrUserNotFound
	}
	if !domain.ValidRole(d.Role) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, d.Role)
	}
	return &domain.User{ID: d.ID, DisplayName: d.DisplayName, Role: d.Role}, nil
}

func (u *UserDirectory) ResolveUser(ctx context.Context, id string) (*domain.User, error) {
	var doc userDoc
	err := retryRead(func() error {
		ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return u.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain()
}

// ResolveUsers skips ids that do not resolve.
func (u *UserDirectory) ResolveUsers(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := u.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "active": true})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		if user, err := doc.toDomain(); err == nil {
			out[user.ID] = user
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}
