package ports

import (
	"context"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// IdentityProvider resolves users maintained outside the messaging core.
//
// Precedence: the explicit role recorded for the user wins. A missing or
// inactive user resolves to domain.ErrUserNotFound, an unknown role to
// domain.ErrInvalidRole; both mean no access.
type IdentityProvider interface {
	ResolveUser(ctx context.Context, id string) (*domain.User, error)
	// ResolveUsers returns the resolvable subset of ids keyed by id.
	ResolveUsers(ctx context.Context, ids []string) (map[string]*domain.User, error)
}
