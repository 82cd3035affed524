package ports

import (
	"context"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// UserRepository defines the identity store.
type UserRepository interface {
	// Create stores a new user and returns it with its id. A taken username
	// yields domain.ErrDuplicateUsername.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, id string, patch domain.UserPatch) error
	Delete(ctx context.Context, id string) error
}
