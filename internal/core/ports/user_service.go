package ports

import (
	"context"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// UpdateUserInput lists the profile fields to change. Nil fields are kept.
type UpdateUserInput struct {
	Username *string
	Password *string
}

// DeleteUserResult reports what the cascade removed.
type DeleteUserResult struct {
	DeletedNotes       int64
	DeletedCollections int64
}

// UserService defines profile management operations.
type UserService interface {
	List(ctx context.Context, actor domain.Identity) ([]*domain.User, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*domain.User, error)
	Update(ctx context.Context, actor domain.Identity, id string, in UpdateUserInput) error
	Delete(ctx context.Context, actor domain.Identity, id string) (*DeleteUserResult, error)
}
