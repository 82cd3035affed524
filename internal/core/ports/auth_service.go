package ports

import (
	"context"

	"github.com/wlcham/notes-server/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string, isAdmin bool) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}
