package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlcham/notes-server/internal/pkg/metrics"
	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

type userService struct {
	users       ports.UserRepository
	notes       ports.NoteRepository
	collections ports.CollectionRepository
	bcryptCost  int
	log         zerolog.Logger
}

// NewUserService returns a UserService implementation.
func NewUserService(
	users ports.UserRepository,
	notes ports.NoteRepository,
	collections ports.CollectionRepository,
	bcryptCost int,
	log zerolog.Logger,
) ports.UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		users:       users,
		notes:       notes,
		collections: collections,
		bcryptCost:  bcryptCost,
		log:         log,
	}
}

func (s *userService) List(ctx context.Context, actor domain.Identity) ([]*domain.User, error) {
	if !actor.IsAdmin {
		return nil, domain.Errorf(domain.ErrForbidden, "Only admins can view all users.")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.User, error) {
	return s.load(ctx, actor, id)
}

func (s *userService) Update(ctx context.Context, actor domain.Identity, id string, in ports.UpdateUserInput) error {
	verr := &domain.ValidationError{}
	if in.Username != nil && *in.Username == "" {
		verr.Add("username", "Username cannot be empty")
	}
	if in.Password != nil && len(*in.Password) < domain.MinPasswordLength {
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters long", domain.MinPasswordLength))
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	user, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}

	var patch domain.UserPatch
	if in.Username != nil && *in.Username != user.Username {
		if _, err := s.users.FindByUsername(ctx, *in.Username); err == nil {
			return domain.ErrDuplicateUsername
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("update user: %w", err)
		}
		name := *in.Username
		patch.Username = &name
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("update user: hash password: %w", err)
		}
		h := string(hash)
		patch.PasswordHash = &h
	}
	if patch.Username == nil && patch.PasswordHash == nil {
		return nil
	}

	if err := s.users.Update(ctx, id, patch); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("update user: %w", err)
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Msg("user updated")
	return nil
}

// Delete removes the user and everything they own. Collections are dropped
// without detaching members: a note of another user that an admin placed in
// one keeps a pointer to the deleted collection.
func (s *userService) Delete(ctx context.Context, actor domain.Identity, id string) (*ports.DeleteUserResult, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}

	deletedNotes, err := s.notes.DeleteByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete user: notes: %w", err)
	}
	deletedCollections, err := s.collections.DeleteByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete user: collections: %w", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}

	metrics.UsersDeletedTotal.Inc()
	metrics.NotesDeletedTotal.WithLabelValues("user_deleted").Add(float64(deletedNotes))
	s.log.Info().
		Str("user_id", id).
		Str("actor_id", actor.UserID).
		Int64("deleted_notes", deletedNotes).
		Int64("deleted_collections", deletedCollections).
		Msg("user deleted")

	return &ports.DeleteUserResult{DeletedNotes: deletedNotes, DeletedCollections: deletedCollections}, nil
}

// load applies the ownership rule before touching the store.
func (s *userService) load(ctx context.Context, actor domain.Identity, id string) (*domain.User, error) {
	if !actor.Can(id) {
		return nil, domain.Errorf(domain.ErrForbidden, "You are not allowed to access this user.")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}
