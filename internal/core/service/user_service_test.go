package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

func seedUser(s *services, id, username string, isAdmin bool) {
	now := time.Now().UTC()
	s.store.users[id] = &domain.User{ID: id, Username: username, PasswordHash: "x", IsAdmin: isAdmin, CreatedAt: now, UpdatedAt: now}
}

func TestUserService_List_AdminOnly(t *testing.T) {
	s := newServices()
	seedUser(s, "alice", "alice", false)
	seedUser(s, "root", "root", true)

	_, err := s.users.List(context.Background(), alice)
	if !errors.Is(err, domain.ErrForbidden) || err.Error() != "Only admins can view all users." {
		t.Fatalf("expected admin-only ErrForbidden, got %v", err)
	}

	users, err := s.users.List(context.Background(), admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestUserService_Get(t *testing.T) {
	s := newServices()
	seedUser(s, "alice", "alice", false)
	seedUser(s, "bob", "bob", false)

	if _, err := s.users.Get(context.Background(), bob, "alice"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if u, err := s.users.Get(context.Background(), alice, "alice"); err != nil || u.Username != "alice" {
		t.Fatalf("expected own profile, got %+v, %v", u, err)
	}
	if _, err := s.users.Get(context.Background(), admin, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_Update(t *testing.T) {
	s := newServices()
	seedUser(s, "alice", "alice", false)
	seedUser(s, "bob", "bob", false)
	ctx := context.Background()

	if err := s.users.Update(ctx, alice, "alice", ports.UpdateUserInput{Password: strPtr("abc")}); err == nil {
		t.Fatalf("expected validation error for short password")
	} else {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Fields[0].Field != "password" {
			t.Fatalf("expected password ValidationError, got %v", err)
		}
	}

	if err := s.users.Update(ctx, alice, "alice", ports.UpdateUserInput{Username: strPtr("bob")}); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	if err := s.users.Update(ctx, bob, "alice", ports.UpdateUserInput{Username: strPtr("mallory")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := s.users.Update(ctx, alice, "alice", ports.UpdateUserInput{Password: strPtr("newpass")}); err != nil {
		t.Fatalf("update password: %v", err)
	}
	stored := s.store.users["alice"]
	if stored.Username != "alice" {
		t.Fatalf("username must not change when omitted, got %s", stored.Username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpass")); err != nil {
		t.Fatalf("password was not re-hashed: %v", err)
	}

	if err := s.users.Update(ctx, admin, "alice", ports.UpdateUserInput{Username: strPtr("alicia")}); err != nil {
		t.Fatalf("admin rename: %v", err)
	}
	if s.store.users["alice"].Username != "alicia" {
		t.Fatalf("expected rename to persist")
	}
}

func TestUserService_Delete_Cascades(t *testing.T) {
	s := newServices()
	seedUser(s, "alice", "alice", false)
	seedUser(s, "bob", "bob", false)

	c := mustCollection(t, s, alice, "work")
	mustCollection(t, s, alice, "home")
	mustNote(t, s, alice, "one", strPtr(c.ID))
	mustNote(t, s, alice, "two", nil)
	mustNote(t, s, alice, "three", nil)
	bobsCollection := mustCollection(t, s, bob, "bob's")
	bobsNote := mustNote(t, s, bob, "bob's", strPtr(bobsCollection.ID))

	if _, err := s.users.Delete(context.Background(), bob, "alice"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	res, err := s.users.Delete(context.Background(), alice, "alice")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.DeletedNotes != 3 || res.DeletedCollections != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if _, ok := s.store.users["alice"]; ok {
		t.Fatalf("user still stored")
	}
	if len(s.store.notes) != 1 || s.store.notes[bobsNote.ID] == nil {
		t.Fatalf("expected only bob's note to survive, got %d notes", len(s.store.notes))
	}
	if len(s.store.collections) != 1 || s.store.collections[bobsCollection.ID] == nil {
		t.Fatalf("expected only bob's collection to survive")
	}
	s.store.assertConsistent(t)
}
