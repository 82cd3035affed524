package ports

import (
	"context"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// CollectionRepository defines persistence operations for collections.
// Lookups of a missing collection return domain.ErrCollectionNotFound.
type CollectionRepository interface {
	Create(ctx context.Context, c *domain.Collection) (*domain.Collection, error)
	FindByID(ctx context.Context, id string) (*domain.Collection, error)
	// List returns collections sorted by name. An empty ownerID lists all.
	List(ctx context.Context, ownerID string) ([]*domain.Collection, error)
	// Update persists name, description and updatedAt. Members change only
	// through AddNote, RemoveNote and SetNotes.
	Update(ctx context.Context, c *domain.Collection) error
	// AddNote appends noteID to the member list unless already present.
	AddNote(ctx context.Context, collectionID, noteID string) error
	// RemoveNote drops noteID from the member list. Missing collections are ignored.
	RemoveNote(ctx context.Context, collectionID, noteID string) error
	// SetNotes replaces the member list.
	SetNotes(ctx context.Context, collectionID string, noteIDs []string) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}
