package ports

import (
	"context"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// NoteFilter carries the list query for notes.
type NoteFilter struct {
	OwnerID string // empty = all owners (admin)
	Title   string // case-insensitive substring
	Skip    int
	Limit   int
}

// NoteRepository defines persistence operations for notes. Lookups of a
// missing note return domain.ErrNoteNotFound.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) (*domain.Note, error)
	FindByID(ctx context.Context, id string) (*domain.Note, error)
	// FindByIDs returns the notes that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Note, error)
	// FindByCollection returns every note whose collection pointer is collectionID,
	// oldest first.
	FindByCollection(ctx context.Context, collectionID string) ([]*domain.Note, error)
	// List returns one page of notes, newest first, and the total match count.
	List(ctx context.Context, filter NoteFilter) ([]*domain.Note, int64, error)
	// Update persists title, description and collection pointer.
	Update(ctx context.Context, note *domain.Note) error
	// SetCollectionMany points every note in ids at collectionID.
	SetCollectionMany(ctx context.Context, ids []string, collectionID string) error
	// ClearCollection nulls the pointer of every note in collectionID and
	// returns how many notes were detached.
	ClearCollection(ctx context.Context, collectionID string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}
