package ports

import (
	"context"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// NoteSummary is the short form of a member note.
type NoteSummary struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// CollectionDetail is a collection with its member titles.
type CollectionDetail struct {
	*domain.Collection
	NoteDetails []NoteSummary `json:"noteDetails"`
}

// CreateCollectionInput carries a new collection and its optional initial members.
type CreateCollectionInput struct {
	Name        string
	Description string
	Notes       []string
}

// UpdateCollectionInput renames a collection. A nil Notes keeps the member
// set, a non-nil one replaces it.
type UpdateCollectionInput struct {
	Name        string
	Description string
	Notes       []string
}

// CollectionService defines use-case operations for collections.
type CollectionService interface {
	List(ctx context.Context, actor domain.Identity) ([]*domain.Collection, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*CollectionDetail, error)
	RelatedNotes(ctx context.Context, actor domain.Identity, id string) ([]*domain.Note, error)
	Create(ctx context.Context, actor domain.Identity, in CreateCollectionInput) (*CollectionDetail, error)
	Update(ctx context.Context, actor domain.Identity, id string, in UpdateCollectionInput) (*domain.Collection, error)
	Delete(ctx context.Context, actor domain.Identity, id string) error
}
