package ports

import (
	"context"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/pkg/pagination"
)

// ListNotesInput carries the list query after pagination has been validated.
type ListNotesInput struct {
	Title string
	Page  pagination.Params
}

// NotePage is one page of notes plus what the transport needs to build links.
type NotePage struct {
	Items      []*domain.Note
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NoteDetail is a note enriched with the name of its parent collection.
type NoteDetail struct {
	*domain.Note
	CollectionName string `json:"collectionName,omitempty"`
}

// CreateNoteInput carries a new note. CollectionID is optional.
type CreateNoteInput struct {
	Title        string
	Description  string
	CollectionID *string
}

// UpdateNoteInput replaces title and description; Collection follows the
// three-state rule of domain.OptionalID.
type UpdateNoteInput struct {
	Title       string
	Description string
	Collection  domain.OptionalID
}

// AssignResult describes the outcome of an explicit assignment.
type AssignResult struct {
	Note       *domain.Note
	Collection *domain.Collection // nil when the note was detached
}

// NoteService defines use-case operations for notes.
type NoteService interface {
	List(ctx context.Context, actor domain.Identity, in ListNotesInput) (*NotePage, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*NoteDetail, error)
	Create(ctx context.Context, actor domain.Identity, in CreateNoteInput) (*domain.Note, error)
	Update(ctx context.Context, actor domain.Identity, id string, in UpdateNoteInput) (*domain.Note, error)
	// Assign moves a note into collectionID, or out of any collection when nil.
	Assign(ctx context.Context, actor domain.Identity, noteID string, collectionID *string) (*AssignResult, error)
	Delete(ctx context.Context, actor domain.Identity, id string) error
}
