package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/wlcham/notes-server/internal/pkg/metrics"
	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
	"github.com/wlcham/notes-server/internal/pkg/pagination"
)

type noteService struct {
	notes       ports.NoteRepository
	collections ports.CollectionRepository
	relations   *Relations
	log         zerolog.Logger
}

// NewNoteService returns a NoteService implementation.
func NewNoteService(
	notes ports.NoteRepository,
	collections ports.CollectionRepository,
	relations *Relations,
	log zerolog.Logger,
) ports.NoteService {
	return &noteService{
		notes:       notes,
		collections: collections,
		relations:   relations,
		log:         log,
	}
}

func (s *noteService) List(ctx context.Context, actor domain.Identity, in ports.ListNotesInput) (*ports.NotePage, error) {
	page := in.Page
	if page.Page < 1 || page.Limit < 1 {
		page = pagination.Default()
	}

	filter := ports.NoteFilter{
		Title: in.Title,
		Skip:  page.Skip(),
		Limit: page.Limit,
	}
	if !actor.IsAdmin {
		filter.OwnerID = actor.UserID
	}

	items, total, err := s.notes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	return &ports.NotePage{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: pagination.TotalPages(total, page.Limit),
	}, nil
}

func (s *noteService) Get(ctx context.Context, actor domain.Identity, id string) (*ports.NoteDetail, error) {
	note, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	detail := &ports.NoteDetail{Note: note}
	if note.CollectionID != nil {
		c, err := s.collections.FindByID(ctx, *note.CollectionID)
		switch {
		case err == nil:
			detail.CollectionName = c.Name
		case errors.Is(err, domain.ErrCollectionNotFound):
			s.log.Warn().Str("note_id", note.ID).Str("collection_id", *note.CollectionID).Msg("note points at a missing collection")
		default:
			return nil, fmt.Errorf("get note: %w", err)
		}
	}
	return detail, nil
}

func (s *noteService) Create(ctx context.Context, actor domain.Identity, in ports.CreateNoteInput) (*domain.Note, error) {
	if in.CollectionID != nil {
		if _, err := s.relations.ResolveTarget(ctx, actor, *in.CollectionID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	note := &domain.Note{
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.CollectionID != nil {
		id := *in.CollectionID
		note.CollectionID = &id
	}

	created, err := s.notes.Create(ctx, note)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", actor.UserID).Msg("failed to create note")
		return nil, fmt.Errorf("create note: %w", err)
	}
	s.relations.AttachNew(ctx, created)

	metrics.NotesCreatedTotal.WithLabelValues(strconv.FormatBool(created.CollectionID != nil)).Inc()
	s.log.Info().Str("note_id", created.ID).Str("user_id", actor.UserID).Msg("note created")
	return created, nil
}

func (s *noteService) Update(ctx context.Context, actor domain.Identity, id string, in ports.UpdateNoteInput) (*domain.Note, error) {
	note, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	note.Title = in.Title
	note.Description = in.Description

	if in.Collection.IsSpecified() {
		if _, err := s.relations.Move(ctx, actor, note, in.Collection.Resolve(note.CollectionID)); err != nil {
			return nil, err
		}
		return note, nil
	}

	note.UpdatedAt = time.Now().UTC()
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

func (s *noteService) Assign(ctx context.Context, actor domain.Identity, noteID string, collectionID *string) (*ports.AssignResult, error) {
	note, err := s.load(ctx, actor, noteID)
	if err != nil {
		return nil, err
	}

	dest, err := s.relations.Move(ctx, actor, note, collectionID)
	if err != nil {
		return nil, err
	}
	return &ports.AssignResult{Note: note, Collection: dest}, nil
}

func (s *noteService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	note, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.relations.DeleteNote(ctx, note); err != nil {
		return err
	}

	metrics.NotesDeletedTotal.WithLabelValues("request").Inc()
	s.log.Info().Str("note_id", id).Str("user_id", actor.UserID).Msg("note deleted")
	return nil
}

// load fetches a note and applies the ownership rule.
func (s *noteService) load(ctx context.Context, actor domain.Identity, id string) (*domain.Note, error) {
	note, err := s.notes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load note %s: %w", id, err)
	}
	if !actor.Can(note.OwnerID) {
		return nil, domain.Errorf(domain.ErrForbidden, "You are not allowed to access this note.")
	}
	return note, nil
}
