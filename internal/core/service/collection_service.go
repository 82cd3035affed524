package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

type collectionService struct {
	collections ports.CollectionRepository
	relations   *Relations
	log         zerolog.Logger
}

// NewCollectionService returns a CollectionService implementation.
func NewCollectionService(collections ports.CollectionRepository, relations *Relations, log zerolog.Logger) ports.CollectionService {
	return &collectionService{collections: collections, relations: relations, log: log}
}

func (s *collectionService) List(ctx context.Context, actor domain.Identity) ([]*domain.Collection, error) {
	owner := actor.UserID
	if actor.IsAdmin {
		owner = ""
	}
	list, err := s.collections.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return list, nil
}

func (s *collectionService) Get(ctx context.Context, actor domain.Identity, id string) (*ports.CollectionDetail, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	members, err := s.relations.Reconcile(ctx, c)
	if err != nil {
		return nil, err
	}
	return detail(c, members), nil
}

func (s *collectionService) RelatedNotes(ctx context.Context, actor domain.Identity, id string) ([]*domain.Note, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.relations.Reconcile(ctx, c)
}

func (s *collectionService) Create(ctx context.Context, actor domain.Identity, in ports.CreateCollectionInput) (*ports.CollectionDetail, error) {
	claimed, err := s.relations.Claim(ctx, actor, in.Notes)
	if err != nil {
		return nil, err
	}
	if len(in.Notes) > 0 && len(claimed) == 0 {
		return nil, domain.Errorf(domain.ErrForbidden, "No valid notes to add.")
	}

	now := time.Now().UTC()
	c := &domain.Collection{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     actor.UserID,
		Notes:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.collections.Create(ctx, c)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", actor.UserID).Msg("failed to create collection")
		return nil, fmt.Errorf("create collection: %w", err)
	}

	if len(claimed) > 0 {
		if err := s.relations.Adopt(ctx, created, claimed); err != nil {
			return nil, err
		}
	}

	s.log.Info().Str("collection_id", created.ID).Int("notes", len(created.Notes)).Msg("collection created")
	return detail(created, claimed), nil
}

func (s *collectionService) Update(ctx context.Context, actor domain.Identity, id string, in ports.UpdateCollectionInput) (*domain.Collection, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	c.Name = in.Name
	c.Description = in.Description
	if in.Notes != nil {
		if err := s.relations.ReplaceMembers(ctx, actor, c, in.Notes); err != nil {
			return nil, err
		}
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return c, nil
}

func (s *collectionService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.relations.Dissolve(ctx, c)
}

// load fetches a collection and applies the ownership rule.
func (s *collectionService) load(ctx context.Context, actor domain.Identity, id string) (*domain.Collection, error) {
	c, err := s.collections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load collection %s: %w", id, err)
	}
	if !actor.Can(c.OwnerID) {
		return nil, domain.Errorf(domain.ErrForbidden, "You don't have access to this collection.")
	}
	return c, nil
}

func detail(c *domain.Collection, members []*domain.Note) *ports.CollectionDetail {
	summaries := make([]ports.NoteSummary, 0, len(members))
	for _, n := range members {
		summaries = append(summaries, ports.NoteSummary{ID: n.ID, Title: n.Title})
	}
	return &ports.CollectionDetail{Collection: c, NoteDetails: summaries}
}
