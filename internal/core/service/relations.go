package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wlcham/notes-server/internal/pkg/metrics"
	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

// Relations keeps note.CollectionID and collection.Notes in agreement. Every
// write that touches the link between a note and a collection goes through it.
//
// There are no cross-document transactions: existence and ownership checks
// run before the first write, and a note may briefly sit in neither member
// list while a move is in flight, never in two.
type Relations struct {
	notes       ports.NoteRepository
	collections ports.CollectionRepository
	repairer    ports.RelationRepairer
	log         zerolog.Logger
}

func NewRelations(notes ports.NoteRepository, collections ports.CollectionRepository, log zerolog.Logger) *Relations {
	return &Relations{notes: notes, collections: collections, log: log}
}

// WithRepairer hands failed member-list appends to q for retry.
func (r *Relations) WithRepairer(q ports.RelationRepairer) *Relations {
	r.repairer = q
	return r
}

// ResolveTarget loads the collection a note is about to be placed in and
// checks that actor may put notes there.
func (r *Relations) ResolveTarget(ctx context.Context, actor domain.Identity, collectionID string) (*domain.Collection, error) {
	c, err := r.collections.FindByID(ctx, collectionID)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return nil, domain.ErrUnknownCollection
	}
	if err != nil {
		return nil, fmt.Errorf("resolve collection: %w", err)
	}
	if !actor.Can(c.OwnerID) {
		return nil, domain.Errorf(domain.ErrForbidden, "You cannot assign a note to another user's collection")
	}
	return c, nil
}

// AttachNew appends a freshly inserted note to its collection. The note is
// already stored, so a failure here is logged and queued for retry when a
// repairer is set. Reconcile covers whatever the retry misses.
func (r *Relations) AttachNew(ctx context.Context, note *domain.Note) {
	if note.CollectionID == nil {
		return
	}
	if err := r.collections.AddNote(ctx, *note.CollectionID, note.ID); err != nil {
		metrics.RelationRepairsTotal.WithLabelValues("create_append_failed").Inc()
		r.log.Warn().Err(err).
			Str("note_id", note.ID).
			Str("collection_id", *note.CollectionID).
			Msg("note created but collection member list not updated")
		if r.repairer != nil {
			r.repairer.Enqueue(ports.MembershipRepair{CollectionID: *note.CollectionID, NoteID: note.ID})
		}
		return
	}
	metrics.NoteMovesTotal.WithLabelValues("attach").Inc()
}

// Move places note in target, or in no collection when target is nil, and
// persists the note with any other pending field changes. It returns the
// target collection. Calling it again with the same target is a no-op on the
// member lists.
func (r *Relations) Move(ctx context.Context, actor domain.Identity, note *domain.Note, target *string) (*domain.Collection, error) {
	var dest *domain.Collection
	if target != nil {
		c, err := r.ResolveTarget(ctx, actor, *target)
		if err != nil {
			return nil, err
		}
		dest = c
	}

	prev := note.CollectionID
	if prev != nil && (target == nil || *prev != *target) {
		if err := r.collections.RemoveNote(ctx, *prev, note.ID); err != nil {
			return nil, fmt.Errorf("move note: leave collection %s: %w", *prev, err)
		}
	}
	if dest != nil {
		if err := r.collections.AddNote(ctx, dest.ID, note.ID); err != nil {
			return nil, fmt.Errorf("move note: join collection %s: %w", dest.ID, err)
		}
		if !dest.Contains(note.ID) {
			dest.Notes = append(dest.Notes, note.ID)
		}
	}

	if dest != nil {
		id := dest.ID
		note.CollectionID = &id
	} else {
		note.CollectionID = nil
	}
	note.UpdatedAt = time.Now().UTC()
	if err := r.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("move note: %w", err)
	}

	switch {
	case dest == nil && prev != nil:
		metrics.NoteMovesTotal.WithLabelValues("detach").Inc()
	case dest != nil && (prev == nil || *prev != dest.ID):
		metrics.NoteMovesTotal.WithLabelValues("move").Inc()
	}
	r.log.Debug().Str("note_id", note.ID).Interface("collection_id", note.CollectionID).Msg("note placed")
	return dest, nil
}

// DeleteNote removes note from its collection's member list, then deletes it.
func (r *Relations) DeleteNote(ctx context.Context, note *domain.Note) error {
	if note.CollectionID != nil {
		if err := r.collections.RemoveNote(ctx, *note.CollectionID, note.ID); err != nil {
			return fmt.Errorf("delete note: leave collection: %w", err)
		}
	}
	if err := r.notes.Delete(ctx, note.ID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// Dissolve detaches every member of c and deletes c. Member notes survive.
func (r *Relations) Dissolve(ctx context.Context, c *domain.Collection) error {
	detached, err := r.notes.ClearCollection(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("delete collection: detach notes: %w", err)
	}
	if err := r.collections.Delete(ctx, c.ID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	r.log.Info().Str("collection_id", c.ID).Int64("detached_notes", detached).Msg("collection deleted")
	return nil
}

// Claim returns the notes among candidates that exist and that actor may put
// in a collection, in candidate order and without duplicates.
func (r *Relations) Claim(ctx context.Context, actor domain.Identity, candidates []string) ([]*domain.Note, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	found, err := r.notes.FindByIDs(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("claim notes: %w", err)
	}
	byID := make(map[string]*domain.Note, len(found))
	for _, n := range found {
		byID[n.ID] = n
	}

	claimed := make([]*domain.Note, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, id := range candidates {
		n, ok := byID[id]
		if !ok || !actor.Can(n.OwnerID) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		claimed = append(claimed, n)
	}
	return claimed, nil
}

// Adopt points every claimed note at c, pulling each out of the collection it
// previously belonged to, and records them as c's members.
func (r *Relations) Adopt(ctx context.Context, c *domain.Collection, claimed []*domain.Note) error {
	ids := make([]string, 0, len(claimed))
	for _, n := range claimed {
		if n.CollectionID != nil && *n.CollectionID != c.ID {
			if err := r.collections.RemoveNote(ctx, *n.CollectionID, n.ID); err != nil {
				return fmt.Errorf("adopt notes: leave collection %s: %w", *n.CollectionID, err)
			}
		}
		ids = append(ids, n.ID)
	}
	if len(ids) > 0 {
		if err := r.notes.SetCollectionMany(ctx, ids, c.ID); err != nil {
			return fmt.Errorf("adopt notes: %w", err)
		}
	}
	if err := r.collections.SetNotes(ctx, c.ID, ids); err != nil {
		return fmt.Errorf("adopt notes: record members: %w", err)
	}
	c.Notes = ids
	return nil
}

// ReplaceMembers makes the claimable subset of candidates the exact member
// set of c. Current members that are not kept are detached.
func (r *Relations) ReplaceMembers(ctx context.Context, actor domain.Identity, c *domain.Collection, candidates []string) error {
	claimed, err := r.Claim(ctx, actor, candidates)
	if err != nil {
		return err
	}
	if _, err := r.notes.ClearCollection(ctx, c.ID); err != nil {
		return fmt.Errorf("replace members: detach notes: %w", err)
	}
	return r.Adopt(ctx, c, claimed)
}

// Reconcile loads the notes that point at c and rewrites c.Notes when the
// stored member list has drifted. Members are returned in c.Notes order.
func (r *Relations) Reconcile(ctx context.Context, c *domain.Collection) ([]*domain.Note, error) {
	members, err := r.notes.FindByCollection(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile collection: %w", err)
	}

	byID := make(map[string]*domain.Note, len(members))
	for _, n := range members {
		byID[n.ID] = n
	}

	ordered := make([]*domain.Note, 0, len(members))
	ids := make([]string, 0, len(members))
	placed := make(map[string]struct{}, len(members))
	for _, id := range c.Notes {
		n, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := placed[id]; dup {
			continue
		}
		placed[id] = struct{}{}
		ordered = append(ordered, n)
		ids = append(ids, id)
	}
	for _, n := range members {
		if _, ok := placed[n.ID]; ok {
			continue
		}
		ordered = append(ordered, n)
		ids = append(ids, n.ID)
	}

	if len(ids) != len(c.Notes) || len(placed) != len(c.Notes) {
		if err := r.collections.SetNotes(ctx, c.ID, ids); err != nil {
			return nil, fmt.Errorf("reconcile collection: %w", err)
		}
		metrics.RelationRepairsTotal.WithLabelValues("reconciled").Inc()
		r.log.Info().Str("collection_id", c.ID).Int("members", len(ids)).Msg("collection member list repaired")
		c.Notes = ids
	}
	return ordered, nil
}
