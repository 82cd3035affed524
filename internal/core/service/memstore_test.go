package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

// memStore backs the user, note and collection stubs with plain maps so tests
// can inspect both sides of every relation.
type memStore struct {
	seq         int
	users       map[string]*domain.User
	notes       map[string]*domain.Note
	collections map[string]*domain.Collection

	failAddNote error
	// onCollectionUpdate runs before a collection update is stored.
	onCollectionUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*domain.User),
		notes:       make(map[string]*domain.Note),
		collections: make(map[string]*domain.Collection),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%03d", prefix, m.seq)
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func cloneNote(n *domain.Note) *domain.Note {
	if n == nil {
		return nil
	}
	clone := *n
	if n.CollectionID != nil {
		id := *n.CollectionID
		clone.CollectionID = &id
	}
	return &clone
}

func cloneCollection(c *domain.Collection) *domain.Collection {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Notes = slices.Clone(c.Notes)
	return &clone
}

// ── users ─────────────────────────────────────────────────────────────────────

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrDuplicateUsername
		}
	}
	copy := cloneUser(user)
	copy.ID = r.nextID("u")
	r.users[copy.ID] = copy
	return cloneUser(copy), nil
}

func (r memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r memUsers) List(_ context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) Update(_ context.Context, id string, patch domain.UserPatch) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// ── notes ─────────────────────────────────────────────────────────────────────

type memNotes struct{ *memStore }

func (r memNotes) Create(_ context.Context, note *domain.Note) (*domain.Note, error) {
	copy := cloneNote(note)
	copy.ID = r.nextID("n")
	r.notes[copy.ID] = copy
	return cloneNote(copy), nil
}

func (r memNotes) FindByID(_ context.Context, id string) (*domain.Note, error) {
	n, ok := r.notes[id]
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	return cloneNote(n), nil
}

func (r memNotes) FindByIDs(_ context.Context, ids []string) ([]*domain.Note, error) {
	var out []*domain.Note
	for _, id := range ids {
		if n, ok := r.notes[id]; ok {
			out = append(out, cloneNote(n))
		}
	}
	return out, nil
}

func (r memNotes) FindByCollection(_ context.Context, collectionID string) ([]*domain.Note, error) {
	var out []*domain.Note
	for _, n := range r.sorted() {
		if n.InCollection(collectionID) {
			out = append(out, cloneNote(n))
		}
	}
	return out, nil
}

func (r memNotes) List(_ context.Context, f ports.NoteFilter) ([]*domain.Note, int64, error) {
	var matched []*domain.Note
	all := r.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		n := all[i]
		if f.OwnerID != "" && n.OwnerID != f.OwnerID {
			continue
		}
		if f.Title != "" && !strings.Contains(strings.ToLower(n.Title), strings.ToLower(f.Title)) {
			continue
		}
		matched = append(matched, n)
	}
	total := int64(len(matched))
	if f.Skip >= len(matched) {
		return []*domain.Note{}, total, nil
	}
	end := min(f.Skip+f.Limit, len(matched))
	out := make([]*domain.Note, 0, end-f.Skip)
	for _, n := range matched[f.Skip:end] {
		out = append(out, cloneNote(n))
	}
	return out, total, nil
}

func (r memNotes) Update(_ context.Context, note *domain.Note) error {
	if _, ok := r.notes[note.ID]; !ok {
		return domain.ErrNoteNotFound
	}
	r.notes[note.ID] = cloneNote(note)
	return nil
}

func (r memNotes) SetCollectionMany(_ context.Context, ids []string, collectionID string) error {
	for _, id := range ids {
		if n, ok := r.notes[id]; ok {
			cid := collectionID
			n.CollectionID = &cid
		}
	}
	return nil
}

func (r memNotes) ClearCollection(_ context.Context, collectionID string) (int64, error) {
	var count int64
	for _, n := range r.notes {
		if n.InCollection(collectionID) {
			n.CollectionID = nil
			count++
		}
	}
	return count, nil
}

func (r memNotes) Delete(_ context.Context, id string) error {
	if _, ok := r.notes[id]; !ok {
		return domain.ErrNoteNotFound
	}
	delete(r.notes, id)
	return nil
}

func (r memNotes) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	var count int64
	for id, n := range r.notes {
		if n.OwnerID == ownerID {
			delete(r.notes, id)
			count++
		}
	}
	return count, nil
}

// sorted returns the stored notes in creation order.
func (r memNotes) sorted() []*domain.Note {
	out := make([]*domain.Note, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ── collections ───────────────────────────────────────────────────────────────

type memCollections struct{ *memStore }

func (r memCollections) Create(_ context.Context, c *domain.Collection) (*domain.Collection, error) {
	copy := cloneCollection(c)
	copy.ID = r.nextID("c")
	if copy.Notes == nil {
		copy.Notes = []string{}
	}
	r.collections[copy.ID] = copy
	return cloneCollection(copy), nil
}

func (r memCollections) FindByID(_ context.Context, id string) (*domain.Collection, error) {
	c, ok := r.collections[id]
	if !ok {
		return nil, domain.ErrCollectionNotFound
	}
	return cloneCollection(c), nil
}

func (r memCollections) List(_ context.Context, ownerID string) ([]*domain.Collection, error) {
	var out []*domain.Collection
	for _, c := range r.collections {
		if ownerID == "" || c.OwnerID == ownerID {
			out = append(out, cloneCollection(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCollections) Update(_ context.Context, c *domain.Collection) error {
	if r.onCollectionUpdate != nil {
		r.onCollectionUpdate()
	}
	stored, ok := r.collections[c.ID]
	if !ok {
		return domain.ErrCollectionNotFound
	}
	stored.Name = c.Name
	stored.Description = c.Description
	stored.UpdatedAt = c.UpdatedAt
	return nil
}

func (r memCollections) AddNote(_ context.Context, collectionID, noteID string) error {
	if r.failAddNote != nil {
		return r.failAddNote
	}
	c, ok := r.collections[collectionID]
	if !ok {
		return domain.ErrCollectionNotFound
	}
	if !c.Contains(noteID) {
		c.Notes = append(c.Notes, noteID)
	}
	return nil
}

func (r memCollections) RemoveNote(_ context.Context, collectionID, noteID string) error {
	c, ok := r.collections[collectionID]
	if !ok {
		return nil
	}
	c.Notes = slices.DeleteFunc(c.Notes, func(id string) bool { return id == noteID })
	return nil
}

func (r memCollections) SetNotes(_ context.Context, collectionID string, noteIDs []string) error {
	c, ok := r.collections[collectionID]
	if !ok {
		return domain.ErrCollectionNotFound
	}
	c.Notes = slices.Clone(noteIDs)
	return nil
}

func (r memCollections) Delete(_ context.Context, id string) error {
	if _, ok := r.collections[id]; !ok {
		return domain.ErrCollectionNotFound
	}
	delete(r.collections, id)
	return nil
}

func (r memCollections) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	var count int64
	for id, c := range r.collections {
		if c.OwnerID == ownerID {
			delete(r.collections, id)
			count++
		}
	}
	return count, nil
}

var errStoreDown = errors.New("store unavailable")

// assertConsistent fails the test unless every collection's member list
// matches exactly the notes pointing at it.
func (m *memStore) assertConsistent(t interface {
	Helper()
	Fatalf(string, ...any)
}) {
	t.Helper()
	for _, c := range m.collections {
		seen := make(map[string]bool, len(c.Notes))
		for _, id := range c.Notes {
			if seen[id] {
				t.Fatalf("collection %s lists note %s twice", c.ID, id)
			}
			seen[id] = true
			n, ok := m.notes[id]
			if !ok {
				t.Fatalf("collection %s lists missing note %s", c.ID, id)
			}
			if !n.InCollection(c.ID) {
				t.Fatalf("collection %s lists note %s which points at %v", c.ID, id, n.CollectionID)
			}
		}
	}
	for _, n := range m.notes {
		if n.CollectionID == nil {
			continue
		}
		c, ok := m.collections[*n.CollectionID]
		if !ok {
			t.Fatalf("note %s points at missing collection %s", n.ID, *n.CollectionID)
		}
		if !c.Contains(n.ID) {
			t.Fatalf("note %s points at %s but is not listed there", n.ID, c.ID)
		}
	}
}

type services struct {
	store       *memStore
	relations   *Relations
	notes       ports.NoteService
	collections ports.CollectionService
	users       ports.UserService
}

func newServices() *services {
	store := newMemStore()
	log := zerolog.Nop()
	rel := NewRelations(memNotes{store}, memCollections{store}, log)
	return &services{
		store:       store,
		relations:   rel,
		notes:       NewNoteService(memNotes{store}, memCollections{store}, rel, log),
		collections: NewCollectionService(memCollections{store}, rel, log),
		users:       NewUserService(memUsers{store}, memNotes{store}, memCollections{store}, bcrypt.MinCost, log),
	}
}

var (
	alice = domain.Identity{UserID: "alice", Username: "alice"}
	bob   = domain.Identity{UserID: "bob", Username: "bob"}
	admin = domain.Identity{UserID: "root", Username: "root", IsAdmin: true}
)
