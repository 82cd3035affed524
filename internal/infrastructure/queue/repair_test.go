package queue

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

// fakeStore records member lists and note pointers. failures makes the next
// AddNote calls fail; afterAdd runs once after the first successful append.
type fakeStore struct {
	mu       sync.Mutex
	notes    map[string]*string
	members  map[string][]string
	failures int
	adds     int
	afterAdd func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{notes: map[string]*string{}, members: map[string][]string{}}
}

func (f *fakeStore) put(noteID string, collectionID *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[noteID] = collectionID
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	coll, ok := f.notes[id]
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	return &domain.Note{ID: id, CollectionID: coll}, nil
}

func (f *fakeStore) AddNote(_ context.Context, collectionID, noteID string) error {
	f.mu.Lock()
	f.adds++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("store down")
	}
	if !slices.Contains(f.members[collectionID], noteID) {
		f.members[collectionID] = append(f.members[collectionID], noteID)
	}
	hook := f.afterAdd
	f.afterAdd = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeStore) RemoveNote(_ context.Context, collectionID, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[collectionID] = slices.DeleteFunc(f.members[collectionID], func(id string) bool { return id == noteID })
	return nil
}

func (f *fakeStore) list(collectionID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.members[collectionID])
}

func (f *fakeStore) addCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds
}

func strPtr(s string) *string { return &s }

func runToCompletion(r *Repairer, jobs ...ports.MembershipRepair) {
	r.Start(context.Background())
	for _, job := range jobs {
		r.Enqueue(job)
	}
	r.Close()
	r.Wait()
}

func TestRepairer_RetriesUntilSuccess(t *testing.T) {
	store := newFakeStore()
	store.put("n1", strPtr("c1"))
	store.failures = 2
	r := NewRepairer(2, store, store, zerolog.Nop(), WithBackoff(time.Millisecond))

	runToCompletion(r, ports.MembershipRepair{CollectionID: "c1", NoteID: "n1"})

	assert.Equal(t, 3, store.addCount())
	assert.Equal(t, []string{"n1"}, store.list("c1"))
}

func TestRepairer_GivesUpAfterAttempts(t *testing.T) {
	store := newFakeStore()
	store.put("n1", strPtr("c1"))
	store.failures = 10
	r := NewRepairer(1, store, store, zerolog.Nop(), WithAttempts(2), WithBackoff(time.Millisecond))

	err := r.process(context.Background(), ports.MembershipRepair{CollectionID: "c1", NoteID: "n1"})
	require.Error(t, err)
	assert.Equal(t, 2, store.addCount())
}

func TestRepairer_SkipsMovedNote(t *testing.T) {
	store := newFakeStore()
	store.put("n1", strPtr("c2"))
	r := NewRepairer(1, store, store, zerolog.Nop())

	runToCompletion(r, ports.MembershipRepair{CollectionID: "c1", NoteID: "n1"})

	assert.Zero(t, store.addCount())
	assert.Empty(t, store.list("c1"))
}

func TestRepairer_SkipsDeletedNote(t *testing.T) {
	store := newFakeStore()
	r := NewRepairer(1, store, store, zerolog.Nop())

	runToCompletion(r, ports.MembershipRepair{CollectionID: "c1", NoteID: "gone"})

	assert.Zero(t, store.addCount())
	assert.Empty(t, store.list("c1"))
}

func TestRepairer_UndoesAppendWhenNoteMovesMidway(t *testing.T) {
	store := newFakeStore()
	store.put("n1", strPtr("c1"))
	store.afterAdd = func() { store.put("n1", strPtr("c2")) }
	r := NewRepairer(1, store, store, zerolog.Nop())

	err := r.process(context.Background(), ports.MembershipRepair{CollectionID: "c1", NoteID: "n1"})

	require.ErrorIs(t, err, errStale)
	assert.Empty(t, store.list("c1"))
}

func TestRepairer_EnqueueDropsWhenFull(t *testing.T) {
	r := NewRepairer(1, newFakeStore(), newFakeStore(), zerolog.Nop())

	for i := 0; i < channelBuffer; i++ {
		require.True(t, r.Enqueue(ports.MembershipRepair{CollectionID: "c1", NoteID: "n"}))
	}
	assert.False(t, r.Enqueue(ports.MembershipRepair{CollectionID: "c1", NoteID: "overflow"}))
}

func TestRepairer_EnqueueAfterCloseIsDropped(t *testing.T) {
	r := NewRepairer(1, newFakeStore(), newFakeStore(), zerolog.Nop())
	r.Close()
	r.Close()

	assert.False(t, r.Enqueue(ports.MembershipRepair{CollectionID: "c1", NoteID: "n1"}))
}

func TestRepairer_ShardIsStable(t *testing.T) {
	r := NewRepairer(8, newFakeStore(), newFakeStore(), zerolog.Nop())
	first := r.shardIndex("65f0c0ffee0000000000abcd")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.shardIndex("65f0c0ffee0000000000abcd"))
	}
}
