package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
	"github.com/wlcham/notes-server/internal/pkg/metrics"
)

const (
	defaultWorkers  = 4
	channelBuffer   = 256
	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

// errStale marks a job whose note no longer belongs to the target collection.
var errStale = errors.New("note left the collection")

// NoteFinder loads the note a repair is about.
type NoteFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Note, error)
}

// MemberList is the slice of the collection repository the repairer writes to.
type MemberList interface {
	AddNote(ctx context.Context, collectionID, noteID string) error
	RemoveNote(ctx context.Context, collectionID, noteID string) error
}

// Repairer retries failed member-list appends on a fixed set of workers.
// Jobs are sharded by collection ID so repairs for one collection run in order.
// A job only writes while its note still points at the job's collection.
type Repairer struct {
	workers     []chan ports.MembershipRepair
	notes       NoteFinder
	collections MemberList
	attempts    int
	backoff     time.Duration
	log         zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option tunes a Repairer.
type Option func(*Repairer)

// WithAttempts sets how many times each job is tried.
func WithAttempts(n int) Option {
	return func(r *Repairer) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts. The delay grows linearly.
func WithBackoff(d time.Duration) Option {
	return func(r *Repairer) { r.backoff = d }
}

// NewRepairer creates a Repairer with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewRepairer(numWorkers int, notes NoteFinder, collections MemberList, log zerolog.Logger, opts ...Option) *Repairer {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	r := &Repairer{
		workers:     make([]chan ports.MembershipRepair, numWorkers),
		notes:       notes,
		collections: collections,
		attempts:    defaultAttempts,
		backoff:     defaultBackoff,
		log:         log,
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.workers {
		r.workers[i] = make(chan ports.MembershipRepair, channelBuffer)
	}
	return r
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after Close once their shard is drained.
func (r *Repairer) Start(ctx context.Context) {
	for i, ch := range r.workers {
		r.wg.Add(1)
		go r.runWorker(ctx, i, ch)
	}
}

// Close stops accepting jobs. Queued jobs are still processed.
func (r *Repairer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, ch := range r.workers {
		close(ch)
	}
}

// Wait blocks until every worker has returned.
func (r *Repairer) Wait() {
	r.wg.Wait()
}

// Enqueue hands job to the worker owning its collection. A full shard or a
// closed repairer drops the job; the member list is then fixed on the next
// read of the collection.
func (r *Repairer) Enqueue(job ports.MembershipRepair) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(job, "repairer closed, job dropped")
		return false
	}

	select {
	case r.workers[r.shardIndex(job.CollectionID)] <- job:
		return true
	default:
		r.drop(job, "repair queue full, job dropped")
		return false
	}
}

func (r *Repairer) drop(job ports.MembershipRepair, msg string) {
	metrics.RelationRepairsTotal.WithLabelValues("dropped").Inc()
	r.log.Warn().
		Str("collection_id", job.CollectionID).
		Str("note_id", job.NoteID).
		Msg(msg)
}

// shardIndex maps a collection ID deterministically to a worker index.
func (r *Repairer) shardIndex(collectionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(collectionID))
	return int(h.Sum32() % uint32(len(r.workers)))
}

func (r *Repairer) runWorker(ctx context.Context, id int, ch <-chan ports.MembershipRepair) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			r.handle(ctx, id, job)
		}
	}
}

func (r *Repairer) handle(ctx context.Context, workerID int, job ports.MembershipRepair) {
	err := r.process(ctx, job)
	switch {
	case err == nil:
		metrics.RelationRepairsTotal.WithLabelValues("retried").Inc()
	case errors.Is(err, errStale):
		metrics.RelationRepairsTotal.WithLabelValues("stale").Inc()
		r.log.Debug().
			Str("collection_id", job.CollectionID).
			Str("note_id", job.NoteID).
			Msg("repair skipped, note moved or deleted")
	default:
		metrics.RelationRepairsTotal.WithLabelValues("retry_failed").Inc()
		r.log.Error().Err(err).
			Str("collection_id", job.CollectionID).
			Str("note_id", job.NoteID).
			Int("worker_id", workerID).
			Msg("member list repair failed")
	}
}

func (r *Repairer) process(ctx context.Context, job ports.MembershipRepair) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = r.attempt(ctx, job); err == nil || errors.Is(err, errStale) {
			return err
		}
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return err
}

// attempt appends the note when it still points at the collection and checks
// again afterwards. A note that no longer points there is pulled from the
// list, which also undoes an append that raced with a move.
func (r *Repairer) attempt(ctx context.Context, job ports.MembershipRepair) error {
	err := r.stillMember(ctx, job)
	if err == nil {
		if err := r.collections.AddNote(ctx, job.CollectionID, job.NoteID); err != nil {
			return fmt.Errorf("append: %w", err)
		}
		err = r.stillMember(ctx, job)
	}
	if errors.Is(err, errStale) {
		if rmErr := r.collections.RemoveNote(ctx, job.CollectionID, job.NoteID); rmErr != nil {
			return fmt.Errorf("pull stale note: %w", rmErr)
		}
	}
	return err
}

func (r *Repairer) stillMember(ctx context.Context, job ports.MembershipRepair) error {
	note, err := r.notes.FindByID(ctx, job.NoteID)
	if errors.Is(err, domain.ErrNoteNotFound) {
		return errStale
	}
	if err != nil {
		return fmt.Errorf("load note: %w", err)
	}
	if !note.InCollection(job.CollectionID) {
		return errStale
	}
	return nil
}
