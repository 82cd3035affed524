package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

const collectionNotes = "notes"

type NoteRepository struct {
	col *mongo.Collection
}

func NewNoteRepository(db *mongo.Database) *NoteRepository {
	return &NoteRepository{col: db.Collection(collectionNotes)}
}

type noteDoc struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty"`
	Title        string              `bson:"title"`
	Description  string              `bson:"description"`
	User         primitive.ObjectID  `bson:"user"`
	CollectionID *primitive.ObjectID `bson:"collectionId"`
	CreatedAt    time.Time           `bson:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt"`
}

func (d *noteDoc) toDomain() *domain.Note {
	return &domain.Note{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Description:  d.Description,
		OwnerID:      d.User.Hex(),
		CollectionID: optionalHex(d.CollectionID),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	owner, err := objectID(note.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("insert note: owner: %w", err)
	}
	coll, err := optionalObjectID(note.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("insert note: collection: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := noteDoc{
		ID:           primitive.NewObjectID(),
		Title:        note.Title,
		Description:  note.Description,
		User:         owner,
		CollectionID: coll,
		CreatedAt:    note.CreatedAt,
		UpdatedAt:    note.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *NoteRepository) FindByID(ctx context.Context, id string) (*domain.Note, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, domain.ErrNoteNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc noteDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, fmt.Errorf("find note: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *NoteRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Note, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, nil)
}

func (r *NoteRepository) FindByCollection(ctx context.Context, collectionID string) ([]*domain.Note, error) {
	oid, err := objectID(collectionID)
	if err != nil {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"collectionId": oid}, opts)
}

// List returns a page of notes, newest first, and the number of notes
// matching the filter.
func (r *NoteRepository) List(ctx context.Context, f ports.NoteFilter) ([]*domain.Note, int64, error) {
	filter := bson.M{}
	if f.OwnerID != "" {
		owner, err := objectID(f.OwnerID)
		if err != nil {
			return nil, 0, fmt.Errorf("list notes: owner: %w", err)
		}
		filter["user"] = owner
	}
	if f.Title != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Title), Options: "i"}
	}

	countCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	total, err := r.col.CountDocuments(countCtx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Skip)).
		SetLimit(int64(f.Limit))
	notes, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	if notes == nil {
		notes = []*domain.Note{}
	}
	return notes, total, nil
}

func (r *NoteRepository) Update(ctx context.Context, note *domain.Note) error {
	oid, err := objectID(note.ID)
	if err != nil {
		return domain.ErrNoteNotFound
	}
	coll, err := optionalObjectID(note.CollectionID)
	if err != nil {
		return fmt.Errorf("update note: collection: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":        note.Title,
		"description":  note.Description,
		"collectionId": coll,
		"updatedAt":    note.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepository) SetCollectionMany(ctx context.Context, ids []string, collectionID string) error {
	coll, err := objectID(collectionID)
	if err != nil {
		return fmt.Errorf("assign notes: %w", err)
	}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"$set": bson.M{"collectionId": coll, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("assign notes: %w", err)
	}
	return nil
}

func (r *NoteRepository) ClearCollection(ctx context.Context, collectionID string) (int64, error) {
	coll, err := objectID(collectionID)
	if err != nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{"collectionId": coll},
		bson.M{"$set": bson.M{"collectionId": nil, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("detach notes: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return domain.ErrNoteNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	owner, err := objectID(ownerID)
	if err != nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"user": owner})
	if err != nil {
		return 0, fmt.Errorf("delete notes by owner: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates indexes for the owner listing, title search and
// collection membership queries.
func (r *NoteRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "collectionId", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *NoteRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	cur, err := r.col.Find(ctx, filter, findOpts...)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	var docs []noteDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}

	notes := make([]*domain.Note, 0, len(docs))
	for i := range docs {
		notes = append(notes, docs[i].toDomain())
	}
	return notes, nil
}
