package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wlcham/notes-server/internal/core/domain"
)

const collectionCollections = "collections"

type CollectionRepository struct {
	col *mongo.Collection
}

func NewCollectionRepository(db *mongo.Database) *CollectionRepository {
	return &CollectionRepository{col: db.Collection(collectionCollections)}
}

type collectionDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	User        primitive.ObjectID   `bson:"user"`
	Notes       []primitive.ObjectID `bson:"notes"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d *collectionDoc) toDomain() *domain.Collection {
	return &domain.Collection{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		OwnerID:     d.User.Hex(),
		Notes:       hexes(d.Notes),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (r *CollectionRepository) Create(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	owner, err := objectID(c.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("insert collection: owner: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := collectionDoc{
		ID:          primitive.NewObjectID(),
		Name:        c.Name,
		Description: c.Description,
		User:        owner,
		Notes:       objectIDs(c.Notes),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CollectionRepository) FindByID(ctx context.Context, id string) (*domain.Collection, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, domain.ErrCollectionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc collectionDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("find collection: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns collections sorted by name. An empty ownerID lists every collection.
func (r *CollectionRepository) List(ctx context.Context, ownerID string) ([]*domain.Collection, error) {
	filter := bson.M{}
	if ownerID != "" {
		owner, err := objectID(ownerID)
		if err != nil {
			return nil, fmt.Errorf("list collections: owner: %w", err)
		}
		filter["user"] = owner
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find collections: %w", err)
	}
	var docs []collectionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}

	out := make([]*domain.Collection, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *CollectionRepository) Update(ctx context.Context, c *domain.Collection) error {
	return r.updateOne(ctx, c.ID, bson.M{"$set": bson.M{
		"name":        c.Name,
		"description": c.Description,
		"updatedAt":   c.UpdatedAt,
	}})
}

func (r *CollectionRepository) AddNote(ctx context.Context, collectionID, noteID string) error {
	note, err := objectID(noteID)
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	return r.updateOne(ctx, collectionID, bson.M{"$addToSet": bson.M{"notes": note}})
}

func (r *CollectionRepository) RemoveNote(ctx context.Context, collectionID, noteID string) error {
	note, err := objectID(noteID)
	if err != nil {
		return fmt.Errorf("remove note: %w", err)
	}
	err = r.updateOne(ctx, collectionID, bson.M{"$pull": bson.M{"notes": note}})
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return nil
	}
	return err
}

func (r *CollectionRepository) SetNotes(ctx context.Context, collectionID string, noteIDs []string) error {
	return r.updateOne(ctx, collectionID, bson.M{"$set": bson.M{"notes": objectIDs(noteIDs)}})
}

func (r *CollectionRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return domain.ErrCollectionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCollectionNotFound
	}
	return nil
}

func (r *CollectionRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	owner, err := objectID(ownerID)
	if err != nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"user": owner})
	if err != nil {
		return 0, fmt.Errorf("delete collections by owner: %w", err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the owner index used by listings and cascades.
func (r *CollectionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "name", Value: 1}},
	})
	return err
}

func (r *CollectionRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return domain.ErrCollectionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCollectionNotFound
	}
	return nil
}
