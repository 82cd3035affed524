package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultAppName     = "notes-server"
	defaultMaxPoolSize = 50
)

// Config holds the connection settings for the notes database.
type Config struct {
	URI      string
	Database string
	// AppName is reported to the server and shows up in its logs and currentOp.
	AppName     string
	MaxPoolSize uint64
	Timeout     time.Duration
}

func clientOptions(cfg Config) *options.ClientOptions {
	appName := cfg.AppName
	if appName == "" {
		appName = defaultAppName
	}
	poolSize := cfg.MaxPoolSize
	if poolSize == 0 {
		poolSize = defaultMaxPoolSize
	}
	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetMaxPoolSize(poolSize).
		SetConnectTimeout(timeoutOrDefault(cfg.Timeout))
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// Connect opens the client, pings the primary and returns the notes database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.Timeout))
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes creates the users, notes and collections indexes. It is
// idempotent and meant to run once at startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	repos := []struct {
		name string
		repo indexer
	}{
		{collectionUsers, NewUserRepository(db)},
		{collectionNotes, NewNoteRepository(db)},
		{collectionCollections, NewCollectionRepository(db)},
	}
	for _, r := range repos {
		if err := r.repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", r.name, err)
		}
	}
	return nil
}
