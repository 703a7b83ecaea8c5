// Package mongo stores ledger values as documents keyed by _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"allocation-tracker/internal/storage"
)

const (
	DefaultDatabase   = "allocation_tracker"
	DefaultCollection = "kv_entries"
)

type entry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Store is a storage.Store backed by a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ storage.Store = (*Store)(nil)

// Connect dials uri, pings the server and returns a store using database/kv_entries.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	slog.DebugContext(ctx, "Attempting to connect to MongoDB", "database", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.InfoContext(ctx, "Successfully established connection to MongoDB", "database", database)
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(DefaultCollection),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var e entry
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	doc := entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
