package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmstock/internal/repository/session"
)

type sessionDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// SessionRepository is a session.Store keeping one document per key.
type SessionRepository struct {
	collection *mongo.Collection
}

var _ session.Store = (*SessionRepository)(nil)

// Get loads the value stored under key.
func (r *SessionRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var doc sessionDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session key %s: %w", key, err)
	}
	return []byte(doc.Value), nil
}

// Set upserts the value stored under key.
func (r *SessionRepository) Set(ctx context.Context, key string, value []byte) error {
	doc := sessionDocument{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store session key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *SessionRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete session key %s: %w", key, err)
	}
	return nil
}
