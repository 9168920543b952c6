package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmstock/internal/domain/models"
)

const (
	snapshotsCollection = "inventory_snapshots"
	sessionCollection   = "session"
)

// SnapshotRepository defines the interface for inventory snapshot storage.
type SnapshotRepository interface {
	SaveInventorySnapshot(ctx context.Context, snapshot models.InventorySnapshot) error
}

// MongoDBRepository implements SnapshotRepository and hands out the session store.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
	}, nil
}

// SaveInventorySnapshot saves an inventory digest snapshot.
func (r *MongoDBRepository) SaveInventorySnapshot(ctx context.Context, snapshot models.InventorySnapshot) error {
	collection := r.client.Database(r.dbName).Collection(snapshotsCollection)
	_, err := collection.InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert inventory snapshot: %w", err)
	}
	return nil
}

// Sessions returns the session store backed by the same connection.
func (r *MongoDBRepository) Sessions() *SessionRepository {
	return &SessionRepository{
		collection: r.client.Database(r.dbName).Collection(sessionCollection),
	}
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
