package integration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// datasetCollections are the collections written by the mongo dataset store
var datasetCollections = []string{
	"clients",
	"interactions",
	"dataset_metadata",
}

// DatabaseCleaner empties the API's MongoDB database between runs
type DatabaseCleaner struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDatabaseCleaner(mongoURI, dbName string) (*DatabaseCleaner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &DatabaseCleaner{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (d *DatabaseCleaner) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// CleanAll removes every stored client, interaction and metadata document
func (d *DatabaseCleaner) CleanAll(ctx context.Context) error {
	for _, coll := range datasetCollections {
		if _, err := d.db.Collection(coll).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("failed to clean collection %s: %w", coll, err)
		}
	}
	return nil
}

// CountDocuments reports how many documents a dataset collection holds
func (d *DatabaseCleaner) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return d.db.Collection(collection).CountDocuments(ctx, bson.M{})
}
