package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

const (
	clientsCollection      = "clients"
	interactionsCollection = "interactions"
	metadataCollection     = "dataset_metadata"
	metadataDocID          = "current"
)

type MongoStore struct {
	client       *mongo.Client
	owned        bool
	clients      *mongo.Collection
	interactions *mongo.Collection
	metadata     *mongo.Collection
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:       client,
		clients:      db.Collection(clientsCollection),
		interactions: db.Collection(interactionsCollection),
		metadata:     db.Collection(metadataCollection),
	}
}

// OpenMongoStore connects to uri and prepares indexes. The returned store
// owns the client and disconnects it on Close.
func OpenMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := NewMongoStore(client, dbName)
	s.owned = true
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.clients.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "seq", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("client indexes: %w", err)
	}

	_, err = s.interactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "seq", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "seq", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "seq", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("interaction indexes: %w", err)
	}
	return nil
}

// ReplaceDataset swaps the stored dataset. The swap is not atomic across
// collections; readers may briefly see a partial dataset.
func (s *MongoStore) ReplaceDataset(ctx context.Context, ds model.Dataset) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.clients.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear clients: %w", err)
	}
	if _, err := s.interactions.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear interactions: %w", err)
	}

	if len(ds.Clients) > 0 {
		docs := make([]any, 0, len(ds.Clients))
		for i, c := range ds.Clients {
			docs = append(docs, toClientDoc(c, i))
		}
		if _, err := s.clients.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert clients: %w", err)
		}
	}

	if len(ds.Interactions) > 0 {
		docs := make([]any, 0, len(ds.Interactions))
		for i, in := range ds.Interactions {
			docs = append(docs, toInteractionDoc(in, i))
		}
		if _, err := s.interactions.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert interactions: %w", err)
		}
	}

	meta := newMetadataDoc(ds, time.Now().UTC())
	_, err := s.metadata.ReplaceOne(ctx, bson.M{"_id": metadataDocID}, bson.M{
		"_id":          metadataDocID,
		"version":      meta.Version,
		"generated_at": meta.GeneratedAt,
		"clients":      meta.Clients,
		"placeholders": meta.Placeholders,
		"interactions": meta.Interactions,
		"updated_at":   meta.UpdatedAt,
	}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func (s *MongoStore) ListClients(ctx context.Context) ([]model.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := s.clients.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	clients := make([]model.Client, 0)
	for cur.Next(ctx) {
		var doc clientDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		c, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *MongoStore) GetClient(ctx context.Context, clientID string) (model.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc clientDoc
	err := s.clients.FindOne(ctx, bson.M{"id": clientID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Client{}, ErrNotFound
		}
		return model.Client{}, err
	}
	return doc.toModel()
}

func (s *MongoStore) ListInteractions(ctx context.Context, filter InteractionFilter) ([]model.Interaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.ClientID != "" {
		query["client_id"] = filter.ClientID
	}
	if filter.AgentID != "" {
		query["agent_id"] = filter.AgentID
	}

	cur, err := s.interactions.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	interactions := make([]model.Interaction, 0)
	for cur.Next(ctx) {
		var doc interactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		in, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}
	return interactions, nil
}

func (s *MongoStore) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc metadataDoc
	err := s.metadata.FindOne(ctx, bson.M{"_id": metadataDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Stats{}, nil
		}
		return Stats{}, err
	}
	return doc.stats(), nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	// A client passed to NewMongoStore belongs to the caller
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
