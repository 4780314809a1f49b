package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(context.Background(), projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) ReplaceDataset(ctx context.Context, ds model.Dataset) error {
	if err := s.clear(ctx, clientsCollection); err != nil {
		return err
	}
	if err := s.clear(ctx, interactionsCollection); err != nil {
		return err
	}

	bw := s.client.BulkWriter(ctx)
	for i, c := range ds.Clients {
		if _, err := bw.Set(s.client.Collection(clientsCollection).Doc(c.ID), toClientDoc(c, i)); err != nil {
			bw.End()
			return fmt.Errorf("save client %s: %w", c.ID, err)
		}
	}
	for i, in := range ds.Interactions {
		if _, err := bw.Set(s.client.Collection(interactionsCollection).Doc(in.ID), toInteractionDoc(in, i)); err != nil {
			bw.End()
			return fmt.Errorf("save interaction %s: %w", in.ID, err)
		}
	}
	bw.End()

	meta := newMetadataDoc(ds, time.Now().UTC())
	if _, err := s.client.Collection(metadataCollection).Doc(metadataDocID).Set(ctx, meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func (s *FirestoreStore) clear(ctx context.Context, collection string) error {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	bw := s.client.BulkWriter(ctx)
	defer bw.End()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("iterate %s: %w", collection, err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, doc.Ref.ID, err)
		}
	}
	return nil
}

func (s *FirestoreStore) ListClients(ctx context.Context) ([]model.Client, error) {
	iter := s.client.Collection(clientsCollection).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	clients := make([]model.Client, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate clients: %w", err)
		}

		var cd clientDoc
		if err := doc.DataTo(&cd); err != nil {
			return nil, fmt.Errorf("decode client: %w", err)
		}
		c, err := cd.toModel()
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func (s *FirestoreStore) GetClient(ctx context.Context, clientID string) (model.Client, error) {
	doc, err := s.client.Collection(clientsCollection).Doc(clientID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.Client{}, ErrNotFound
		}
		return model.Client{}, fmt.Errorf("get client: %w", err)
	}

	var cd clientDoc
	if err := doc.DataTo(&cd); err != nil {
		return model.Client{}, fmt.Errorf("decode client: %w", err)
	}
	return cd.toModel()
}

// ListInteractions sorts by seq after fetching; an equality filter combined
// with an order on another field would need a composite index.
func (s *FirestoreStore) ListInteractions(ctx context.Context, filter InteractionFilter) ([]model.Interaction, error) {
	query := s.client.Collection(interactionsCollection).Query
	if filter.ClientID != "" {
		query = query.Where("client_id", "==", filter.ClientID)
	}
	if filter.AgentID != "" {
		query = query.Where("agent_id", "==", filter.AgentID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []interactionDoc
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate interactions: %w", err)
		}

		var d interactionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode interaction: %w", err)
		}
		docs = append(docs, d)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })

	interactions := make([]model.Interaction, 0, len(docs))
	for _, d := range docs {
		in, err := d.toModel()
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	return interactions, nil
}

func (s *FirestoreStore) Stats(ctx context.Context) (Stats, error) {
	doc, err := s.client.Collection(metadataCollection).Doc(metadataDocID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("get metadata: %w", err)
	}

	var meta metadataDoc
	if err := doc.DataTo(&meta); err != nil {
		return Stats{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta.stats(), nil
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(metadataCollection).Doc(metadataDocID).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return errors.Join(errors.New("firestore unreachable"), err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
