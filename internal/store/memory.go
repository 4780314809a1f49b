package store

import (
	"context"
	"sync"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// MemoryStore is an in-memory implementation of DatasetStore for development
type MemoryStore struct {
	mu           sync.RWMutex
	clients      []model.Client
	clientIndex  map[string]int
	interactions []model.Interaction
	metadata     model.Metadata
	updatedAt    time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clientIndex: make(map[string]int),
	}
}

func (s *MemoryStore) ReplaceDataset(ctx context.Context, ds model.Dataset) error {
	clients := append([]model.Client(nil), ds.Clients...)
	index := make(map[string]int, len(clients))
	for i, c := range clients {
		index[c.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = clients
	s.clientIndex = index
	s.interactions = append([]model.Interaction(nil), ds.Interactions...)
	s.metadata = ds.Metadata
	s.updatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListClients(ctx context.Context) ([]model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]model.Client, 0, len(s.clients)), s.clients...), nil
}

func (s *MemoryStore) GetClient(ctx context.Context, clientID string) (model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.clientIndex[clientID]
	if !ok {
		return model.Client{}, ErrNotFound
	}
	return s.clients[i], nil
}

func (s *MemoryStore) ListInteractions(ctx context.Context, filter InteractionFilter) ([]model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Interaction, 0)
	for _, in := range s.interactions {
		if filter.matches(in) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Clients:      len(s.clients),
		Placeholders: countPlaceholders(s.clients),
		Interactions: len(s.interactions),
		Version:      s.metadata.Version,
		GeneratedAt:  s.metadata.GeneratedAt,
		UpdatedAt:    s.updatedAt,
	}, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
