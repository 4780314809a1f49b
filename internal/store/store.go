package store

import (
	"context"
	"errors"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

var ErrNotFound = errors.New("not found")

// InteractionFilter narrows ListInteractions. Empty fields match everything.
type InteractionFilter struct {
	ClientID string
	AgentID  string
}

func (f InteractionFilter) matches(in model.Interaction) bool {
	if f.ClientID != "" && in.ClientID != f.ClientID {
		return false
	}
	if f.AgentID != "" && in.AgentID != f.AgentID {
		return false
	}
	return true
}

// Stats describes the stored dataset
type Stats struct {
	Clients      int       `json:"clients"`
	Placeholders int       `json:"placeholders"`
	Interactions int       `json:"interactions"`
	Version      string    `json:"version"`
	GeneratedAt  time.Time `json:"generated_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DatasetStore persists the current dataset. Interactions are returned in
// ingestion order.
type DatasetStore interface {
	ReplaceDataset(ctx context.Context, ds model.Dataset) error
	ListClients(ctx context.Context) ([]model.Client, error)
	GetClient(ctx context.Context, clientID string) (model.Client, error)
	ListInteractions(ctx context.Context, filter InteractionFilter) ([]model.Interaction, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// LoadDataset reads the full dataset back out of s.
func LoadDataset(ctx context.Context, s DatasetStore) (model.Dataset, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return model.Dataset{}, err
	}
	interactions, err := s.ListInteractions(ctx, InteractionFilter{})
	if err != nil {
		return model.Dataset{}, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return model.Dataset{}, err
	}
	return model.Dataset{
		Metadata: model.Metadata{
			Version:           stats.Version,
			GeneratedAt:       stats.GeneratedAt,
			TotalClients:      len(clients),
			TotalInteractions: len(interactions),
		},
		Clients:      clients,
		Interactions: interactions,
	}, nil
}

func countPlaceholders(clients []model.Client) int {
	n := 0
	for _, c := range clients {
		if c.Placeholder {
			n++
		}
	}
	return n
}
