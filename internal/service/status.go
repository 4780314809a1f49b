package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

const probeTimeout = 5 * time.Second

// SystemStatus probes every configured dependency. The store is required;
// any other failing dependency degrades the status.
func (s *Service) SystemStatus(ctx context.Context) *model.SystemStatus {
	status := &model.SystemStatus{
		Status:          StatusHealthy,
		Components:      make(map[string]model.ComponentStatus),
		Recommendations: make([]string, 0),
		Timestamp:       s.now(),
	}

	storeOK := s.probeStore(ctx, status)
	graphitiOK := s.probeGraphiti(ctx, status)
	s.probeGraph(ctx, status)
	s.probeCache(ctx, status)

	status.DataPipeline = model.DataPipeline{
		CanIngest: storeOK,
		CanQuery:  storeOK,
		HasData:   status.Interactions > 0,
	}
	if !status.DataPipeline.HasData && storeOK {
		status.Recommendations = append(status.Recommendations,
			"No dataset loaded; run collections-ingest or POST a dataset to /api/ingest")
	}
	if s.graphiti == nil {
		status.Recommendations = append(status.Recommendations,
			"Graphiti is not configured; facts are only logged and graph search is unavailable")
	} else if !graphitiOK {
		status.DataPipeline.CanIngest = false
	}

	for name, c := range status.Components {
		if c.Status != StatusUnhealthy {
			continue
		}
		if name == "store" {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}
	return status
}

func (s *Service) probeStore(ctx context.Context, status *model.SystemStatus) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		status.Components["store"] = model.ComponentStatus{Status: StatusUnhealthy, Message: err.Error()}
		status.Recommendations = append(status.Recommendations, "Dataset store is unreachable; check STORE_TYPE and MONGO_URI")
		return false
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		status.Components["store"] = model.ComponentStatus{Status: StatusUnhealthy, Message: err.Error()}
		return false
	}

	status.Clients = stats.Clients
	status.Interactions = stats.Interactions
	status.Components["store"] = model.ComponentStatus{
		Status: StatusHealthy,
		Details: map[string]any{
			"clients":      stats.Clients,
			"placeholders": stats.Placeholders,
			"interactions": stats.Interactions,
			"version":      stats.Version,
			"updated_at":   stats.UpdatedAt,
		},
	}
	return true
}

func (s *Service) probeGraphiti(ctx context.Context, status *model.SystemStatus) bool {
	if s.graphiti == nil {
		status.Components["graphiti"] = model.ComponentStatus{Status: StatusDisabled}
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := s.graphiti.Healthcheck(ctx)
	if err == nil {
		status.Components["graphiti"] = model.ComponentStatus{Status: StatusHealthy}
		return true
	}

	kind := graphiti.Classify(err)
	status.Components["graphiti"] = model.ComponentStatus{
		Status:  StatusUnhealthy,
		Message: err.Error(),
		Details: map[string]any{"failure": kind},
	}
	switch kind {
	case graphiti.FailureQuotaExceeded:
		status.Recommendations = append(status.Recommendations, "LLM quota exhausted; check the billing of the key Graphiti uses")
	case graphiti.FailureInvalidKey:
		status.Recommendations = append(status.Recommendations, "LLM API key rejected; check the key Graphiti is configured with")
	case graphiti.FailureUpstream:
		status.Recommendations = append(status.Recommendations, "Graphiti is answering with errors; check the Graphiti service logs")
	default:
		status.Recommendations = append(status.Recommendations, "Graphiti is unreachable; check GRAPHITI_URL")
	}
	return false
}

func (s *Service) probeGraph(ctx context.Context, status *model.SystemStatus) {
	if s.graph == nil {
		status.Components["neo4j"] = model.ComponentStatus{Status: StatusDisabled}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	counts, err := s.graph.Counts(ctx)
	if err != nil {
		status.Components["neo4j"] = model.ComponentStatus{Status: StatusUnhealthy, Message: err.Error()}
		status.Recommendations = append(status.Recommendations, "Neo4j is unreachable; graph projection is skipped during ingestion")
		return
	}
	status.Components["neo4j"] = model.ComponentStatus{
		Status: StatusHealthy,
		Details: map[string]any{
			"nodes":         counts.Nodes,
			"relationships": counts.Relationships,
		},
	}
	if counts.Nodes == 0 {
		status.Recommendations = append(status.Recommendations, "Neo4j graph is empty; re-run ingestion with NEO4J_URI set")
	}
}

func (s *Service) probeCache(ctx context.Context, status *model.SystemStatus) {
	if s.cache == nil {
		status.Components["cache"] = model.ComponentStatus{Status: StatusDisabled}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := s.cache.Ping(ctx); err != nil {
		status.Components["cache"] = model.ComponentStatus{Status: StatusUnhealthy, Message: fmt.Sprintf("redis: %v", err)}
		status.Recommendations = append(status.Recommendations, "Redis is unreachable; searches are served uncached")
		return
	}
	status.Components["cache"] = model.ComponentStatus{Status: StatusHealthy}
}
