// Package service answers the collection analytics queries served by the
// HTTP API. Every report is computed from the stored dataset at request
// time, evaluated against the service clock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphdb"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/ingest"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/reconcile"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/store"
)

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrAgentNotFound    = errors.New("agent not found")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnavailable      = errors.New("dependency not configured")
)

// Searcher runs Graphiti searches, usually through the Redis cache
type Searcher interface {
	Search(ctx context.Context, req graphiti.SearchRequest) (*graphiti.SearchResult, error)
}

// HealthChecker reports whether Graphiti is reachable
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// GraphCounter reports the size of the Neo4j projection
type GraphCounter interface {
	Counts(ctx context.Context) (graphdb.Counts, error)
}

// Pinger is any dependency with a liveness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	GraceHours    int
	MinSampleSize int
	GroupID       string
}

type Service struct {
	store    store.DatasetStore
	cfg      Config
	now      func() time.Time
	searcher Searcher
	graphiti HealthChecker
	graph    GraphCounter
	cache    Pinger
	pipeline *ingest.Pipeline
}

func New(st store.DatasetStore, cfg Config) *Service {
	if cfg.GraceHours <= 0 {
		cfg.GraceHours = reconcile.DefaultGraceHours
	}
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = reconcile.DefaultMinimumSampleSize
	}
	if cfg.GroupID == "" {
		cfg.GroupID = graphiti.DefaultGroupID
	}

	slog.Info("analytics service initialized",
		"grace_hours", cfg.GraceHours,
		"min_sample_size", cfg.MinSampleSize,
	)

	return &Service{
		store: st,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithSearcher(searcher Searcher) *Service {
	s.searcher = searcher
	return s
}

func (s *Service) WithGraphiti(checker HealthChecker) *Service {
	s.graphiti = checker
	return s
}

func (s *Service) WithGraph(counter GraphCounter) *Service {
	s.graph = counter
	return s
}

func (s *Service) WithCache(cache Pinger) *Service {
	s.cache = cache
	return s
}

func (s *Service) WithPipeline(p *ingest.Pipeline) *Service {
	s.pipeline = p
	return s
}

// WithClock replaces the evaluation clock. Tests pin it to a fixed instant.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Config() Config {
	return s.cfg
}

// Ingest runs the ingestion pipeline on ds.
func (s *Service) Ingest(ctx context.Context, ds model.Dataset) (*ingest.Report, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("ingestion pipeline: %w", ErrUnavailable)
	}
	return s.pipeline.Run(ctx, ds)
}

// Search proxies a Graphiti search, scoped to the configured group when the
// caller names none.
func (s *Service) Search(ctx context.Context, req graphiti.SearchRequest) (*graphiti.SearchResult, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("graphiti search: %w", ErrUnavailable)
	}
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidParameter)
	}
	if req.MaxFacts < 0 {
		return nil, fmt.Errorf("%w: max_facts must be positive", ErrInvalidParameter)
	}
	if len(req.GroupIDs) == 0 {
		req.GroupIDs = []string{s.cfg.GroupID}
	}
	return s.searcher.Search(ctx, req)
}

func (s *Service) snapshot(ctx context.Context) (model.Dataset, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to load dataset: %w", err)
	}
	return ds, nil
}
