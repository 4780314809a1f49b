// Package ingest loads a dataset into every backing system: the dataset
// store, the Graphiti knowledge graph, the Neo4j projection and the event
// webhooks.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/events"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphdb"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/reconcile"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/store"
)

const DefaultBatchSize = 20

// DefaultVerifyQueries are searched after ingestion to confirm Graphiti
// can answer dashboard questions.
var DefaultVerifyQueries = []string{
	"clients with initial debt",
	"payments made",
	"payment promises",
	"successful interactions",
}

// GraphProjector writes graph statements
type GraphProjector interface {
	Project(ctx context.Context, stmts []graphdb.Statement) error
}

// EventPublisher announces finished runs and the promises they found broken
type EventPublisher interface {
	PublishIngestionCompleted(ctx context.Context, data events.IngestionCompletedData) error
	PublishPromisesBroken(ctx context.Context, data events.PromisesBrokenData) error
}

// Searcher runs Graphiti searches for post-ingestion verification
type Searcher interface {
	Search(ctx context.Context, req graphiti.SearchRequest) (*graphiti.SearchResult, error)
}

type Config struct {
	GraceHours    int
	MinSampleSize int
	BatchSize     int
	VerifyQueries []string
}

// Report summarises one ingestion run
type Report struct {
	RunID              string        `json:"run_id"`
	Clients            int           `json:"clients"`
	Placeholders       int           `json:"placeholders"`
	Interactions       int           `json:"interactions"`
	Links              int           `json:"links"`
	BrokenPromises     int           `json:"broken_promises"`
	Slots              int           `json:"slots"`
	FactsSent          int           `json:"facts_sent"`
	FactsFailed        int           `json:"facts_failed"`
	GraphStatements    int           `json:"graph_statements"`
	GraphError         string        `json:"graph_error,omitempty"`
	VerificationPassed int           `json:"verification_passed"`
	VerificationTotal  int           `json:"verification_total"`
	Duration           time.Duration `json:"duration_ns"`
}

type Pipeline struct {
	store     store.DatasetStore
	sink      FactSink
	projector GraphProjector
	publisher EventPublisher
	verifier  Searcher
	cfg       Config
	now       func() time.Time
}

func NewPipeline(st store.DatasetStore, sink FactSink, cfg Config) *Pipeline {
	if cfg.GraceHours <= 0 {
		cfg.GraceHours = reconcile.DefaultGraceHours
	}
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = reconcile.DefaultMinimumSampleSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Pipeline{
		store: st,
		sink:  sink,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (p *Pipeline) WithProjector(projector GraphProjector) *Pipeline {
	p.projector = projector
	return p
}

func (p *Pipeline) WithPublisher(publisher EventPublisher) *Pipeline {
	p.publisher = publisher
	return p
}

// WithVerifier enables post-ingestion search checks using cfg.VerifyQueries.
func (p *Pipeline) WithVerifier(verifier Searcher) *Pipeline {
	p.verifier = verifier
	return p
}

func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run stores ds, derives links, slots and debts, and fans the results out.
// Only a store failure aborts the run; sink, graph and event failures are
// counted in the report.
func (p *Pipeline) Run(ctx context.Context, ds model.Dataset) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:        "run_" + uuid.NewString(),
		Clients:      len(ds.Clients),
		Interactions: len(ds.Interactions),
	}
	for _, c := range ds.Clients {
		if c.Placeholder {
			report.Placeholders++
		}
	}

	slog.InfoContext(ctx, "ingestion_started", "component", "ingest",
		"run_id", report.RunID,
		"clients", report.Clients,
		"interactions", report.Interactions,
	)

	if err := p.store.ReplaceDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("store dataset: %w", err)
	}

	links := reconcile.LinkPromisesToPayments(ds.Interactions, p.cfg.GraceHours, p.now())
	slots := reconcile.CalculateBestTimeSlots(ds.Interactions, p.cfg.MinSampleSize)
	debts := reconcile.CalculateDebts(ds.Interactions, ds.Clients)
	report.Links = len(links)
	report.Slots = len(slots)
	report.BrokenPromises = reconcile.CountByStatus(links)[model.LinkBroken]

	p.sendFacts(ctx, RenderFacts(ds, links, slots, debts), report)

	if p.projector != nil {
		stmts := graphdb.BuildStatements(ds, links)
		report.GraphStatements = len(stmts)
		if err := p.projector.Project(ctx, stmts); err != nil {
			slog.ErrorContext(ctx, "graph_projection_failed", "component", "ingest", "run_id", report.RunID, "error", err)
			report.GraphError = err.Error()
		}
	}

	if p.verifier != nil {
		p.verify(ctx, report)
	}

	report.Duration = time.Since(start)
	p.publish(ctx, report, links)

	slog.InfoContext(ctx, "ingestion_completed", "component", "ingest",
		"run_id", report.RunID,
		"links", report.Links,
		"broken_promises", report.BrokenPromises,
		"facts_sent", report.FactsSent,
		"facts_failed", report.FactsFailed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (p *Pipeline) sendFacts(ctx context.Context, all []string, report *Report) {
	for i := 0; i < len(all); i += p.cfg.BatchSize {
		end := min(i+p.cfg.BatchSize, len(all))
		batch := all[i:end]

		err := p.sink.Send(ctx, batch)
		if err == nil {
			report.FactsSent += len(batch)
			continue
		}

		report.FactsFailed += len(batch)
		slog.WarnContext(ctx, "fact_batch_failed", "component", "ingest",
			"run_id", report.RunID,
			"offset", i,
			"size", len(batch),
			"error", err,
		)

		// Remaining batches would fail the same way.
		if graphiti.IsQuotaError(err) || ctx.Err() != nil {
			report.FactsFailed += len(all) - end
			slog.ErrorContext(ctx, "fact_ingestion_aborted", "component", "ingest",
				"run_id", report.RunID,
				"reason", graphiti.Classify(err),
				"skipped", len(all)-end,
			)
			return
		}
	}
}

func (p *Pipeline) verify(ctx context.Context, report *Report) {
	queries := p.cfg.VerifyQueries
	if queries == nil {
		queries = DefaultVerifyQueries
	}
	report.VerificationTotal = len(queries)
	for _, q := range queries {
		if _, err := p.verifier.Search(ctx, graphiti.SearchRequest{Query: q, MaxFacts: 5}); err != nil {
			slog.WarnContext(ctx, "verification_query_failed", "component", "ingest", "query", q, "error", err)
			continue
		}
		report.VerificationPassed++
	}
}

func (p *Pipeline) publish(ctx context.Context, report *Report, links []model.PromisePaymentLink) {
	if p.publisher == nil {
		return
	}

	completed := events.IngestionCompletedData{
		RunID:           report.RunID,
		Clients:         report.Clients,
		Placeholders:    report.Placeholders,
		Interactions:    report.Interactions,
		Links:           report.Links,
		BrokenPromises:  report.BrokenPromises,
		FactsSent:       report.FactsSent,
		FactsFailed:     report.FactsFailed,
		GraphStatements: report.GraphStatements,
		DurationMs:      report.Duration.Milliseconds(),
	}
	if err := p.publisher.PublishIngestionCompleted(ctx, completed); err != nil {
		slog.WarnContext(ctx, "event_publish_failed", "component", "ingest", "event_type", events.EventIngestionCompleted, "error", err)
	}

	if report.BrokenPromises == 0 {
		return
	}
	broken := events.PromisesBrokenData{RunID: report.RunID, Count: report.BrokenPromises}
	for _, l := range links {
		if l.Status != model.LinkBroken {
			continue
		}
		broken.Promises = append(broken.Promises, events.BrokenPromise{
			PromiseID:    l.PromiseID,
			ClientID:     l.ClientID,
			Amount:       l.PromisedAmount.String(),
			PromisedDate: l.PromisedDate,
		})
	}
	if err := p.publisher.PublishPromisesBroken(ctx, broken); err != nil {
		slog.WarnContext(ctx, "event_publish_failed", "component", "ingest", "event_type", events.EventPromisesBroken, "error", err)
	}
}
