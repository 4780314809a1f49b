// Command collections-ingest loads a dataset file into the configured store,
// Graphiti and Neo4j without starting the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/config"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/events"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphdb"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/ingest"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/loader"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fs := flag.NewFlagSet("collections-ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", cfg.DataFile, "dataset file (.json or interactions .csv)")
	clients := fs.String("clients", "", "clients CSV, used with a CSV -file")
	simulate := fs.Bool("simulate", cfg.GraphitiSimulationMode, "log facts instead of sending them to Graphiti")
	batchSize := fs.Int("batch-size", cfg.IngestBatchSize, "facts per Graphiti request")
	graceHours := fs.Int("grace-hours", cfg.GraceHours, "hours after a promised date before it is broken")
	webhook := fs.String("webhook", cfg.IngestWebhookURL, "URL that receives ingestion events")
	verify := fs.Bool("verify", false, "run verification searches after ingestion")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "-file is required")
		fs.Usage()
		return 2
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var result *loader.Result
	if *clients != "" {
		result, err = loader.LoadCSVFiles(*file, *clients)
	} else {
		result, err = loader.LoadFile(*file)
	}
	if err != nil {
		slog.Error("failed to load dataset", "component", "ingest", "path", *file, "error", err)
		return 1
	}
	for _, r := range result.Rejected {
		slog.Warn("record_rejected", "component", "ingest", "kind", r.Kind, "index", r.Index, "id", r.ID, "reason", r.Reason)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open dataset store", "component", "store", "error", err)
		return 1
	}
	defer st.Close()

	var sink ingest.FactSink = ingest.LogSink{}
	var client *graphiti.Client
	if !*simulate {
		client = graphiti.NewClient(cfg.GraphitiURL, cfg.GraphitiGroupID, cfg.GraphitiTimeout)
		sink = ingest.NewGraphitiSink(client, cfg.GraphitiGroupID)
	}

	pipeline := ingest.NewPipeline(st, sink, ingest.Config{
		GraceHours:    *graceHours,
		MinSampleSize: cfg.MinSampleSize,
		BatchSize:     *batchSize,
	})
	if *verify && client != nil {
		pipeline.WithVerifier(client)
	}
	if cfg.Neo4jURI != "" {
		projector, err := graphdb.NewProjector(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			slog.Warn("neo4j projection disabled", "component", "neo4j", "error", err)
		} else {
			defer projector.Close(context.Background())
			pipeline.WithProjector(projector)
		}
	}
	if *webhook != "" {
		publisher := events.NewPublisher("collections-ingest")
		publisher.RegisterEndpoint(events.EventIngestionCompleted, *webhook)
		publisher.RegisterEndpoint(events.EventPromisesBroken, *webhook)
		pipeline.WithPublisher(publisher)
	}

	report, err := pipeline.Run(ctx, result.Dataset)
	if err != nil {
		slog.Error("ingestion failed", "component", "ingest", "error", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if report.FactsFailed > 0 {
		return 3
	}
	return 0
}

func openStore(ctx context.Context, cfg *config.Config) (store.DatasetStore, error) {
	switch cfg.StoreType {
	case "mongo":
		return store.OpenMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	case "firestore":
		return store.NewFirestoreStore(cfg.FirestoreProjectID)
	default:
		return store.NewMemoryStore(), nil
	}
}
