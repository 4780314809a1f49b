package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/cache"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/config"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/events"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphdb"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/httpapi"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/ingest"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/loader"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/logring"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/service"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging; every record is also kept for /api/system/logs
	logs := logring.NewBuffer(cfg.LogBufferSize)
	logger := slog.New(logring.NewHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg)}),
		logs,
	))
	slog.SetDefault(logger)

	slog.Info("starting collections-api",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreType,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize store
	datasetStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open dataset store", "component", "store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	svc := service.New(datasetStore, service.Config{
		GraceHours:    cfg.GraceHours,
		MinSampleSize: cfg.MinSampleSize,
		GroupID:       cfg.GraphitiGroupID,
	})

	var sink ingest.FactSink = ingest.LogSink{}
	var searcher ingest.Searcher
	if cfg.GraphitiSimulationMode {
		slog.Warn("graphiti simulation mode enabled, facts are only logged", "component", "graphiti")
	} else {
		client := graphiti.NewClient(cfg.GraphitiURL, cfg.GraphitiGroupID, cfg.GraphitiTimeout)
		sink = ingest.NewGraphitiSink(client, cfg.GraphitiGroupID)
		searcher = client
		svc.WithGraphiti(client)
		slog.Info("using graphiti", "component", "graphiti", "url", cfg.GraphitiURL, "group_id", client.GroupID())
	}

	// Search cache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.SearchCacheTTL)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			slog.Warn("redis not reachable, searches fall through", "component", "cache", "error", err)
		}
		svc.WithCache(redisCache)
		if searcher != nil {
			searcher = cache.NewCachedSearcher(searcher, redisCache)
		}
	}
	if searcher != nil {
		svc.WithSearcher(searcher)
	}

	pipeline := ingest.NewPipeline(datasetStore, sink, ingest.Config{
		GraceHours:    cfg.GraceHours,
		MinSampleSize: cfg.MinSampleSize,
		BatchSize:     cfg.IngestBatchSize,
	})
	if searcher != nil {
		pipeline.WithVerifier(searcher)
	}

	// Neo4j projection
	if cfg.Neo4jURI != "" {
		projector, err := graphdb.NewProjector(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			slog.Warn("neo4j projection disabled", "component", "neo4j", "error", err)
		} else {
			defer func() {
				closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer closeCancel()
				_ = projector.Close(closeCtx)
			}()
			pipeline.WithProjector(projector)
			svc.WithGraph(projector)
		}
	}

	// Webhooks
	if cfg.IngestWebhookURL != "" {
		publisher := events.NewPublisher("collections-api")
		publisher.RegisterEndpoint(events.EventIngestionCompleted, cfg.IngestWebhookURL)
		publisher.RegisterEndpoint(events.EventPromisesBroken, cfg.IngestWebhookURL)
		pipeline.WithPublisher(publisher)
	}
	svc.WithPipeline(pipeline)

	if cfg.DataFile != "" {
		preload(cfg.DataFile, svc)
	}

	router := httpapi.NewRouter(svc, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		IngestTimeout:  cfg.IngestTimeout,
		Logs:           logs,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: max(cfg.RequestTimeout, cfg.IngestTimeout) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.IsDevelopment() {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// openStore returns the configured dataset store and a func that releases it.
func openStore(ctx context.Context, cfg *config.Config) (store.DatasetStore, func(), error) {
	switch cfg.StoreType {
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, err
		}
		st := store.NewMongoStore(client, cfg.MongoDB)
		if err := st.EnsureIndexes(ctx); err != nil {
			slog.Warn("failed to create indexes", "component", "store", "error", err)
		}
		slog.Info("using mongodb store", "component", "store", "db", cfg.MongoDB)
		return st, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				slog.Error("failed to disconnect mongodb", "component", "store", "error", err)
			}
		}, nil
	case "firestore":
		st, err := store.NewFirestoreStore(cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using firestore store", "component", "store", "project_id", cfg.FirestoreProjectID)
		return st, func() {
			if err := st.Close(); err != nil {
				slog.Error("failed to close firestore", "component", "store", "error", err)
			}
		}, nil
	default:
		slog.Info("using in-memory store", "component", "store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

// preload ingests a dataset file at startup. Failures are logged and the
// server starts empty.
func preload(path string, svc *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := loader.LoadFile(path)
	if err != nil {
		slog.Error("failed to load data file", "component", "ingest", "path", path, "error", err)
		return
	}
	if n := len(result.Rejected); n > 0 {
		slog.Warn("data file records rejected", "component", "ingest", "path", path, "count", n)
	}
	if _, err := svc.Ingest(ctx, result.Dataset); err != nil {
		slog.Error("failed to ingest data file", "component", "ingest", "path", path, "error", err)
	}
}
