package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Dataset store
	StoreType          string
	MongoURI           string
	MongoDB            string
	FirestoreProjectID string

	// Graphiti knowledge graph
	GraphitiURL            string
	GraphitiGroupID        string
	GraphitiTimeout        time.Duration
	GraphitiSimulationMode bool

	// Search cache
	RedisAddr      string
	SearchCacheTTL time.Duration

	// Neo4j projection
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Reconciliation
	GraceHours    int
	MinSampleSize int

	// Ingestion
	DataFile         string
	IngestBatchSize  int
	IngestWebhookURL string

	// HTTP
	AllowedOrigins []string
	RequestTimeout time.Duration
	IngestTimeout  time.Duration
	LogBufferSize  int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Environment:            getEnv("ENVIRONMENT", "development"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		StoreType:              getEnv("STORE_TYPE", "memory"),
		MongoURI:               getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:                getEnv("MONGO_DB", "collections"),
		FirestoreProjectID:     getEnv("FIRESTORE_PROJECT_ID", ""),
		GraphitiURL:            getEnv("GRAPHITI_URL", "http://localhost:8000"),
		GraphitiGroupID:        getEnv("GRAPHITI_GROUP_ID", "analizador-patrones"),
		GraphitiTimeout:        time.Duration(getEnvInt("GRAPHITI_TIMEOUT_SECONDS", 30)) * time.Second,
		GraphitiSimulationMode: getEnvBool("GRAPHITI_SIMULATION_MODE", false),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		SearchCacheTTL:         time.Duration(getEnvInt("SEARCH_CACHE_TTL_SECONDS", 600)) * time.Second,
		Neo4jURI:               getEnv("NEO4J_URI", ""),
		Neo4jUser:              getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:          getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase:          getEnv("NEO4J_DATABASE", "neo4j"),
		GraceHours:             getEnvInt("GRACE_HOURS", 48),
		MinSampleSize:          getEnvInt("MIN_SAMPLE_SIZE", 5),
		DataFile:               getEnv("DATA_FILE", ""),
		IngestBatchSize:        getEnvInt("INGEST_BATCH_SIZE", 20),
		IngestWebhookURL:       getEnv("INGEST_WEBHOOK_URL", ""),
		AllowedOrigins:         getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		RequestTimeout:         time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		IngestTimeout:          time.Duration(getEnvInt("INGEST_TIMEOUT_SECONDS", 600)) * time.Second,
		LogBufferSize:          getEnvInt("LOG_BUFFER_SIZE", 100),
	}

	switch cfg.StoreType {
	case "memory", "mongo":
	case "firestore":
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID is required when STORE_TYPE=firestore")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_TYPE %q", cfg.StoreType)
	}
	if cfg.GraceHours < 0 {
		return nil, fmt.Errorf("GRACE_HOURS must not be negative")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
