package events

import (
	"encoding/json"
	"time"
)

// Event envelope for all events
type Envelope struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	SchemaVersion  string          `json:"schema_version"`
	IdempotencyKey string          `json:"idempotency_key"`
	Timestamp      time.Time       `json:"timestamp"`
	Source         string          `json:"source"`
	Data           json.RawMessage `json:"data"`
}

// Ingestion events
type IngestionCompletedData struct {
	RunID           string `json:"run_id"`
	Clients         int    `json:"clients"`
	Placeholders    int    `json:"placeholders"`
	Interactions    int    `json:"interactions"`
	Links           int    `json:"links"`
	BrokenPromises  int    `json:"broken_promises"`
	FactsSent       int    `json:"facts_sent"`
	FactsFailed     int    `json:"facts_failed"`
	GraphStatements int    `json:"graph_statements"`
	DurationMs      int64  `json:"duration_ms"`
}

// Promise events
type PromisesBrokenData struct {
	RunID    string          `json:"run_id"`
	Count    int             `json:"count"`
	Promises []BrokenPromise `json:"promises"`
}

type BrokenPromise struct {
	PromiseID    string    `json:"promise_id"`
	ClientID     string    `json:"client_id"`
	Amount       string    `json:"amount"`
	PromisedDate time.Time `json:"promised_date"`
}

// Event type constants
const (
	EventIngestionCompleted = "ingestion.completed"
	EventPromisesBroken     = "promises.broken"
)

const SchemaVersion = "1.0"
