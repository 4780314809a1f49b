package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// webhook records every envelope posted to it.
type webhook struct {
	envelopes []Envelope
	headers   []http.Header
	status    int
}

func (wh *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	_ = json.NewDecoder(r.Body).Decode(&env)
	wh.envelopes = append(wh.envelopes, env)
	wh.headers = append(wh.headers, r.Header.Clone())
	if wh.status != 0 {
		w.WriteHeader(wh.status)
	}
}

func TestNewPublisher(t *testing.T) {
	pub := NewPublisher("collections-ingest")

	if pub.source != "collections-ingest" {
		t.Errorf("NewPublisher() source = %v, want collections-ingest", pub.source)
	}
	if pub.httpClient == nil {
		t.Error("NewPublisher() did not initialize httpClient")
	}
	if pub.endpoints == nil {
		t.Error("NewPublisher() did not initialize endpoints map")
	}
}

func TestPublishIngestionCompleted_NoWebhook(t *testing.T) {
	pub := NewPublisher("test-service")

	if err := pub.PublishIngestionCompleted(context.Background(), IngestionCompletedData{RunID: "run_1"}); err != nil {
		t.Errorf("PublishIngestionCompleted() without webhook error: %v", err)
	}
}

func TestPublishIngestionCompleted(t *testing.T) {
	wh := &webhook{}
	server := httptest.NewServer(wh)
	defer server.Close()

	pub := NewPublisher("test-service")
	pub.RegisterEndpoint(EventIngestionCompleted, server.URL)

	err := pub.PublishIngestionCompleted(context.Background(), IngestionCompletedData{
		RunID:       "run_7",
		Clients:     3,
		FactsSent:   31,
		FactsFailed: 2,
		DurationMs:  12,
	})
	if err != nil {
		t.Fatalf("PublishIngestionCompleted() error: %v", err)
	}

	if len(wh.envelopes) != 1 {
		t.Fatalf("webhook received %d envelopes, want 1", len(wh.envelopes))
	}
	env := wh.envelopes[0]
	if env.EventType != EventIngestionCompleted || env.Source != "test-service" || env.SchemaVersion != SchemaVersion {
		t.Errorf("envelope = %+v", env)
	}
	if !strings.HasPrefix(env.EventID, "evt_") || wh.headers[0].Get("X-Event-ID") != env.EventID {
		t.Errorf("EventID = %q, header = %q", env.EventID, wh.headers[0].Get("X-Event-ID"))
	}
	if env.IdempotencyKey != "ingestion.completed_run_7" || wh.headers[0].Get("Idempotency-Key") != env.IdempotencyKey {
		t.Errorf("IdempotencyKey = %q", env.IdempotencyKey)
	}

	var data IngestionCompletedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.RunID != "run_7" || data.Clients != 3 || data.FactsSent != 31 || data.FactsFailed != 2 || data.DurationMs != 12 {
		t.Errorf("data = %+v", data)
	}
}

func TestPublishPromisesBroken(t *testing.T) {
	wh := &webhook{}
	server := httptest.NewServer(wh)
	defer server.Close()

	pub := NewPublisher("test-service")
	pub.RegisterEndpoint(EventPromisesBroken, server.URL)
	ctx := context.Background()

	promised := time.Date(2024, 8, 25, 0, 0, 0, 0, time.UTC)
	err := pub.PublishPromisesBroken(ctx, PromisesBrokenData{
		RunID: "run_42",
		Promises: []BrokenPromise{
			{PromiseID: "int_003", ClientID: "cliente_002", Amount: "1500", PromisedDate: promised},
		},
	})
	if err != nil {
		t.Fatalf("PublishPromisesBroken() error: %v", err)
	}
	if err := pub.PublishPromisesBroken(ctx, PromisesBrokenData{RunID: "run_43"}); err != nil {
		t.Fatalf("PublishPromisesBroken() empty error: %v", err)
	}

	if len(wh.envelopes) != 1 {
		t.Fatalf("webhook received %d envelopes, want 1 (empty lists are skipped)", len(wh.envelopes))
	}
	env := wh.envelopes[0]
	if wh.headers[0].Get("X-Event-Type") != EventPromisesBroken || env.IdempotencyKey != "promises.broken_run_42" {
		t.Errorf("envelope = %+v", env)
	}

	var data PromisesBrokenData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Count != 1 || len(data.Promises) != 1 {
		t.Fatalf("data = %+v", data)
	}
	if p := data.Promises[0]; p.PromiseID != "int_003" || p.Amount != "1500" || !p.PromisedDate.Equal(promised) {
		t.Errorf("promise = %+v", p)
	}
}

func TestPublish_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(&webhook{status: http.StatusInternalServerError})
	defer server.Close()

	pub := NewPublisher("test-service")
	pub.RegisterEndpoint(EventIngestionCompleted, server.URL)

	// Webhook failures are logged only
	if err := pub.PublishIngestionCompleted(context.Background(), IngestionCompletedData{}); err != nil {
		t.Errorf("PublishIngestionCompleted() should not error on webhook failure, got: %v", err)
	}

	pub.RegisterEndpoint(EventIngestionCompleted, "http://127.0.0.1:1/unreachable")
	if err := pub.PublishIngestionCompleted(context.Background(), IngestionCompletedData{}); err != nil {
		t.Errorf("PublishIngestionCompleted() should not error on unreachable webhook, got: %v", err)
	}
}

func TestIdempotencyKey_WithoutRunID(t *testing.T) {
	wh := &webhook{}
	server := httptest.NewServer(wh)
	defer server.Close()

	pub := NewPublisher("s")
	pub.now = func() time.Time { return time.Unix(1700000000, 0) }
	pub.RegisterEndpoint(EventIngestionCompleted, server.URL)

	_ = pub.PublishIngestionCompleted(context.Background(), IngestionCompletedData{})
	if len(wh.envelopes) != 1 || wh.envelopes[0].IdempotencyKey != "ingestion.completed_1700000000" {
		t.Errorf("envelopes = %+v", wh.envelopes)
	}
}
