package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Publisher posts ingestion events to the webhooks registered per event
// type. Events without an endpoint are only logged.
type Publisher struct {
	source     string
	httpClient *http.Client
	endpoints  map[string]string // eventType -> webhook URL
	now        func() time.Time
}

func NewPublisher(source string) *Publisher {
	return &Publisher{
		source: source,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		endpoints: make(map[string]string),
		now:       time.Now,
	}
}

// RegisterEndpoint registers a webhook endpoint for an event type. Call it
// during startup, before events are published concurrently.
func (p *Publisher) RegisterEndpoint(eventType, webhookURL string) {
	p.endpoints[eventType] = webhookURL
}

// PublishIngestionCompleted announces a finished ingestion run.
func (p *Publisher) PublishIngestionCompleted(ctx context.Context, data IngestionCompletedData) error {
	env, err := p.envelope(EventIngestionCompleted, data.RunID, data)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "event_published", "component", "events",
		"event_id", env.EventID,
		"event_type", env.EventType,
		"run_id", data.RunID,
		"facts_failed", data.FactsFailed,
	)
	return p.deliver(ctx, env)
}

// PublishPromisesBroken announces the promises a run found broken. An
// empty list is not published.
func (p *Publisher) PublishPromisesBroken(ctx context.Context, data PromisesBrokenData) error {
	if len(data.Promises) == 0 {
		return nil
	}
	if data.Count == 0 {
		data.Count = len(data.Promises)
	}
	env, err := p.envelope(EventPromisesBroken, data.RunID, data)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "event_published", "component", "events",
		"event_id", env.EventID,
		"event_type", env.EventType,
		"run_id", data.RunID,
		"count", data.Count,
	)
	return p.deliver(ctx, env)
}

// envelope wraps data. Redelivering the same run yields the same
// idempotency key; a run without an ID falls back to the publish second.
func (p *Publisher) envelope(eventType, runID string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s data: %w", eventType, err)
	}

	now := p.now().UTC()
	key := fmt.Sprintf("%s_%d", eventType, now.Unix())
	if runID != "" {
		key = eventType + "_" + runID
	}
	return Envelope{
		EventID:        "evt_" + uuid.NewString(),
		EventType:      eventType,
		SchemaVersion:  SchemaVersion,
		IdempotencyKey: key,
		Timestamp:      now,
		Source:         p.source,
		Data:           raw,
	}, nil
}

// deliver posts env to its event type's webhook. Webhook failures are
// logged, never returned.
func (p *Publisher) deliver(ctx context.Context, env Envelope) error {
	url, ok := p.endpoints[env.EventType]
	if !ok {
		return nil
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", env.EventID)
	req.Header.Set("X-Event-Type", env.EventType)
	req.Header.Set("Idempotency-Key", env.IdempotencyKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "webhook_failed", "component", "events",
			"url", url,
			"event_type", env.EventType,
			"error", err,
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.WarnContext(ctx, "webhook_error", "component", "events",
			"url", url,
			"event_type", env.EventType,
			"status", resp.StatusCode,
		)
	}

	return nil
}
