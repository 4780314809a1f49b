package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
)

// FactSink receives rendered facts in batches
type FactSink interface {
	Send(ctx context.Context, facts []string) error
}

// GraphitiSink submits facts as Graphiti episodes
type GraphitiSink struct {
	client  *graphiti.Client
	groupID string
}

func NewGraphitiSink(client *graphiti.Client, groupID string) *GraphitiSink {
	return &GraphitiSink{client: client, groupID: groupID}
}

func (s *GraphitiSink) Send(ctx context.Context, facts []string) error {
	now := time.Now()
	msgs := make([]graphiti.Message, 0, len(facts))
	for _, f := range facts {
		msgs = append(msgs, graphiti.FactMessage(f, now))
	}
	return s.client.AddMessages(ctx, s.groupID, msgs)
}

// LogSink logs facts instead of sending them. Used in simulation mode.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, facts []string) error {
	for _, f := range facts {
		slog.InfoContext(ctx, "simulated_fact", "component", "ingest", "fact", f)
	}
	return nil
}
