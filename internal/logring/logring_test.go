package logring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBuffer_NewestFirst(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Add(Entry{Message: fmt.Sprintf("m%d", i)})
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}

	got := b.Entries(0, "")
	want := []string{"m5", "m4", "m3"}
	for i, m := range want {
		if got[i].Message != m {
			t.Errorf("entries[%d] = %s, want %s", i, got[i].Message, m)
		}
	}
}

func TestBuffer_PartiallyFilled(t *testing.T) {
	b := NewBuffer(10)
	b.Add(Entry{Message: "first"})
	b.Add(Entry{Message: "second"})

	got := b.Entries(0, "")
	if len(got) != 2 || got[0].Message != "second" || got[1].Message != "first" {
		t.Errorf("Entries() = %+v", got)
	}
}

func TestBuffer_LimitAndService(t *testing.T) {
	b := NewBuffer(0)
	services := []string{"API", "INGEST", "API", "SYSTEM", "API"}
	for i, s := range services {
		b.Add(Entry{Service: s, Message: fmt.Sprintf("m%d", i)})
	}

	tests := []struct {
		name    string
		limit   int
		service string
		want    []string
	}{
		{"all", 0, "", []string{"m4", "m3", "m2", "m1", "m0"}},
		{"limit", 2, "", []string{"m4", "m3"}},
		{"service", 0, "api", []string{"m4", "m2", "m0"}},
		{"service with limit", 1, "INGEST", []string{"m1"}},
		{"unknown service", 0, "NEO4J", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Entries(tt.limit, tt.service)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, m := range tt.want {
				if got[i].Message != m {
					t.Errorf("entries[%d] = %s, want %s", i, got[i].Message, m)
				}
			}
		})
	}
}

func TestHandler(t *testing.T) {
	var out bytes.Buffer
	buf := NewBuffer(10)
	logger := slog.New(NewHandler(slog.NewJSONHandler(&out, nil), buf))

	logger.Info("ingestion_completed", "component", "ingest", "facts_sent", 31)
	logger.Debug("dropped")
	logger.With("request_id", "req-1").WithGroup("http").Warn("slow_request", "status", 200)

	if !strings.Contains(out.String(), "ingestion_completed") {
		t.Error("record not forwarded to the wrapped handler")
	}

	entries := buf.Entries(0, "")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (debug is below the wrapped handler's level)", len(entries))
	}

	slow := entries[0]
	if slow.Service != DefaultService || slow.Level != "WARN" {
		t.Errorf("slow entry = %+v", slow)
	}
	if slow.Data["request_id"] != "req-1" || slow.Data["http.status"] != int64(200) {
		t.Errorf("slow data = %+v", slow.Data)
	}

	done := entries[1]
	if done.Service != "INGEST" || done.Message != "ingestion_completed" || done.Data["facts_sent"] != int64(31) {
		t.Errorf("done entry = %+v", done)
	}
	if _, ok := done.Data["component"]; ok {
		t.Error("component should not be copied into data")
	}
}

func TestHandler_ConcurrentUse(t *testing.T) {
	buf := NewBuffer(50)
	logger := slog.New(NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), buf))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.InfoContext(context.Background(), "tick", "worker", i)
			}
		}(i)
	}
	wg.Wait()

	if buf.Len() != 50 {
		t.Errorf("Len() = %d, want 50", buf.Len())
	}
}

func TestHandler_EntriesEncodeAsJSON(t *testing.T) {
	buf := NewBuffer(10)
	logger := slog.New(NewHandler(slog.NewJSONHandler(io.Discard, nil), buf))

	cause := fmt.Errorf("send facts: %w", errors.New("graphiti quota exceeded"))
	logger.Error("ingestion_failed",
		"component", "ingest",
		"error", cause,
		slog.Group("batch", "index", 3, slog.Group("retry", "after", 1500*time.Millisecond)),
	)

	entries := buf.Entries(0, "")
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	raw, err := json.Marshal(entries[0])
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	var decoded struct {
		Service string         `json:"service"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Service != "INGEST" {
		t.Errorf("service = %q, want INGEST", decoded.Service)
	}
	want := map[string]any{
		"error":             "send facts: graphiti quota exceeded",
		"batch.index":       float64(3),
		"batch.retry.after": "1.5s",
	}
	for k, v := range want {
		if decoded.Data[k] != v {
			t.Errorf("data[%q] = %#v, want %#v (entry %s)", k, decoded.Data[k], v, raw)
		}
	}
	if _, ok := decoded.Data["batch"]; ok {
		t.Errorf("group should be flattened, got %s", raw)
	}
}
