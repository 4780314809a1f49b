// Package logring keeps the most recent log records in memory so the API
// can serve them without a log aggregator.
package logring

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const DefaultSize = 100

// DefaultService is reported for records without a component attribute.
const DefaultService = "SYSTEM"

// ComponentKey is the attribute naming the component that logged a record.
const ComponentKey = "component"

// Services lists the component names the API reports as filterable.
var Services = []string{"SYSTEM", "API", "INGEST", "GRAPHITI", "NEO4J", "CACHE", "EVENTS", "STORE"}

type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Service   string         `json:"service"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// Buffer is a fixed-size ring of log entries safe for concurrent use
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Add stores e, evicting the oldest entry once the buffer is full.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}

// Entries returns up to limit entries, newest first. An empty service
// matches every entry; a non-positive limit returns all of them.
func (b *Buffer) Entries(limit int, service string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.next
	if b.full {
		n = len(b.entries)
	}

	out := make([]Entry, 0)
	for i := 0; i < n; i++ {
		e := b.entries[(b.next-1-i+len(b.entries))%len(b.entries)]
		if service != "" && !strings.EqualFold(e.Service, service) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Handler copies every record it handles into a Buffer before passing it
// on to the wrapped handler.
type Handler struct {
	next   slog.Handler
	buf    *Buffer
	attrs  []slog.Attr
	groups []string
}

func NewHandler(next slog.Handler, buf *Buffer) *Handler {
	return &Handler{next: next, buf: buf}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	e := Entry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Service:   DefaultService,
		Message:   r.Message,
	}

	data := make(map[string]any)
	for _, a := range h.attrs {
		collect(&e, data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(&e, data, h.prefix(), a)
		return true
	})
	if len(data) > 0 {
		e.Data = data
	}

	h.buf.Add(e)
	return h.next.Handle(ctx, r)
}

// collect flattens a into data under dotted keys. Entries are served as
// JSON, so values are reduced to something that encodes meaningfully.
func collect(e *Entry, data map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	switch {
	case a.Key == ComponentKey:
		e.Service = strings.ToUpper(a.Value.String())
	case a.Value.Kind() == slog.KindGroup:
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			collect(e, data, prefix, ga)
		}
	case a.Key == "":
	default:
		data[prefix+a.Key] = entryValue(a.Value)
	}
}

func entryValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if a.Key != ComponentKey {
			a.Key = h.prefix() + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *Handler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}
