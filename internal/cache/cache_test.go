package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
)

type stubSearcher struct {
	calls  int
	result *graphiti.SearchResult
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, req graphiti.SearchRequest) (*graphiti.SearchResult, error) {
	s.calls++
	return s.result, s.err
}

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestKey(t *testing.T) {
	base := graphiti.SearchRequest{Query: "broken promises", GroupIDs: []string{"g1"}, MaxFacts: 10}

	if Key(base) != Key(base) {
		t.Error("Key() is not deterministic")
	}

	variants := []graphiti.SearchRequest{
		{Query: "broken promises", GroupIDs: []string{"g2"}, MaxFacts: 10},
		{Query: "broken promise", GroupIDs: []string{"g1"}, MaxFacts: 10},
		{Query: "broken promises", GroupIDs: []string{"g1"}, MaxFacts: 5},
	}
	for _, v := range variants {
		if Key(v) == Key(base) {
			t.Errorf("Key(%+v) collides with base", v)
		}
	}
}

func TestRedisCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	req := graphiti.SearchRequest{Query: "cliente_001", GroupIDs: []string{"g"}}

	if _, ok, err := c.Get(ctx, req); err != nil || ok {
		t.Fatalf("Get() on empty cache = %v, %v", ok, err)
	}

	want := &graphiti.SearchResult{Facts: []graphiti.Fact{{UUID: "f1", Name: "PERFORMED", Fact: "agente_01 PERFORMED int_001"}}}
	if err := c.Set(ctx, req, want); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if !mr.Exists(Key(req)) {
		t.Fatalf("key %s not stored", Key(req))
	}

	got, ok, err := c.Get(ctx, req)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if len(got.Facts) != 1 || got.Facts[0].Fact != want.Facts[0].Fact {
		t.Errorf("Get() = %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, req); ok {
		t.Error("entry should expire after TTL")
	}
}

func TestNewRedisCache_DefaultTTL(t *testing.T) {
	c, _ := newTestCache(t, 0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}

func TestCachedSearcher(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)
	inner := &stubSearcher{result: &graphiti.SearchResult{Facts: []graphiti.Fact{{UUID: "f1"}}}}
	s := NewCachedSearcher(inner, c)
	req := graphiti.SearchRequest{Query: "q", GroupIDs: []string{"g"}}

	for i := 0; i < 3; i++ {
		result, err := s.Search(ctx, req)
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(result.Facts) != 1 {
			t.Fatalf("Search() = %+v", result)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedSearcher_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)
	inner := &stubSearcher{err: errors.New("graphiti down")}
	s := NewCachedSearcher(inner, c)
	req := graphiti.SearchRequest{Query: "q"}

	for i := 0; i < 2; i++ {
		if _, err := s.Search(ctx, req); err == nil {
			t.Fatal("Search() expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestCachedSearcher_RedisDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	inner := &stubSearcher{result: &graphiti.SearchResult{Facts: []graphiti.Fact{}}}
	s := NewCachedSearcher(inner, c)

	if _, err := s.Search(ctx, graphiti.SearchRequest{Query: "q"}); err != nil {
		t.Fatalf("Search() with redis down error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if err := c.Ping(ctx); err == nil {
		t.Error("Ping() expected error with redis down")
	}
}
