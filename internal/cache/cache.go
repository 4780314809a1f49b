// Package cache keeps Graphiti search results in Redis so repeated
// dashboard queries do not hit the knowledge graph (and its LLM backend)
// every time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
)

const keyPrefix = "graphiti:search:"

// DefaultTTL applies when a zero TTL is configured.
const DefaultTTL = 10 * time.Minute

// Searcher runs a Graphiti search
type Searcher interface {
	Search(ctx context.Context, req graphiti.SearchRequest) (*graphiti.SearchResult, error)
}

// RedisCache stores serialized search results with a fixed TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr. The connection is lazy; call Ping to
// verify it.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Key derives the cache key for a request. Group ids are part of the key so
// tenants sharing a Redis never see each other's results.
func Key(req graphiti.SearchRequest) string {
	h := xxhash.New()
	for _, g := range req.GroupIDs {
		_, _ = h.WriteString(g)
		_, _ = h.WriteString(",")
	}
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(req.Query)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(strconv.Itoa(req.MaxFacts))
	return keyPrefix + strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the cached result. A miss returns (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, req graphiti.SearchRequest) (*graphiti.SearchResult, bool, error) {
	data, err := c.client.Get(ctx, Key(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result graphiti.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, req graphiti.SearchRequest, result *graphiti.SearchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, Key(req), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedSearcher serves searches from the cache and falls back to the
// wrapped searcher. Redis failures degrade to uncached searches.
type CachedSearcher struct {
	inner Searcher
	cache *RedisCache
}

func NewCachedSearcher(inner Searcher, cache *RedisCache) *CachedSearcher {
	return &CachedSearcher{inner: inner, cache: cache}
}

func (s *CachedSearcher) Search(ctx context.Context, req graphiti.SearchRequest) (*graphiti.SearchResult, error) {
	cached, ok, err := s.cache.Get(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "search_cache_unavailable", "component", "cache", "error", err)
	}
	if ok {
		slog.DebugContext(ctx, "search_cache_hit", "component", "cache", "key", Key(req))
		return cached, nil
	}

	result, err := s.inner.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, req, result); err != nil {
		slog.WarnContext(ctx, "search_cache_store_failed", "component", "cache", "error", err)
	}
	return result, nil
}
