package graphiti

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Client talks to the Graphiti REST service with retry logic
type Client struct {
	baseURL     string
	groupID     string
	httpClient  *http.Client
	retryConfig RetryConfig
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RetryableStatuses []int
}

// DefaultRetryConfig returns sensible defaults for retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RetryableStatuses: []int{
			http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// NewClient creates a Graphiti client with default retries. An empty
// groupID falls back to DefaultGroupID.
func NewClient(baseURL, groupID string, timeout time.Duration) *Client {
	return NewClientWithRetry(baseURL, groupID, timeout, DefaultRetryConfig())
}

// NewClientWithRetry creates a Graphiti client with custom retry config
func NewClientWithRetry(baseURL, groupID string, timeout time.Duration, retryConfig RetryConfig) *Client {
	if groupID == "" {
		groupID = DefaultGroupID
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		groupID: groupID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retryConfig,
	}
}

func (c *Client) GroupID() string {
	return c.groupID
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search runs a semantic search. Without explicit group ids the client's
// group is searched.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if len(req.GroupIDs) == 0 {
		req.GroupIDs = []string{c.groupID}
	}

	start := time.Now()
	var result SearchResult
	if err := c.doJSON(ctx, http.MethodPost, "/search", req, &result); err != nil {
		slog.WarnContext(ctx, "graphiti_search_failed", "component", "graphiti",
			"query", truncate(req.Query, 80),
			"error", err,
		)
		return nil, err
	}
	if result.Facts == nil {
		result.Facts = make([]Fact, 0)
	}

	slog.DebugContext(ctx, "graphiti_search", "component", "graphiti",
		"query", truncate(req.Query, 80),
		"facts", len(result.Facts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &result, nil
}

// AddMessages queues episodes for ingestion into groupID.
func (c *Client) AddMessages(ctx context.Context, groupID string, messages []Message) error {
	if groupID == "" {
		groupID = c.groupID
	}
	return c.doJSON(ctx, http.MethodPost, "/messages", addMessagesRequest{
		GroupID:  groupID,
		Messages: messages,
	}, nil)
}

// Healthcheck returns nil when Graphiti answers GET /healthcheck with 2xx.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthcheck", nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
	}

	resp, err := c.do(ctx, method, c.baseURL+path, encoded)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return newHTTPError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do executes a request with retry logic. The request is rebuilt on every
// attempt so the body can be replayed.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var lastErr error
	backoff := c.retryConfig.InitialBackoff

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.DebugContext(ctx, "retrying request", "component", "graphiti",
				"service", "graphiti",
				"attempt", attempt,
				"method", method,
				"url", url,
				"backoff", backoff,
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			backoff *= 2
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		if c.isRetryableStatus(resp.StatusCode) {
			lastErr = newHTTPError(resp)
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded for %s: %w", url, lastErr)
}

func (c *Client) isRetryableStatus(statusCode int) bool {
	for _, s := range c.retryConfig.RetryableStatuses {
		if s == statusCode {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n runes for logging.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
