// Package integration exercises a running collections-api over HTTP.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL matches the API's default PORT
const DefaultBaseURL = "http://localhost:8080"

// Client is the integration test client
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Request makes an HTTP request against the API
func (c *Client) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// JSON makes a request and decodes the JSON response. Statuses >= 400
// become errors carrying the response body.
func (c *Client) JSON(ctx context.Context, method, path string, body, result any) error {
	resp, err := c.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// RequestWithStatus makes a request and returns the status code and body
func (c *Client) RequestWithStatus(ctx context.Context, method, path string, body any) (int, []byte, error) {
	resp, err := c.Request(ctx, method, path, body)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, bodyBytes, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.Request(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// WaitForService polls /health until it answers or timeout passes
func (c *Client) WaitForService(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := c.HealthCheck(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for %s", c.baseURL)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Ingestion

type IngestReport struct {
	RunID          string `json:"run_id"`
	Clients        int    `json:"clients"`
	Placeholders   int    `json:"placeholders"`
	Interactions   int    `json:"interactions"`
	Links          int    `json:"links"`
	BrokenPromises int    `json:"broken_promises"`
	FactsSent      int    `json:"facts_sent"`
	FactsFailed    int    `json:"facts_failed"`
}

type IngestResponse struct {
	Report            IngestReport `json:"report"`
	Placeholders      int          `json:"placeholders"`
	InvalidTimestamps int          `json:"invalid_timestamps"`
	Rejected          []struct {
		Kind   string `json:"kind"`
		ID     string `json:"id"`
		Reason string `json:"reason"`
	} `json:"rejected"`
}

// Ingest posts a dataset document (any JSON-encodable value)
func (c *Client) Ingest(ctx context.Context, dataset any) (*IngestResponse, error) {
	var result IngestResponse
	err := c.JSON(ctx, http.MethodPost, "/api/ingest", dataset, &result)
	return &result, err
}

// Clients

type Debt struct {
	ClientID    string `json:"client_id"`
	InitialDebt string `json:"initial_debt"`
	TotalPaid   string `json:"total_paid"`
	CurrentDebt string `json:"current_debt"`
}

type TimelineEntry struct {
	ID       string `json:"id"`
	Datetime string `json:"datetime"`
	Channel  string `json:"channel"`
	Outcome  string `json:"outcome"`
}

type Timeline struct {
	ClientID          string          `json:"client_id"`
	ClientName        string          `json:"client_name"`
	Timeline          []TimelineEntry `json:"timeline"`
	TotalInteractions int             `json:"total_interactions"`
	Debt              Debt            `json:"debt"`
}

func (c *Client) GetTimeline(ctx context.Context, clientID string) (*Timeline, error) {
	var result Timeline
	err := c.JSON(ctx, http.MethodGet, "/api/clients/"+url.PathEscape(clientID)+"/timeline", nil, &result)
	return &result, err
}

func (c *Client) GetDebt(ctx context.Context, clientID string) (*Debt, error) {
	var result Debt
	err := c.JSON(ctx, http.MethodGet, "/api/clients/"+url.PathEscape(clientID)+"/debt", nil, &result)
	return &result, err
}

// Analytics

type BrokenPromises struct {
	Summary struct {
		TotalBrokenPromises int     `json:"total_broken_promises"`
		TotalAmount         string  `json:"total_amount"`
		AvgDaysOverdue      float64 `json:"avg_days_overdue"`
		UniqueClients       int     `json:"unique_clients"`
	} `json:"summary"`
	Promises []struct {
		PromiseID   string `json:"promise_id"`
		ClientID    string `json:"client_id"`
		DaysOverdue int    `json:"days_overdue"`
	} `json:"promises"`
}

func (c *Client) GetBrokenPromises(ctx context.Context, daysOverdue int) (*BrokenPromises, error) {
	var result BrokenPromises
	path := "/api/analytics/broken-promises?days_overdue=" + strconv.Itoa(daysOverdue)
	err := c.JSON(ctx, http.MethodGet, path, nil, &result)
	return &result, err
}

type TimeSlots struct {
	MinimumSampleSize int `json:"minimum_sample_size"`
	TimeSlots         []struct {
		Bucket         string  `json:"bucket"`
		SuccessRate    float64 `json:"success_rate"`
		Recommendation string  `json:"recommendation"`
	} `json:"time_slots"`
}

func (c *Client) GetBestTimeSlots(ctx context.Context, minSamples int) (*TimeSlots, error) {
	var result TimeSlots
	path := "/api/analytics/best-time-slots?min_samples=" + strconv.Itoa(minSamples)
	err := c.JSON(ctx, http.MethodGet, path, nil, &result)
	return &result, err
}

// Dashboard

type KPIs struct {
	RecoveryRate   float64 `json:"recovery_rate"`
	PromisesKept   int     `json:"promises_kept"`
	PromisesBroken int     `json:"promises_broken"`
	ContactRate    float64 `json:"contact_rate"`
	ClientsAtRisk  int     `json:"clients_at_risk"`
	TotalDebt      string  `json:"total_debt"`
	TotalPaid      string  `json:"total_paid"`
}

func (c *Client) GetKPIs(ctx context.Context) (*KPIs, error) {
	var result KPIs
	err := c.JSON(ctx, http.MethodGet, "/api/dashboard/kpis", nil, &result)
	return &result, err
}

// System

type SystemStatus struct {
	Status     string `json:"status"`
	Components map[string]struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"components"`
	DataPipeline struct {
		CanIngest bool `json:"can_ingest"`
		CanQuery  bool `json:"can_query"`
		HasData   bool `json:"has_data"`
	} `json:"data_pipeline"`
	Recommendations []string `json:"recommendations"`
	Clients         int      `json:"clients"`
	Interactions    int      `json:"interactions"`
}

// GetSystemStatus decodes the status document even when the API answers 503.
func (c *Client) GetSystemStatus(ctx context.Context) (*SystemStatus, int, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/api/system/status", nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result SystemStatus
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, err
	}
	return &result, resp.StatusCode, nil
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service"`
	Message   string `json:"message"`
}

func (c *Client) QueryLogs(ctx context.Context, service string, limit int) ([]LogEntry, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if service != "" {
		q.Set("service", service)
	}
	var result struct {
		Logs  []LogEntry `json:"logs"`
		Total int        `json:"total"`
	}
	err := c.JSON(ctx, http.MethodGet, "/api/system/logs?"+q.Encode(), nil, &result)
	return result.Logs, err
}
