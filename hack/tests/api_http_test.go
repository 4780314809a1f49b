package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/events"
	apihttp "github.com/Betoxx1/Analizador-de-Patrones/internal/httpapi"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/ingest"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/logring"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/service"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/store"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/testutil"
)

type webhookRecorder struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (rec *webhookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var env events.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec.mu.Lock()
	rec.events = append(rec.events, env)
	rec.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (rec *webhookRecorder) types() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]string, 0, len(rec.events))
	for _, e := range rec.events {
		out = append(out, e.EventType)
	}
	return out
}

func newServer(t *testing.T, st store.DatasetStore) (*httptest.Server, *webhookRecorder) {
	t.Helper()

	rec := &webhookRecorder{}
	hooks := httptest.NewServer(rec)
	t.Cleanup(hooks.Close)

	publisher := events.NewPublisher("collections-api")
	publisher.RegisterEndpoint(events.EventIngestionCompleted, hooks.URL)
	publisher.RegisterEndpoint(events.EventPromisesBroken, hooks.URL)

	clock := testutil.Clock(testutil.FixtureNow)
	pipeline := ingest.NewPipeline(st, ingest.LogSink{}, ingest.Config{MinSampleSize: 1}).
		WithPublisher(publisher).
		WithClock(clock)
	svc := service.New(st, service.Config{MinSampleSize: 1}).
		WithPipeline(pipeline).
		WithClock(clock)

	ts := httptest.NewServer(apihttp.NewRouter(svc, apihttp.Options{
		RequestTimeout: 10 * time.Second,
		IngestTimeout:  time.Minute,
		Logs:           logring.NewBuffer(50),
	}))
	t.Cleanup(ts.Close)
	return ts, rec
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func ingestSample(t *testing.T, ts *httptest.Server) apihttp.IngestResponse {
	t.Helper()
	body, err := json.Marshal(testutil.SampleDataset())
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/api/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var out apihttp.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestIngestThenQuery(t *testing.T) {
	ts, hooks := newServer(t, store.NewMemoryStore())

	ingested := ingestSample(t, ts)
	if ingested.Report.Clients != 4 || ingested.Report.Interactions != 8 {
		t.Errorf("report = %+v", ingested.Report)
	}
	if ingested.Report.BrokenPromises != 1 || ingested.Report.FactsFailed != 0 {
		t.Errorf("report = %+v", ingested.Report)
	}
	if len(ingested.Rejected) != 0 {
		t.Errorf("rejected = %+v", ingested.Rejected)
	}

	got := hooks.types()
	if len(got) != 2 || got[0] != events.EventIngestionCompleted || got[1] != events.EventPromisesBroken {
		t.Errorf("webhook events = %v", got)
	}

	var timeline map[string]any
	if code := getJSON(t, ts.URL+"/api/clients/cliente_001/timeline", &timeline); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if timeline["total_interactions"] != float64(3) {
		t.Errorf("timeline total = %v", timeline["total_interactions"])
	}
	debt := timeline["debt"].(map[string]any)
	if debt["current_debt"] != "12000" {
		t.Errorf("current_debt = %v", debt["current_debt"])
	}

	var broken map[string]any
	getJSON(t, ts.URL+"/api/analytics/broken-promises?days_overdue=10", &broken)
	promises := broken["promises"].([]any)
	if len(promises) != 1 || promises[0].(map[string]any)["promise_id"] != "int_003" {
		t.Errorf("broken promises = %v", promises)
	}

	var kpis map[string]any
	getJSON(t, ts.URL+"/api/dashboard/kpis", &kpis)
	if kpis["recovery_rate"] != 10.71 || kpis["promises_kept"] != float64(1) {
		t.Errorf("kpis = %v", kpis)
	}

	var status map[string]any
	if code := getJSON(t, ts.URL+"/api/system/status", &status); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	pipeline := status["data_pipeline"].(map[string]any)
	if pipeline["has_data"] != true {
		t.Errorf("data_pipeline = %v", pipeline)
	}
}

func TestIngestReplacesDataset(t *testing.T) {
	ts, _ := newServer(t, store.NewMemoryStore())
	ingestSample(t, ts)

	body := []byte(`{"clients":[{"id":"c1","name":"Solo","initial_debt":"100"}],"interactions":[
		{"id":"i1","client_id":"c1","datetime":"2024-08-01T10:00:00Z","channel":"call","outcome":"immediate_payment","paid_amount":"40"},
		{"id":"i2","client_id":"c9","datetime":"not a date","channel":"sms","outcome":"no_contact"},
		{"id":"i3","client_id":"c1","datetime":"2024-08-02T10:00:00Z","channel":"fax","outcome":"no_contact"}
	]}`)
	resp, err := http.Post(ts.URL+"/api/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out apihttp.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Placeholders != 1 || len(out.Rejected) != 1 {
		t.Errorf("placeholders = %d, rejected = %+v", out.Placeholders, out.Rejected)
	}

	var debt map[string]any
	getJSON(t, ts.URL+"/api/clients/c1/debt", &debt)
	if debt["current_debt"] != "60" {
		t.Errorf("current_debt = %v, want 60", debt["current_debt"])
	}

	if code := getJSON(t, ts.URL+"/api/clients/cliente_001/debt", nil); code != http.StatusNotFound {
		t.Errorf("old client still served: %d", code)
	}
}

func TestHealthAndLogs(t *testing.T) {
	ts, _ := newServer(t, store.NewMemoryStore())

	var health map[string]string
	if code := getJSON(t, ts.URL+"/health", &health); code != http.StatusOK || health["status"] != "healthy" {
		t.Fatalf("health = %d %v", code, health)
	}

	var logs map[string]any
	if code := getJSON(t, ts.URL+"/api/system/logs?limit=5", &logs); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if _, ok := logs["services"]; !ok {
		t.Errorf("logs response = %v", logs)
	}
}
