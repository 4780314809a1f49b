package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/testutil"
)

// skipIfNoService skips the test if the API is not running
func skipIfNoService(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.WaitForService(ctx, 3*time.Second); err != nil {
		t.Skipf("collections-api not available: %v (start cmd/collections-api first)", err)
	}
}

func getTestClient() *Client {
	if u := os.Getenv("COLLECTIONS_API_URL"); u != "" {
		return NewClient(u)
	}
	return NewClient(DefaultBaseURL)
}

// cleanMongo empties the API's database after the test when MONGO_URI
// points at it. It returns nil when the API is not backed by MongoDB.
func cleanMongo(t *testing.T) *DatabaseCleaner {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		return nil
	}
	db := os.Getenv("MONGO_DB")
	if db == "" {
		db = "collections"
	}

	cleaner, err := NewDatabaseCleaner(uri, db)
	if err != nil {
		t.Logf("skipping mongo cleanup: %v", err)
		return nil
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := cleaner.CleanAll(ctx); err != nil {
			t.Logf("mongo cleanup failed: %v", err)
		}
		_ = cleaner.Close(ctx)
	})
	return cleaner
}

// TestEndToEndIngestAndQuery loads the sample dataset and reads every report
// that does not depend on the server clock.
func TestEndToEndIngestAndQuery(t *testing.T) {
	c := getTestClient()
	skipIfNoService(t, c)
	cleaner := cleanMongo(t)

	ctx := context.Background()

	t.Log("Step 1: Ingesting sample dataset...")
	ingested, err := c.Ingest(ctx, testutil.SampleDataset())
	if err != nil {
		t.Fatalf("Failed to ingest dataset: %v", err)
	}
	if ingested.Report.Clients != 4 || ingested.Report.Interactions != 8 {
		t.Errorf("report = %+v, want 4 clients and 8 interactions", ingested.Report)
	}
	t.Logf("  Run %s: %d links, %d facts sent, %d failed",
		ingested.Report.RunID, ingested.Report.Links, ingested.Report.FactsSent, ingested.Report.FactsFailed)

	if cleaner != nil {
		n, err := cleaner.CountDocuments(ctx, "clients")
		if err != nil {
			t.Fatalf("Failed to count stored clients: %v", err)
		}
		if n != 4 {
			t.Errorf("stored clients = %d, want 4", n)
		}
	}

	t.Log("Step 2: Reading client timeline...")
	timeline, err := c.GetTimeline(ctx, "cliente_001")
	if err != nil {
		t.Fatalf("Failed to get timeline: %v", err)
	}
	if timeline.TotalInteractions != 3 || len(timeline.Timeline) != 3 {
		t.Errorf("timeline has %d entries, want 3", timeline.TotalInteractions)
	}
	if timeline.Debt.CurrentDebt != "12000" {
		t.Errorf("current_debt = %s, want 12000", timeline.Debt.CurrentDebt)
	}

	t.Log("Step 3: Reading debt for the placeholder client...")
	debt, err := c.GetDebt(ctx, "cliente_004")
	if err != nil {
		t.Fatalf("Failed to get debt: %v", err)
	}
	if debt.CurrentDebt != "0" {
		t.Errorf("placeholder current_debt = %s, want 0", debt.CurrentDebt)
	}

	t.Log("Step 4: Reading broken promises...")
	broken, err := c.GetBrokenPromises(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to get broken promises: %v", err)
	}
	if broken.Summary.TotalBrokenPromises < 1 {
		t.Errorf("expected at least one broken promise, got %d", broken.Summary.TotalBrokenPromises)
	}

	t.Log("Step 5: Reading best time slots...")
	slots, err := c.GetBestTimeSlots(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get time slots: %v", err)
	}
	if len(slots.TimeSlots) == 0 || slots.TimeSlots[0].Bucket != "monday:10" {
		t.Errorf("best slot = %+v, want monday:10 first", slots.TimeSlots)
	}

	t.Log("Step 6: Reading dashboard KPIs...")
	kpis, err := c.GetKPIs(ctx)
	if err != nil {
		t.Fatalf("Failed to get KPIs: %v", err)
	}
	if kpis.TotalDebt != "28000" || kpis.TotalPaid != "3000" || kpis.RecoveryRate != 10.71 {
		t.Errorf("kpis = %+v", kpis)
	}

	t.Log("Step 7: Checking system status...")
	status, code, err := c.GetSystemStatus(ctx)
	if err != nil {
		t.Fatalf("Failed to get system status: %v", err)
	}
	if !status.DataPipeline.HasData || status.Clients != 4 {
		t.Errorf("status = %d %+v", code, status)
	}
	t.Logf("  Overall %s, recommendations: %v", status.Status, status.Recommendations)

	t.Log("Step 8: Reading ingest logs...")
	logs, err := c.QueryLogs(ctx, "INGEST", 20)
	if err != nil {
		t.Fatalf("Failed to query logs: %v", err)
	}
	found := false
	for _, l := range logs {
		if l.Message == "ingestion_completed" {
			found = true
		}
	}
	if !found {
		t.Errorf("ingestion_completed not in INGEST logs: %+v", logs)
	}
}
