package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/ingest"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/testutil"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"STORE_TYPE", "NEO4J_URI", "INGEST_WEBHOOK_URL", "DATA_FILE", "GRAPHITI_SIMULATION_MODE"} {
		t.Setenv(key, "")
	}
}

func TestRun_SimulatedJSON(t *testing.T) {
	isolateEnv(t)

	raw, err := json.Marshal(testutil.SampleDataset())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-file", path, "-simulate"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}

	var report ingest.Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("stdout is not a report: %v\n%s", err, stdout.String())
	}
	if report.Clients != 4 || report.Interactions != 8 {
		t.Errorf("report = %+v", report)
	}
	if report.FactsSent == 0 || report.FactsFailed != 0 {
		t.Errorf("facts sent %d, failed %d", report.FactsSent, report.FactsFailed)
	}
}

func TestRun_Usage(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing file", []string{"-simulate"}, 2},
		{"unknown flag", []string{"-bogus"}, 2},
		{"unsupported extension", []string{"-file", "data.xml", "-simulate"}, 1},
		{"missing csv", []string{"-file", "nope.csv", "-clients", "clients.csv", "-simulate"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("exit code = %d, want %d (stderr %s)", got, tt.want, stderr.String())
			}
		})
	}
}
