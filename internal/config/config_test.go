package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENVIRONMENT", "STORE_TYPE", "GRACE_HOURS", "MIN_SAMPLE_SIZE",
		"GRAPHITI_TIMEOUT_SECONDS", "SEARCH_CACHE_TTL_SECONDS", "ALLOWED_ORIGINS",
		"REQUEST_TIMEOUT_SECONDS", "INGEST_TIMEOUT_SECONDS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" || cfg.StoreType != "memory" || cfg.GraceHours != 48 || cfg.MinSampleSize != 5 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.GraphitiTimeout != 30*time.Second || cfg.SearchCacheTTL != 10*time.Minute {
		t.Errorf("durations = %v, %v", cfg.GraphitiTimeout, cfg.SearchCacheTTL)
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.IngestTimeout != 10*time.Minute {
		t.Errorf("request timeout = %v, ingest timeout = %v", cfg.RequestTimeout, cfg.IngestTimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Error("default environment should be development")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_TYPE", "mongo")
	t.Setenv("GRACE_HOURS", "72")
	t.Setenv("GRAPHITI_SIMULATION_MODE", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://dash.example.com,")
	t.Setenv("MIN_SAMPLE_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" || cfg.StoreType != "mongo" || cfg.GraceHours != 72 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.GraphitiSimulationMode {
		t.Error("GraphitiSimulationMode should be true")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://dash.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MinSampleSize != 5 {
		t.Errorf("invalid MIN_SAMPLE_SIZE should fall back to default, got %d", cfg.MinSampleSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE_TYPE": "postgres"}},
		{"firestore without project", map[string]string{"STORE_TYPE": "firestore"}},
		{"negative grace", map[string]string{"GRACE_HOURS": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}
