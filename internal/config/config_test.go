package config

import (
	"log/slog"
	"testing"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.AuthMode != "none" || cfg.TraceExporter != "none" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel)
	}
	if cfg.RateRPS != 0 {
		t.Fatalf("rate limiting should be off by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"TODO_DB_PATH":        "/tmp/x.db",
		"TODO_ADDR":           ":9000",
		"LOG_LEVEL":           "DEBUG",
		"TODO_AUTH_MODE":      "apikey",
		"TODO_API_KEY":        "k",
		"TODO_RATE_RPS":       "2.5",
		"TODO_RATE_BURST":     "5",
		"TODO_CORS_ORIGINS":   "https://a.example, https://b.example,",
		"TODO_TRACE_EXPORTER": "stdout",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" || cfg.Addr != ":9000" || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RateRPS != 2.5 || cfg.RateBurst != 5 {
		t.Fatalf("unexpected rate settings %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.TraceExporter != "stdout" {
		t.Fatalf("unexpected exporter %q", cfg.TraceExporter)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := []map[string]string{
		{"TODO_RATE_RPS": "fast"},
		{"TODO_RATE_BURST": "0"},
		{"TODO_AUTH_MODE": "magic"},
		{"TODO_AUTH_MODE": "bearer"},
		{"TODO_TRACE_EXPORTER": "jaeger"},
	}
	for _, c := range cases {
		if _, err := FromEnv(env(c)); err == nil {
			t.Errorf("expected error for %v", c)
		}
	}
}
