// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	DBPath   string
	Addr     string
	LogLevel slog.Level
	LogFile  string

	AuthMode    string // none | apikey | bearer
	APIKey      string
	BearerToken string

	RateRPS   float64
	RateBurst int

	CORSOrigins   []string
	TraceExporter string // none | stdout | otlp
}

func Default() Config {
	return Config{
		Addr:          ":8080",
		LogLevel:      slog.LevelInfo,
		AuthMode:      "none",
		RateBurst:     20,
		CORSOrigins:   []string{"*"},
		TraceExporter: "none",
	}
}

// DefaultDBPath is todo/todos.db under the user's config directory.
func DefaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "todo", "todos.db"), nil
}

// FromEnv overlays the environment on the defaults. getenv is os.Getenv
// outside of tests.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(getenv("TODO_DB_PATH")); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(getenv("TODO_ADDR")); v != "" {
		cfg.Addr = v
	}
	cfg.LogLevel = ParseLevel(getenv("LOG_LEVEL"))
	cfg.LogFile = strings.TrimSpace(getenv("LOG_FILE"))

	if v := strings.ToLower(strings.TrimSpace(getenv("TODO_AUTH_MODE"))); v != "" {
		switch v {
		case "none", "apikey", "bearer":
			cfg.AuthMode = v
		default:
			return Config{}, fmt.Errorf("TODO_AUTH_MODE: unknown mode %q", v)
		}
	}
	cfg.APIKey = getenv("TODO_API_KEY")
	cfg.BearerToken = getenv("TODO_BEARER_TOKEN")
	if cfg.AuthMode == "apikey" && cfg.APIKey == "" {
		return Config{}, fmt.Errorf("TODO_API_KEY is required when TODO_AUTH_MODE=apikey")
	}
	if cfg.AuthMode == "bearer" && cfg.BearerToken == "" {
		return Config{}, fmt.Errorf("TODO_BEARER_TOKEN is required when TODO_AUTH_MODE=bearer")
	}

	if v := strings.TrimSpace(getenv("TODO_RATE_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return Config{}, fmt.Errorf("TODO_RATE_RPS: invalid value %q", v)
		}
		cfg.RateRPS = rps
	}
	if v := strings.TrimSpace(getenv("TODO_RATE_BURST")); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst < 1 {
			return Config{}, fmt.Errorf("TODO_RATE_BURST: invalid value %q", v)
		}
		cfg.RateBurst = burst
	}

	if v := strings.TrimSpace(getenv("TODO_CORS_ORIGINS")); v != "" {
		var origins []string
		for _, part := range strings.Split(v, ",") {
			if o := strings.TrimSpace(part); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}

	if v := strings.ToLower(strings.TrimSpace(getenv("TODO_TRACE_EXPORTER"))); v != "" {
		switch v {
		case "none", "stdout", "otlp":
			cfg.TraceExporter = v
		default:
			return Config{}, fmt.Errorf("TODO_TRACE_EXPORTER: unknown exporter %q", v)
		}
	}

	return cfg, nil
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
