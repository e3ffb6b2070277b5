package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/s1natex/todo-sqlite/internal/config"
	"github.com/s1natex/todo-sqlite/internal/todolist"
	"github.com/s1natex/todo-sqlite/internal/todos"
)

func testRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := todos.NewInMemoryRepo()
	list := todolist.New(repo, todolist.AnswerFromContext, logger)
	if err := list.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return newRouter(cfg, repo, list, logger)
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(t, config.Default())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	expected := `{"status":"ok"}`
	if got := strings.TrimSpace(w.Body.String()); got != expected {
		t.Errorf("expected body %s, got %s", expected, got)
	}
}

func TestAPIAndWebShareStore(t *testing.T) {
	r := testRouter(t, config.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/todos", strings.NewReader(`{"text":"Buy milk"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var created todos.Todo
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Text != "Buy milk" || created.Done {
		t.Fatalf("unexpected todo: %+v", created)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("index: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Buy milk") {
		t.Fatalf("web page does not show the API-created todo:\n%s", w.Body.String())
	}

	form := url.Values{"text": {"Walk dog"}}
	req = httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("submit: expected 303, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/todos", nil))
	var list []todos.Todo
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 || list[0].Text != "Walk dog" || list[1].Text != "Buy milk" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestAuthGuardsOnlyTheAPI(t *testing.T) {
	cfg := config.Default()
	cfg.AuthMode = "apikey"
	cfg.APIKey = "k"
	r := testRouter(t, cfg)

	cases := []struct {
		path string
		key  string
		want int
	}{
		{"/api/todos", "", http.StatusUnauthorized},
		{"/api/todos", "k", http.StatusOK},
		{"/", "", http.StatusOK},
		{"/health", "", http.StatusOK},
		{"/metrics", "", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.key != "" {
			req.Header.Set("X-API-Key", tc.key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("GET %s (key %q): expected %d, got %d", tc.path, tc.key, tc.want, w.Code)
		}
	}
}

func TestOpenStoreInMemory(t *testing.T) {
	repo, err := openStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if _, err := repo.Add(ctx, "A"); err != nil {
		t.Fatalf("add: %v", err)
	}
	items, err := repo.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %v %+v", err, items)
	}
}

func TestOpenStoreFailures(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "file")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	junk := filepath.Join(dir, "junk.db")
	if err := os.WriteFile(junk, []byte(strings.Repeat("this is not a database\n", 200)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for name, path := range map[string]string{
		"parent is a file": filepath.Join(plain, "todos.db"),
		"not sqlite":       junk,
	} {
		t.Run(name, func(t *testing.T) {
			repo, err := openStore(context.Background(), path)
			if err == nil {
				_ = repo.Close()
				t.Fatalf("expected an error opening %s", path)
			}
		})
	}
}

func TestRunExitsOneWhenStoreInitFails(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	t.Setenv("TODO_TRACE_EXPORTER", "none")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	junk := filepath.Join(t.TempDir(), "junk.db")
	if err := os.WriteFile(junk, []byte(strings.Repeat("garbage ", 512)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if code := run([]string{"-db", junk, "ls"}); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
