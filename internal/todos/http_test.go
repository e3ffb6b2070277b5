package todos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestServer() (*chi.Mux, *InMemoryRepo) {
	repo := NewInMemoryRepo()
	r := chi.NewRouter()
	RegisterRoutes(r, repo)
	return r, repo
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPostTodos_Success(t *testing.T) {
	r, _ := newTestServer()

	rec := do(r, http.MethodPost, "/api/todos", `{"text":"learn chi"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body=%s", rec.Code, rec.Body.String())
	}

	var got Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if got.ID == 0 {
		t.Errorf("expected non-zero ID")
	}
	if got.Text != "learn chi" {
		t.Errorf("expected Text=learn chi, got %q", got.Text)
	}
	if got.Done {
		t.Errorf("new todos should default to Done=false")
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}
}

func TestPostTodos_TextRequired(t *testing.T) {
	r, repo := newTestServer()

	for _, body := range []string{`{"text":""}`, `{"text":"   "}`} {
		rec := do(r, http.MethodPost, "/api/todos", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d, body=%s", rec.Code, rec.Body.String())
		}

		var errResp errResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
			t.Fatalf("failed to parse error JSON: %v", err)
		}
		if errResp.Error != "validation_error" || len(errResp.Details) == 0 || errResp.Details[0].Field != "text" {
			t.Errorf("unexpected error response %+v", errResp)
		}
	}

	list, _ := repo.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("blank text must not reach the store, got %+v", list)
	}
}

func TestPostTodos_TextTooLong(t *testing.T) {
	r, _ := newTestServer()

	body, _ := json.Marshal(createTodoRequest{Text: strings.Repeat("x", maxTextLen+1)})
	rec := do(r, http.MethodPost, "/api/todos", string(body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestPostTodos_InvalidJSON(t *testing.T) {
	r, _ := newTestServer()

	rec := do(r, http.MethodPost, "/api/todos", `{"text":`) // truncated/invalid JSON
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d, body=%s", rec.Code, rec.Body.String())
	}

	var errResp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to parse error JSON: %v", err)
	}
	if errResp["error"] != "invalid_json" {
		t.Errorf("expected error 'invalid_json', got %q", errResp["error"])
	}
}

func TestGetTodos_NewestFirst(t *testing.T) {
	r, repo := newTestServer()

	for _, text := range []string{"A", "B"} {
		if _, err := repo.Add(context.Background(), text); err != nil {
			t.Fatalf("unexpected error seeding repo: %v", err)
		}
	}

	rec := do(r, http.MethodGet, "/api/todos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}

	var list []Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(list))
	}
	if list[0].Text != "B" || list[1].Text != "A" {
		t.Errorf("expected [B, A], got %+v", list)
	}
}

func TestGetTodos_EmptyIsArray(t *testing.T) {
	r, _ := newTestServer()

	rec := do(r, http.MethodGet, "/api/todos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected [], got %s", got)
	}
}

func TestPatchTodo(t *testing.T) {
	r, repo := newTestServer()
	ctx := context.Background()

	id, _ := repo.Add(ctx, "draft")

	rec := do(r, http.MethodPatch, "/api/todos/1", `{"done":true}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got, _ := repo.Get(ctx, id)
	if !got.Done || got.Text != "draft" {
		t.Fatalf("expected only done to change, got %+v", got)
	}

	rec = do(r, http.MethodPatch, "/api/todos/1", `{"text":"final"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	got, _ = repo.Get(ctx, id)
	if got.Text != "final" || !got.Done {
		t.Fatalf("expected only text to change, got %+v", got)
	}

	rec = do(r, http.MethodPatch, "/api/todos/1", `{"text":" "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for blank text, got %d", rec.Code)
	}

	rec = do(r, http.MethodPatch, "/api/todos/abc", `{"done":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad id, got %d", rec.Code)
	}

	// unknown ids are silently ignored
	rec = do(r, http.MethodPatch, "/api/todos/77", `{"done":true}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for unknown id, got %d", rec.Code)
	}
}

func TestDeleteTodo(t *testing.T) {
	r, repo := newTestServer()
	ctx := context.Background()

	id, _ := repo.Add(ctx, "remove me")

	for i := 0; i < 2; i++ {
		rec := do(r, http.MethodDelete, "/api/todos/1", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("attempt %d: expected status 204, got %d", i, rec.Code)
		}
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected todo to be gone, got %v", err)
	}
}

func TestGetTodo(t *testing.T) {
	r, repo := newTestServer()
	id, _ := repo.Add(context.Background(), "Buy milk")

	rec := do(r, http.MethodGet, "/api/todos/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got Todo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != id || got.Text != "Buy milk" {
		t.Fatalf("unexpected todo %+v", got)
	}

	if rec := do(r, http.MethodGet, "/api/todos/99", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing id: expected 404, got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/todos/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}

type failingRepo struct {
	*InMemoryRepo
	err error
}

func (f *failingRepo) List(context.Context) ([]Todo, error) { return nil, f.err }

func TestGetTodos_StoreFailure(t *testing.T) {
	repo := &failingRepo{InMemoryRepo: NewInMemoryRepo(), err: errors.New("disk I/O error")}
	r := chi.NewRouter()
	RegisterRoutes(r, repo)

	rec := do(r, http.MethodGet, "/api/todos", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unexpected_error") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestGetTodo_NotFoundLoggedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r, _ := newTestServer()
	if rec := do(r, http.MethodGet, "/api/todos/7", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if entry["level"] != "INFO" || entry["msg"] != "api_not_found" {
		t.Fatalf("unexpected log entry %v", entry)
	}
}
