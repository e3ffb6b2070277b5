package todos

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

const maxTextLen = 500

type createTodoRequest struct {
	Text string `json:"text"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

// RegisterRoutes mounts the JSON API under /api/todos.
func RegisterRoutes(r chi.Router, repo Repository) {
	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", listTodos(repo))
		r.Post("/", createTodo(repo))
		r.Get("/{id}", getTodo(repo))
		r.Patch("/{id}", updateTodo(repo))
		r.Delete("/{id}", deleteTodo(repo))
	})
}

func createTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTodoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		if vErrs := validateText(req.Text); len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		id, err := repo.Add(r.Context(), req.Text)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		t, err := repo.Get(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, t)
	}
}

func listTodos(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		todos, err := repo.List(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, todos)
	}
}

func getTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		t, err := repo.Get(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func updateTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var p Patch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}
		if p.Text != nil {
			if vErrs := validateText(*p.Text); len(vErrs) > 0 {
				writeJSON(w, http.StatusUnprocessableEntity, errResponse{
					Error:   "validation_error",
					Details: vErrs,
				})
				return
			}
		}

		if err := repo.Update(r.Context(), id, p); err != nil {
			writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		if err := repo.Delete(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errResponse{
			Error:   "invalid_id",
			Details: []fieldError{{Field: "id", Message: "id must be a positive integer"}},
		})
		return 0, false
	}
	return id, true
}

func validateText(text string) []fieldError {
	var errs []fieldError

	if strings.TrimSpace(text) == "" {
		errs = append(errs, fieldError{
			Field:   "text",
			Message: "text is required",
		})
	}

	if l := utf8.RuneCountInString(text); l > maxTextLen {
		errs = append(errs, fieldError{
			Field:   "text",
			Message: fmt.Sprintf("text must be at most %d characters", maxTextLen),
		})
	}

	return errs
}

// writeStoreError maps a store error to a response. A missing todo is an
// ordinary client outcome and is logged at info.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		slog.InfoContext(r.Context(), "api_not_found", slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		return
	}
	slog.ErrorContext(r.Context(), "api_error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
