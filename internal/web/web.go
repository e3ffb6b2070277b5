// Package web serves the todo list as a server-rendered page.
package web

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/s1natex/todo-sqlite/internal/todolist"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(
	template.New("index.tmpl").
		Funcs(template.FuncMap{"ago": ago}).
		ParseFS(templateFS, "templates/index.tmpl"),
)

type Server struct {
	list   *todolist.Controller
	logger *slog.Logger
}

// NewServer renders list. The controller must be built with
// todolist.AnswerFromContext so deletes honour the browser's confirm().
func NewServer(list *todolist.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{list: list, logger: logger}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/", s.index)
	r.Post("/submit", s.submit)
	r.Post("/cancel", s.cancel)
	r.Post("/todos/{id}/toggle", s.toggle)
	r.Post("/todos/{id}/edit", s.edit)
	r.Post("/todos/{id}/delete", s.delete)
}

type pageData struct {
	todolist.Snapshot
	Prompt string
	Error  string
}

// index reloads on every page view, the browser equivalent of an app start.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	data := pageData{Prompt: todolist.DeletePrompt, Error: r.URL.Query().Get("error")}
	if err := s.list.Load(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "web_load_failed", slog.String("error", err.Error()))
		data.Error = "Could not load todos: " + err.Error()
	}
	data.Snapshot = s.list.Snapshot()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.ErrorContext(r.Context(), "web_render_failed", slog.String("error", err.Error()))
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	s.list.SetDraft(r.FormValue("text"))
	s.done(w, r, s.list.Submit(r.Context()))
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	s.list.CancelEdit()
	s.done(w, r, nil)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.done(w, r, err)
		return
	}
	s.done(w, r, s.list.ToggleDone(r.Context(), id))
}

func (s *Server) edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.done(w, r, err)
		return
	}
	s.done(w, r, s.list.BeginEdit(id))
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.done(w, r, err)
		return
	}
	ctx := todolist.WithAnswer(r.Context(), r.FormValue("confirmed") == "true")
	_, err = s.list.RequestDelete(ctx, id)
	s.done(w, r, err)
}

// done redirects back to the list, carrying err as a banner message.
func (s *Server) done(w http.ResponseWriter, r *http.Request, err error) {
	target := "/"
	if err != nil {
		s.logger.ErrorContext(r.Context(), "web_action_failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		target += "?" + url.Values{"error": {err.Error()}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

var errBadID = errors.New("invalid todo id")

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
