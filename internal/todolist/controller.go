// Package todolist holds the state behind a todo list screen and turns user
// actions into store calls.
//
// Every mutation is followed by a full resync: the list is read back from
// the store and replaces the snapshot wholesale. The controller never
// predicts the outcome of a mutation.
package todolist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/s1natex/todo-sqlite/internal/todos"
)

// DeletePrompt is the question put to the Confirmer before a delete.
const DeletePrompt = "Delete this todo?"

var ErrUnknownTodo = errors.New("todo is not in the current list")

type Controller struct {
	repo    todos.Repository
	confirm Confirmer
	logger  *slog.Logger

	// mu serializes mutations and guards the fields below.
	mu        sync.Mutex
	items     []todos.Todo
	draft     string
	editingID int64
	editing   bool
	version   uint64
}

func New(repo todos.Repository, confirm Confirmer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		repo:    repo,
		confirm: confirm,
		logger:  logger,
		items:   []todos.Todo{},
	}
}

// Snapshot is a copy of the controller state, safe to render.
type Snapshot struct {
	Items     []todos.Todo
	Draft     string
	EditingID int64
	Editing   bool
	Version   uint64
}

func (s Snapshot) Done() int {
	n := 0
	for _, t := range s.Items {
		if t.Done {
			n++
		}
	}
	return n
}

func (s Snapshot) Pending() int { return len(s.Items) - s.Done() }

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]todos.Todo, len(c.items))
	copy(items, c.items)
	return Snapshot{
		Items:     items,
		Draft:     c.draft,
		EditingID: c.editingID,
		Editing:   c.editing,
		Version:   c.version,
	}
}

// Load replaces the list with what the store currently holds.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resync(ctx)
}

func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Submit saves the draft: it edits the todo being edited, or adds a new one.
// A blank draft is ignored. On a store failure the draft and edit target are
// kept so the user can retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(c.draft) == "" {
		return nil
	}

	if c.editing {
		if err := c.repo.Update(ctx, c.editingID, todos.SetText(c.draft)); err != nil {
			return err
		}
		c.logger.InfoContext(ctx, "todo_edited", slog.Int64("id", c.editingID))
	} else {
		id, err := c.repo.Add(ctx, c.draft)
		if err != nil {
			return err
		}
		c.logger.InfoContext(ctx, "todo_added", slog.Int64("id", id))
	}

	c.draft = ""
	c.editing = false
	c.editingID = 0
	return c.resync(ctx)
}

// ToggleDone flips the done flag of a todo from the current list.
func (c *Controller) ToggleDone(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.find(id)
	if !ok {
		return ErrUnknownTodo
	}
	if err := c.repo.Update(ctx, id, todos.SetDone(!t.Done)); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "todo_toggled", slog.Int64("id", id), slog.Bool("done", !t.Done))
	return c.resync(ctx)
}

// RequestDelete removes a todo once the Confirmer approves. It reports
// whether the delete went ahead. The lock is not held while the user is
// being asked.
func (c *Controller) RequestDelete(ctx context.Context, id int64) (bool, error) {
	if !c.confirm.Confirm(ctx, DeletePrompt) {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	if c.editing && c.editingID == id {
		c.editing = false
		c.editingID = 0
		c.draft = ""
	}
	c.logger.InfoContext(ctx, "todo_deleted", slog.Int64("id", id))
	return true, c.resync(ctx)
}

// BeginEdit targets a todo for editing and seeds the draft with its text.
func (c *Controller) BeginEdit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.find(id)
	if !ok {
		return ErrUnknownTodo
	}
	c.editing = true
	c.editingID = id
	c.draft = t.Text
	return nil
}

func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.editing = false
	c.editingID = 0
	c.draft = ""
}

// resync is the only place items is written. Callers hold mu.
func (c *Controller) resync(ctx context.Context) error {
	items, err := c.repo.List(ctx)
	if err != nil {
		return err
	}
	c.items = items
	c.version++
	return nil
}

func (c *Controller) find(id int64) (todos.Todo, bool) {
	for _, t := range c.items {
		if t.ID == id {
			return t, true
		}
	}
	return todos.Todo{}, false
}
