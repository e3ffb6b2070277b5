// Package cli implements the one-shot todo subcommands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/s1natex/todo-sqlite/internal/todolist"
	"github.com/s1natex/todo-sqlite/internal/todos"
)

// Options wires the runner to its store and terminal.
type Options struct {
	Repo   todos.Repository
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Group  bool // list grouped by pending/done
}

type runner struct {
	opt Options
	ui  printer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	r := &runner{opt: opt, ui: printer{out: opt.Out, err: opt.Err}}
	if len(args) == 0 {
		PrintHelp(opt.Out)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Out)
		return 0

	case "ls":
		return r.list(ctx)

	case "add":
		if len(a) == 0 {
			r.ui.fail("usage: todo add <text...>")
			return 2
		}
		return r.add(ctx, strings.Join(a, " "))

	case "done":
		if len(a) != 1 {
			r.ui.fail("usage: todo done <id>")
			return 2
		}
		id, ok := r.parseID("done", a[0])
		if !ok {
			return 2
		}
		return r.toggle(ctx, id)

	case "edit":
		if len(a) < 2 {
			r.ui.fail("usage: todo edit <id> <text...>")
			return 2
		}
		id, ok := r.parseID("edit", a[0])
		if !ok {
			return 2
		}
		return r.edit(ctx, id, strings.Join(a[1:], " "))

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ContinueOnError)
		fs.SetOutput(opt.Err)
		yes := fs.Bool("y", false, "delete without asking")
		if err := fs.Parse(a); err != nil || fs.NArg() != 1 {
			r.ui.fail("usage: todo rm [-y] <id>")
			return 2
		}
		id, ok := r.parseID("rm", fs.Arg(0))
		if !ok {
			return 2
		}
		return r.remove(ctx, id, *yes)
	}

	r.ui.fail("unknown subcommand: " + cmd)
	fmt.Fprintln(opt.Err)
	PrintHelp(opt.Err)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a small SQLite-backed todo list

Usage:
  todo <subcommand> [args]

Subcommands:
  add <text...>         Add a new todo
  ls                    List todos, newest first
  done <id>             Toggle done for a todo
  edit <id> <text...>   Replace the text of a todo
  rm [-y] <id>          Delete a todo (asks first unless -y)
  serve                 Run the web UI and JSON API
  tui                   Run the interactive terminal UI

Examples:
  todo add "Buy milk"
  todo ls
  todo done 2
  todo rm 3
`)
}

// controller loads the current list so id lookups work like they do in a
// long-running view.
func (r *runner) controller(ctx context.Context, confirm todolist.Confirmer) (*todolist.Controller, bool) {
	c := todolist.New(r.opt.Repo, confirm, r.opt.Logger)
	if err := c.Load(ctx); err != nil {
		r.ui.fail("load: " + err.Error())
		return nil, false
	}
	return c, true
}

func (r *runner) list(ctx context.Context) int {
	c, ok := r.controller(ctx, todolist.AlwaysConfirm)
	if !ok {
		return 1
	}
	snap := c.Snapshot()

	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), snap.Done(),
		pendingStyle.Render("•"), snap.Pending(),
		accentStyle.Render("Total"), len(snap.Items),
	)

	lines := []string{header, mutedStyle.Render(progressBar(snap.Done(), len(snap.Items), 28)), ""}
	if r.opt.Group {
		lines = append(lines, groupLines(snap.Items)...)
	} else {
		lines = append(lines, flatLines(snap.Items)...)
	}
	lines = append(lines, "", mutedStyle.Render("Tip: add with `todo add \"Buy milk\"`"))
	r.ui.panel(lines)
	return 0
}

func (r *runner) add(ctx context.Context, text string) int {
	if strings.TrimSpace(text) == "" {
		r.ui.fail("add: empty text")
		return 2
	}
	c := todolist.New(r.opt.Repo, todolist.AlwaysConfirm, r.opt.Logger)
	c.SetDraft(text)
	if err := c.Submit(ctx); err != nil {
		r.ui.fail("add: " + err.Error())
		return 1
	}
	r.ui.ok("added")
	return 0
}

func (r *runner) toggle(ctx context.Context, id int64) int {
	c, ok := r.controller(ctx, todolist.AlwaysConfirm)
	if !ok {
		return 1
	}
	if err := c.ToggleDone(ctx, id); err != nil {
		return r.actionFailed("done", id, err)
	}
	r.ui.ok("toggled")
	return 0
}

func (r *runner) edit(ctx context.Context, id int64, text string) int {
	if strings.TrimSpace(text) == "" {
		r.ui.fail("edit: empty text")
		return 2
	}
	c, ok := r.controller(ctx, todolist.AlwaysConfirm)
	if !ok {
		return 1
	}
	if err := c.BeginEdit(id); err != nil {
		return r.actionFailed("edit", id, err)
	}
	c.SetDraft(text)
	if err := c.Submit(ctx); err != nil {
		return r.actionFailed("edit", id, err)
	}
	r.ui.ok("updated")
	return 0
}

func (r *runner) remove(ctx context.Context, id int64, yes bool) int {
	var confirm todolist.Confirmer = todolist.NewPromptConfirmer(r.opt.In, r.opt.Out)
	if yes {
		confirm = todolist.AlwaysConfirm
	}
	c, ok := r.controller(ctx, confirm)
	if !ok {
		return 1
	}
	if !contains(c.Snapshot().Items, id) {
		return r.actionFailed("rm", id, todolist.ErrUnknownTodo)
	}

	deleted, err := c.RequestDelete(ctx, id)
	if err != nil {
		return r.actionFailed("rm", id, err)
	}
	if !deleted {
		r.ui.note("kept")
		return 0
	}
	r.ui.ok("removed")
	return 0
}

func (r *runner) actionFailed(cmd string, id int64, err error) int {
	if errors.Is(err, todolist.ErrUnknownTodo) {
		r.ui.fail(fmt.Sprintf("%s: no todo with id %d", cmd, id))
		fmt.Fprintln(r.opt.Err, mutedStyle.Render("Hint: run `todo ls` to see ids"))
		return 2
	}
	r.ui.fail(cmd + ": " + err.Error())
	return 1
}

func (r *runner) parseID(cmd, s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		r.ui.fail(cmd + ": not a valid id: " + s)
		return 0, false
	}
	return id, true
}

func contains(items []todos.Todo, id int64) bool {
	for _, t := range items {
		if t.ID == id {
			return true
		}
	}
	return false
}

// -------------- rendering helpers --------------

func flatLines(items []todos.Todo) []string {
	if len(items) == 0 {
		return []string{mutedStyle.Render("no todos")}
	}
	out := make([]string, 0, len(items))
	for _, t := range items {
		idx := fmt.Sprintf("%3d.", t.ID)
		box := mutedStyle.Render(boxUnchecked)
		text := t.Text
		if r := []rune(text); len(r) > 80 {
			text = string(r[:77]) + "..."
		}
		if t.Done {
			box = successStyle.Render(boxChecked)
			text = doneStyle.Render(text)
		}
		out = append(out, fmt.Sprintf("%s %s %s %s",
			mutedStyle.Render(idx), box, text, mutedStyle.Render(humanize.Time(t.CreatedAt))))
	}
	return out
}

var sections = []struct {
	title string
	done  bool
}{
	{"Pending", false},
	{"Done", true},
}

// groupLines renders one titled section per done state, pending first.
func groupLines(items []todos.Todo) []string {
	var lines []string
	for i, sec := range sections {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, accentStyle.Render(sec.title))

		var match []todos.Todo
		for _, t := range items {
			if t.Done == sec.done {
				match = append(match, t)
			}
		}
		if len(match) == 0 {
			lines = append(lines, mutedStyle.Render("(none)"))
			continue
		}
		lines = append(lines, flatLines(match)...)
	}
	return lines
}
