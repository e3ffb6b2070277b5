// Package tui is the interactive terminal front end for the todo list.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/s1natex/todo-sqlite/internal/todolist"
	"github.com/s1natex/todo-sqlite/internal/todos"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusList
)

// snapshotMsg carries the controller state after a store call finished.
type snapshotMsg struct {
	snap      todolist.Snapshot
	err       error
	syncDraft bool
}

type model struct {
	ctx  context.Context
	list *todolist.Controller

	snap    todolist.Snapshot
	input   textinput.Model
	cursor  int
	focus   focusArea
	confirm *confirmRequestMsg
	status  string
	width   int
}

// Run opens the terminal UI on repo and blocks until the user quits.
func Run(ctx context.Context, repo todos.Repository, logger *slog.Logger) error {
	confirmer := &ModalConfirmer{}
	list := todolist.New(repo, confirmer, logger)

	p := tea.NewProgram(newModel(ctx, list), tea.WithAltScreen(), tea.WithContext(ctx))
	confirmer.Bind(p)

	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, list *todolist.Controller) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Add a new todo..."
	ti.CharLimit = 500
	ti.Focus()

	return model{
		ctx:   ctx,
		list:  list,
		snap:  list.Snapshot(),
		input: ti,
		focus: focusInput,
		width: 80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.run(m.list.Load, false))
}

// run executes action off the UI loop and reports the resulting snapshot.
func (m model) run(action func(context.Context) error, syncDraft bool) tea.Cmd {
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		err := action(ctx)
		return snapshotMsg{snap: list.Snapshot(), err: err, syncDraft: syncDraft}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = msg.snap
		if msg.syncDraft {
			m.input.SetValue(m.snap.Draft)
			m.input.CursorEnd()
		}
		m.status = ""
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.clampCursor()
		return m, nil

	case confirmRequestMsg:
		// one dialog at a time; a second request is refused so its command ends
		if m.confirm != nil {
			msg.reply <- false
			return m, nil
		}
		m.confirm = &msg
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.confirm != nil {
				m.answer(false)
			}
			return m, tea.Quit
		}
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.focus == focusInput {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.answer(true)
	case "n", "N", "esc":
		m.answer(false)
	}
	return m, nil
}

func (m *model) answer(yes bool) {
	m.confirm.reply <- yes
	m.confirm = nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.list.SetDraft(m.input.Value())
		return m, m.run(m.list.Submit, true)
	case "esc":
		if m.snap.Editing {
			m.list.CancelEdit()
			m.snap = m.list.Snapshot()
			m.input.SetValue("")
			return m, nil
		}
		m.setFocus(focusList)
		return m, nil
	case "tab":
		m.setFocus(focusList)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "a", "i":
		m.setFocus(focusInput)
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.snap.Items)-1 {
			m.cursor++
		}
		return m, nil
	case "r":
		return m, m.run(m.list.Load, false)
	}

	selected, ok := m.selected()
	if !ok {
		return m, nil
	}
	id := selected.ID

	switch msg.String() {
	case " ", "x":
		return m, m.run(func(ctx context.Context) error {
			return m.list.ToggleDone(ctx, id)
		}, false)
	case "e":
		if err := m.list.BeginEdit(id); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.snap = m.list.Snapshot()
		m.input.SetValue(m.snap.Draft)
		m.input.CursorEnd()
		m.setFocus(focusInput)
		return m, nil
	case "d":
		// deleting the todo under edit also drops the draft
		editingThis := m.snap.Editing && m.snap.EditingID == id
		return m, m.run(func(ctx context.Context) error {
			_, err := m.list.RequestDelete(ctx, id)
			return err
		}, editingThis)
	}
	return m, nil
}

func (m *model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m model) selected() (todos.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Items) {
		return todos.Todo{}, false
	}
	return m.snap.Items[m.cursor], true
}

func (m *model) clampCursor() {
	if m.cursor >= len(m.snap.Items) {
		m.cursor = max(len(m.snap.Items)-1, 0)
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s   %s %d  %s %d  %s %d\n\n",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), m.snap.Done(),
		pendingStyle.Render("•"), m.snap.Pending(),
		accentStyle.Render("Total"), len(m.snap.Items),
	))

	label := "Add new todo"
	if m.snap.Editing {
		label = "Edit todo (esc to cancel)"
	}
	b.WriteString(panelStyle.Render(label + "\n" + m.input.View()))
	b.WriteString("\n\n")

	if len(m.snap.Items) == 0 {
		b.WriteString(mutedStyle.Render("Nothing to do yet."))
		b.WriteString("\n")
	}
	for i, t := range m.snap.Items {
		b.WriteString(m.renderItem(i, t))
		b.WriteString("\n")
	}

	if m.confirm != nil {
		b.WriteString("\n")
		b.WriteString(modalStyle.Render(m.confirm.message + "\n" + helpStyle.Render("y: delete   n: keep")))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render("✖ "+m.status) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(m.help()))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func (m model) renderItem(i int, t todos.Todo) string {
	box := mutedStyle.Render(boxUnchecked)
	text := t.Text
	if t.Done {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := fmt.Sprintf("%s %s %s", box, text, mutedStyle.Render(humanize.Time(t.CreatedAt)))

	prefix := "  "
	if m.focus == focusList && i == m.cursor {
		prefix = selectedStyle.Render("> ")
	}
	return prefix + line
}

func (m model) help() string {
	if m.focus == focusInput {
		return "enter: save • tab: list • esc: cancel edit • ctrl+c: quit"
	}
	return "j/k: move • space: toggle • e: edit • d: delete • r: reload • tab: input • q: quit"
}
