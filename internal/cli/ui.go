package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

type printer struct {
	out io.Writer
	err io.Writer
}

func (p printer) ok(msg string) {
	fmt.Fprintln(p.out, successStyle.Render("✔ "+msg))
}

func (p printer) note(msg string) {
	fmt.Fprintln(p.out, mutedStyle.Render("• "+msg))
}

func (p printer) fail(msg string) {
	fmt.Fprintln(p.err, errorStyle.Render("✖ "+msg))
}

func (p printer) panel(lines []string) {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	fmt.Fprintln(p.out, border.Render(strings.Join(lines, "\n")))
}

func progressBar(done, total, width int) string {
	denom := total
	if denom == 0 {
		denom = 1
	}
	if width <= 0 {
		width = 28
	}
	filled := int(float64(done) / float64(denom) * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}
