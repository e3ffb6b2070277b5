package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmRequestMsg opens the modal. The answer goes back on reply.
type confirmRequestMsg struct {
	message string
	reply   chan<- bool
}

// ModalConfirmer asks through an in-app dialog. Confirm is called from a
// command goroutine and blocks there until the user answers, so it must
// never run inside Update.
type ModalConfirmer struct {
	send func(tea.Msg)
}

func (c *ModalConfirmer) Bind(p *tea.Program) { c.send = p.Send }

func (c *ModalConfirmer) Confirm(ctx context.Context, message string) bool {
	if c.send == nil {
		return false
	}
	reply := make(chan bool, 1)
	c.send(confirmRequestMsg{message: message, reply: reply})
	select {
	case yes := <-reply:
		return yes
	case <-ctx.Done():
		return false
	}
}
