package todolist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the user to approve a destructive action. Each target
// environment supplies its own implementation.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

type ConfirmFunc func(ctx context.Context, message string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool { return f(ctx, message) }

// AlwaysConfirm approves every request (todo rm -y).
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

type answerKey struct{}

// WithAnswer records an answer the user already gave before the request
// reached the server, as a browser confirm() dialog does.
func WithAnswer(ctx context.Context, yes bool) context.Context {
	return context.WithValue(ctx, answerKey{}, yes)
}

// AnswerFromContext reads the answer stored by WithAnswer. A missing answer
// counts as a refusal.
var AnswerFromContext = ConfirmFunc(func(ctx context.Context, _ string) bool {
	yes, _ := ctx.Value(answerKey{}).(bool)
	return yes
})

// PromptConfirmer prints the message and reads a y/N answer, one line at a time.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *PromptConfirmer) Confirm(ctx context.Context, message string) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(p.out, "%s [y/N] ", message)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
