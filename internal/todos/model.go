package todos

import "time"

type Todo struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// Patch names the columns an update touches. Nil fields are left as they are.
type Patch struct {
	Text *string `json:"text,omitempty"`
	Done *bool   `json:"done,omitempty"`
}

func (p Patch) Empty() bool { return p.Text == nil && p.Done == nil }

func SetText(text string) Patch { return Patch{Text: &text} }

func SetDone(done bool) Patch { return Patch{Done: &done} }
