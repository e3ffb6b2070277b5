package todos

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("todo not found")

// Repository is the persistence contract shared by the SQLite store and the
// in-memory store. Implementations do not validate text and do not translate
// errors coming from the underlying store.
type Repository interface {
	Init(ctx context.Context) error
	List(ctx context.Context) ([]Todo, error)
	Get(ctx context.Context, id int64) (Todo, error)
	Add(ctx context.Context, text string) (int64, error)
	Update(ctx context.Context, id int64, p Patch) error
	Delete(ctx context.Context, id int64) error
	Close() error
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Todo
	now   func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Todo),
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func (r *InMemoryRepo) Init(context.Context) error { return nil }

func (r *InMemoryRepo) Close() error { return nil }

func (r *InMemoryRepo) Add(_ context.Context, text string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.store[r.seq] = Todo{
		ID:        r.seq,
		Text:      text,
		CreatedAt: r.now(),
	}
	return r.seq, nil
}

func (r *InMemoryRepo) Get(_ context.Context, id int64) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) List(context.Context) ([]Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Todo, 0, len(r.store))
	for _, t := range r.store {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InMemoryRepo) Update(_ context.Context, id int64, p Patch) error {
	if p.Empty() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return nil
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	r.store[id] = t
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, id)
	return nil
}
