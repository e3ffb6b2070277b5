package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	done INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT (datetime('now'))
);
`

// sqliteTimeLayout is the format datetime('now') produces.
const sqliteTimeLayout = "2006-01-02 15:04:05"

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One handle for the whole process; this also keeps ":memory:" databases
	// from splitting across pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// Init creates the todos table when it is missing. Existing rows are never touched.
func (r *SQLiteRepo) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *SQLiteRepo) List(ctx context.Context) ([]Todo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, text, done, created_at
		FROM todos
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Get(ctx context.Context, id int64) (Todo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, text, done, created_at
		FROM todos
		WHERE id = ?
	`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	return t, err
}

// Add inserts a pending todo and returns the id SQLite assigned to it.
func (r *SQLiteRepo) Add(ctx context.Context, text string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO todos (text, done) VALUES (?, 0)`, text)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update applies p to the row with the given id. NULL parameters keep the
// current column value, so the statement text never depends on p. An empty
// patch issues no statement at all.
func (r *SQLiteRepo) Update(ctx context.Context, id int64, p Patch) error {
	if p.Empty() {
		return nil
	}

	var text sql.NullString
	if p.Text != nil {
		text = sql.NullString{String: *p.Text, Valid: true}
	}
	var done sql.NullInt64
	if p.Done != nil {
		done = sql.NullInt64{Int64: boolToInt(*p.Done), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE todos
		SET text = COALESCE(?, text),
		    done = COALESCE(?, done)
		WHERE id = ?
	`, text, done, id)
	return err
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(s rowScanner) (Todo, error) {
	var t Todo
	var created any
	if err := s.Scan(&t.ID, &t.Text, &t.Done, &created); err != nil {
		return Todo{}, err
	}
	ts, err := parseCreatedAt(created)
	if err != nil {
		return Todo{}, err
	}
	t.CreatedAt = ts
	return t, nil
}

// parseCreatedAt accepts both shapes the driver hands back for a DATETIME
// column: an already parsed time or the raw text SQLite stored.
func parseCreatedAt(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return x.UTC(), nil
	case string:
		return parseTimeText(x)
	case []byte:
		return parseTimeText(string(x))
	default:
		return time.Time{}, fmt.Errorf("created_at: unsupported type %T", v)
	}
}

func parseTimeText(s string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano} {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("created_at: cannot parse %q", s)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// SQLiteFileDSN builds a DSN like file:/absolute/path?_pragma=busy_timeout(5000)
// and makes sure the parent directory exists.
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
