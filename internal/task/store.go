package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no cgo
)

// SQLiteStore persists tasks in a single SQLite file.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// OpenSQLiteStore opens or creates the task database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create task db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open task db: %w", err)
	}

	// one writer; the scheduler is the only client
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		record_ids TEXT NOT NULL DEFAULT '[]',
		action TEXT NOT NULL DEFAULT '',
		attachment TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		processed INTEGER NOT NULL DEFAULT 0,
		milestone INTEGER NOT NULL DEFAULT 0,
		max_records INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		done INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_state ON tasks(state);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create task schema: %w", err)
	}
	return nil
}

const taskColumns = `id, kind, title, record_ids, action, attachment, state, error,
	processed, milestone, max_records, failed, done, created_at, updated_at`

// Create inserts a new task.
func (s *SQLiteStore) Create(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	ids, err := json.Marshal(t.RecordIDs)
	if err != nil {
		return fmt.Errorf("encode record ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Kind, t.Title, string(ids), t.Action, t.Attachment, string(t.State), t.Error,
		t.Checkpoint.Processed, t.Checkpoint.Milestone, t.Checkpoint.MaxRecords,
		t.Checkpoint.Failed, t.Checkpoint.Done,
		t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Update writes the mutable fields of t: state, error and checkpoint.
func (s *SQLiteStore) Update(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET
		state = ?, error = ?, processed = ?, milestone = ?, max_records = ?,
		failed = ?, done = ?, updated_at = ?
		WHERE id = ?`,
		string(t.State), t.Error, t.Checkpoint.Processed, t.Checkpoint.Milestone,
		t.Checkpoint.MaxRecords, t.Checkpoint.Failed, t.Checkpoint.Done,
		t.UpdatedAt.UnixNano(), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NotFound(t.ID)
	}
	return nil
}

// Get loads one task.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound(id)
	}
	return t, err
}

// List returns tasks in creation order.
func (s *SQLiteStore) List(ctx context.Context, states ...State) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		query += ` WHERE state IN (?` + strings.Repeat(", ?", len(states)-1) + `)`
		for _, st := range states {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

var errClosed = errors.New("task store is closed")

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t                Task
		ids, state       string
		created, updated int64
	)
	err := row.Scan(&t.ID, &t.Kind, &t.Title, &ids, &t.Action, &t.Attachment, &state, &t.Error,
		&t.Checkpoint.Processed, &t.Checkpoint.Milestone, &t.Checkpoint.MaxRecords,
		&t.Checkpoint.Failed, &t.Checkpoint.Done, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if err := json.Unmarshal([]byte(ids), &t.RecordIDs); err != nil {
		return nil, fmt.Errorf("decode record ids of task %s: %w", t.ID, err)
	}
	t.State = State(state)
	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)
	return &t, nil
}

var _ Store = (*SQLiteStore)(nil)
