package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/task"
)

// TaskStore is the durable task.Store over the tasks table. Records are
// stored as JSON blobs; last write per key wins.
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a TaskStore.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// ListKeys returns all stored task keys in insertion order.
func (s *TaskStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM tasks ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list task keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan task key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Get returns the task stored under key.
func (s *TaskStore) Get(ctx context.Context, key string) (*domain.Task, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM tasks WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", key, err)
	}

	var t domain.Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", task.ErrMalformedTask, key, err)
	}
	return &t, nil
}

// Put stores the task under its attachment ID key, replacing any previous
// entry.
func (s *TaskStore) Put(ctx context.Context, t *domain.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (key, data) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET data = excluded.data`,
		task.StoreKey(t.AttachmentID), string(data))
	if err != nil {
		return fmt.Errorf("failed to store task: %w", err)
	}
	return nil
}

// Delete removes the entry under key, if present.
func (s *TaskStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", key, err)
	}
	return nil
}

// Clear removes all entries.
func (s *TaskStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	return nil
}

// HistoryStore is the durable task.HistoryStore over the task_history table.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a HistoryStore.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append records a terminal task.
func (s *HistoryStore) Append(ctx context.Context, t *domain.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO task_history (attachment_id, data) VALUES (?, ?)",
		t.AttachmentID, string(data))
	if err != nil {
		return fmt.Errorf("failed to append task history: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first, up to limit. A
// non-positive limit returns everything.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM task_history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		var t domain.Task
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("%w: history entry: %v", task.ErrMalformedTask, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
