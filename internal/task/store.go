package task

import (
	"context"
	"errors"
	"strconv"

	"github.com/tbellam/translateq/internal/domain"
)

// Tags applied to imported result attachments. The marker tag is the dedup
// barrier that keeps translations from being translated again; the remote
// job ID is added alongside it for traceability.
const ResultMarkerTag = "translateq_translated"

// Common store errors.
var (
	// ErrTaskNotFound is returned when no task exists for a key.
	ErrTaskNotFound = errors.New("task not found")

	// ErrMalformedTask is returned when a stored entry cannot be decoded.
	// Loaders skip such entries rather than failing the whole load.
	ErrMalformedTask = errors.New("malformed task record")
)

// Store is the durable map of active tasks, keyed by stringified attachment
// ID. Last write wins per key; no cross-key transactional guarantees are
// required. The registry rewrites the full active set after every mutation
// batch rather than per field write.
type Store interface {
	// ListKeys returns all stored task keys.
	ListKeys(ctx context.Context) ([]string, error)

	// Get returns the task stored under key. Returns ErrTaskNotFound if
	// the key is absent and ErrMalformedTask if the entry cannot be
	// decoded.
	Get(ctx context.Context, key string) (*domain.Task, error)

	// Put stores the task under its attachment ID key, replacing any
	// previous entry.
	Put(ctx context.Context, task *domain.Task) error

	// Delete removes the entry under key, if present.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}

// HistoryStore is an append-only log of tasks that reached a terminal
// state. Keeping history out of the live store removes any need to tolerate
// duplicate records for one attachment in the active set.
type HistoryStore interface {
	// Append records a terminal task.
	Append(ctx context.Context, task *domain.Task) error

	// List returns the most recent entries, newest first, up to limit.
	List(ctx context.Context, limit int) ([]domain.Task, error)
}

// StoreKey returns the store key for an attachment ID.
func StoreKey(attachmentID int64) string {
	return strconv.FormatInt(attachmentID, 10)
}
