package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/events"
	"github.com/tbellam/translateq/internal/item"
)

// Registry operation errors.
var (
	// ErrNotRetryable is returned when retrying a task that is not failed.
	ErrNotRetryable = errors.New("only failed tasks can be retried")

	// ErrNotCancelable is returned when canceling a task that has already
	// been initiated.
	ErrNotCancelable = errors.New("only queued tasks can be canceled")
)

// Registry is the authoritative in-process view of all known tasks plus the
// FIFO pending queue of tasks awaiting initiation. Every mutation rewrites
// the persisted active set and fires a tasks-changed notification, so the
// store and any task-list view stay in sync with memory.
//
// The registry is the engine's single synchronization point: the builder,
// queue processor, job monitor, and finalizer all mutate task state through
// it and never share task pointers across goroutines.
type Registry struct {
	mu      sync.Mutex
	store   Store
	history HistoryStore
	items   item.Store
	emitter *events.Emitter
	logger  *slog.Logger

	// tasks is the full session task list in insertion order, terminal
	// records included (they stay visible in the task list and feed the
	// dedup checks). pending is the FIFO subset not yet initiated.
	tasks   []*domain.Task
	pending []*domain.Task
}

// NewRegistry creates a Registry backed by the given stores.
func NewRegistry(
	store Store,
	history HistoryStore,
	items item.Store,
	emitter *events.Emitter,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		store:   store,
		history: history,
		items:   items,
		emitter: emitter,
		logger:  logger.With("component", "task_registry"),
	}
}

// Snapshot returns a copy of the full task list in display order.
func (r *Registry) Snapshot() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	return out
}

// PendingLen returns the number of tasks awaiting initiation.
func (r *Registry) PendingLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// IsActive reports whether any task for the attachment is in a non-terminal
// state. This is the dedup barrier against double-submitting in-flight work.
func (r *Registry) IsActive(attachmentID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isActiveLocked(attachmentID)
}

// Enqueue appends tasks to both the task list and the pending queue and
// persists the result. Tasks whose attachment already has an active task are
// dropped, enforcing active-task uniqueness at insertion time.
func (r *Registry) Enqueue(ctx context.Context, tasks []*domain.Task) {
	r.mu.Lock()
	accepted := 0
	for _, t := range tasks {
		if r.isActiveLocked(t.AttachmentID) {
			r.logger.Warn("dropping task for attachment with active work",
				"attachment_id", t.AttachmentID,
				"filename", t.AttachmentFilename)
			continue
		}
		r.tasks = append(r.tasks, t)
		r.pending = append(r.pending, t)
		accepted++
	}
	if accepted > 0 {
		r.persistLocked(ctx)
	}
	r.mu.Unlock()

	if accepted > 0 {
		r.logger.Info("enqueued translation tasks", "count", accepted)
		r.notify(ctx)
	}
}

// DequeueNext pops the front of the pending queue and persists immediately,
// so a crash mid-processing cannot duplicate the popped slot. Returns nil
// when the queue is empty. The returned task is a detached copy; all further
// mutation goes through Update and friends.
func (r *Registry) DequeueNext(ctx context.Context) *domain.Task {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return nil
	}

	next := r.pending[0]
	r.pending = r.pending[1:]
	r.persistLocked(ctx)
	popped := *next
	r.mu.Unlock()

	r.notify(ctx)
	return &popped
}

// Update merges a mutation into the most recently inserted task for the
// attachment, persists, and notifies. It is a silent no-op when no task
// matches (update races with concurrent removals are expected), and it
// refuses to touch terminal tasks: once a task has succeeded, failed, or
// been canceled, only an explicit Retry may change it.
func (r *Registry) Update(ctx context.Context, attachmentID int64, mutate func(*domain.Task)) bool {
	r.mu.Lock()
	t := r.findLastLocked(attachmentID)
	if t == nil {
		r.mu.Unlock()
		return false
	}
	if t.IsTerminal() {
		r.logger.Debug("ignoring update to terminal task",
			"attachment_id", attachmentID,
			"status", t.Status)
		r.mu.Unlock()
		return false
	}

	mutate(t)
	t.Touch()
	if t.IsTerminal() {
		r.recordHistoryLocked(ctx, t)
	}
	r.persistLocked(ctx)
	r.mu.Unlock()

	r.notify(ctx)
	return true
}

// Cancel marks a queued task canceled and removes it from the pending
// queue. Tasks that have already been initiated cannot be canceled: the
// remote job would complete regardless, so cancellation is restricted to
// the pre-initiation window.
func (r *Registry) Cancel(ctx context.Context, attachmentID int64) error {
	r.mu.Lock()
	t := r.findLastLocked(attachmentID)
	if t == nil {
		r.mu.Unlock()
		return ErrTaskNotFound
	}
	if t.Status != domain.StatusQueued {
		r.mu.Unlock()
		return ErrNotCancelable
	}

	t.Status = domain.StatusCanceled
	t.Touch()
	r.removeFromPendingLocked(attachmentID)
	r.recordHistoryLocked(ctx, t)
	r.persistLocked(ctx)
	r.mu.Unlock()

	r.logger.Info("canceled task", "attachment_id", attachmentID)
	r.notify(ctx)
	return nil
}

// Retry re-queues a failed task. The existing record is reused so a task
// that already holds a remote job ID resumes monitoring instead of
// re-uploading. Returns a detached copy of the re-queued task.
func (r *Registry) Retry(ctx context.Context, attachmentID int64) (*domain.Task, error) {
	r.mu.Lock()
	t := r.findLastLocked(attachmentID)
	if t == nil {
		r.mu.Unlock()
		return nil, ErrTaskNotFound
	}
	if t.Status != domain.StatusFailed {
		r.mu.Unlock()
		return nil, ErrNotRetryable
	}

	t.Status = domain.StatusQueued
	t.Error = ""
	t.Touch()
	if !r.inPendingLocked(attachmentID) {
		r.pending = append(r.pending, t)
	}
	r.persistLocked(ctx)
	retried := *t
	r.mu.Unlock()

	r.logger.Info("retrying failed task",
		"attachment_id", attachmentID,
		"job_id", retried.RemoteJobID)
	r.notify(ctx)
	return &retried, nil
}

// LoadFromStore replaces the in-memory task list with the persisted one.
// Malformed entries are skipped with a warning. Older stores could hold
// multiple writes for one attachment; the last-written instance wins.
func (r *Registry) LoadFromStore(ctx context.Context) error {
	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		return err
	}

	loaded := make([]*domain.Task, 0, len(keys))
	seen := make(map[int64]int) // attachment ID -> index in loaded
	for _, key := range keys {
		t, err := r.store.Get(ctx, key)
		if err != nil {
			r.logger.Warn("skipping unreadable task record", "key", key, "error", err)
			continue
		}

		if i, ok := seen[t.AttachmentID]; ok {
			// Duplicate record: keep the later write in place.
			loaded[i] = t
			continue
		}
		seen[t.AttachmentID] = len(loaded)
		loaded = append(loaded, t)
	}

	r.mu.Lock()
	r.tasks = loaded
	r.pending = nil
	r.mu.Unlock()

	r.logger.Info("loaded persisted tasks", "count", len(loaded))
	return nil
}

// RestoreUnfinished re-seeds the pending queue with every non-terminal task
// whose attachment (and parent document, if any) still exists in the item
// store. Tasks already pending are skipped, so running it twice in a row is
// idempotent. Returns the number of tasks restored. This is the
// crash-recovery entry point, called once at startup after LoadFromStore.
func (r *Registry) RestoreUnfinished(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, t := range r.tasks {
		if t.IsTerminal() {
			continue
		}

		ref, err := r.items.Get(ctx, t.AttachmentID)
		if err != nil || !ref.IsAttachment() {
			r.logger.Warn("skipping restore, attachment no longer exists",
				"attachment_id", t.AttachmentID,
				"filename", t.AttachmentFilename)
			continue
		}

		if t.HasParent() {
			parent, err := r.items.Get(ctx, t.ParentItemID)
			if err != nil || !parent.IsDocument() {
				r.logger.Warn("skipping restore, parent document no longer exists",
					"attachment_id", t.AttachmentID,
					"parent_item_id", t.ParentItemID)
				continue
			}
		}

		if r.inPendingLocked(t.AttachmentID) {
			continue
		}

		r.pending = append(r.pending, t)
		restored++
	}

	if restored > 0 {
		r.logger.Info("restored unfinished tasks", "count", restored)
	}
	return restored
}

// History returns the most recent terminal task records, newest first.
func (r *Registry) History(ctx context.Context, limit int) ([]domain.Task, error) {
	if r.history == nil {
		return nil, nil
	}
	return r.history.List(ctx, limit)
}

// Flush rewrites the persisted active set. Called once at shutdown as the
// final persistence pass.
func (r *Registry) Flush(ctx context.Context) {
	r.mu.Lock()
	r.persistLocked(ctx)
	r.mu.Unlock()
}

// persistLocked rewrites the store with the current non-terminal task set.
// Terminal tasks live in the history log only, so a restart never restores
// them into the active queue. Persistence is best effort after every
// mutation; a crash between mutation and persist loses at most that single
// update.
func (r *Registry) persistLocked(ctx context.Context) {
	if err := r.store.Clear(ctx); err != nil {
		r.logger.Error("failed to clear task store", "error", err)
		return
	}
	for _, t := range r.tasks {
		if t.IsTerminal() {
			continue
		}
		if err := r.store.Put(ctx, t); err != nil {
			r.logger.Error("failed to persist task",
				"attachment_id", t.AttachmentID,
				"error", err)
		}
	}
}

func (r *Registry) recordHistoryLocked(ctx context.Context, t *domain.Task) {
	if r.history == nil {
		return
	}
	if err := r.history.Append(ctx, t); err != nil {
		r.logger.Error("failed to append task history",
			"attachment_id", t.AttachmentID,
			"error", err)
	}
}

// notify fires the tasks-changed signal. Always called outside the registry
// lock so handlers may re-read the task list.
func (r *Registry) notify(ctx context.Context) {
	if r.emitter == nil {
		return
	}
	if err := r.emitter.NotifyTasksChanged(ctx); err != nil {
		r.logger.Warn("tasks-changed notification failed", "error", err)
	}
}

func (r *Registry) isActiveLocked(attachmentID int64) bool {
	for _, t := range r.tasks {
		if t.AttachmentID == attachmentID && !t.IsTerminal() {
			return true
		}
	}
	return false
}

// findLastLocked scans from the end so the most recently inserted record for
// an attachment wins over any historical duplicate loaded from older stores.
func (r *Registry) findLastLocked(attachmentID int64) *domain.Task {
	for i := len(r.tasks) - 1; i >= 0; i-- {
		if r.tasks[i].AttachmentID == attachmentID {
			return r.tasks[i]
		}
	}
	return nil
}

func (r *Registry) inPendingLocked(attachmentID int64) bool {
	for _, t := range r.pending {
		if t.AttachmentID == attachmentID {
			return true
		}
	}
	return false
}

func (r *Registry) removeFromPendingLocked(attachmentID int64) {
	for i, t := range r.pending {
		if t.AttachmentID == attachmentID {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}
