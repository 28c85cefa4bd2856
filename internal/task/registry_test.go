package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/item"
)

func TestRegistryEnqueueDropsActiveDuplicates(t *testing.T) {
	ctx := context.Background()
	reg, store, _ := newTestRegistry(t, newMockItemStore())

	first := newTestTask(t, 10, "paper.pdf", "/tmp/paper.pdf")
	reg.Enqueue(ctx, []*domain.Task{first})

	dup := newTestTask(t, 10, "paper.pdf", "/tmp/paper.pdf")
	other := newTestTask(t, 11, "other.pdf", "/tmp/other.pdf")
	reg.Enqueue(ctx, []*domain.Task{dup, other})

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(10), snapshot[0].AttachmentID)
	assert.Equal(t, int64(11), snapshot[1].AttachmentID)
	assert.Equal(t, 2, reg.PendingLen())
	assert.Equal(t, 2, store.len())
}

func TestRegistryEnqueueAllowsResubmitAfterTerminal(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, newMockItemStore())

	first := newTestTask(t, 10, "paper.pdf", "/tmp/paper.pdf")
	reg.Enqueue(ctx, []*domain.Task{first})
	require.NoError(t, reg.Cancel(ctx, 10))

	second := newTestTask(t, 10, "paper.pdf", "/tmp/paper.pdf")
	reg.Enqueue(ctx, []*domain.Task{second})

	assert.Len(t, reg.Snapshot(), 2)
	assert.True(t, reg.IsActive(10))
}

func TestRegistryDequeueNextFIFO(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, newMockItemStore())

	a := newTestTask(t, 1, "a.pdf", "/tmp/a.pdf")
	b := newTestTask(t, 2, "b.pdf", "/tmp/b.pdf")
	reg.Enqueue(ctx, []*domain.Task{a, b})

	got := reg.DequeueNext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.AttachmentID)
	assert.Equal(t, 1, reg.PendingLen())

	got = reg.DequeueNext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.AttachmentID)

	assert.Nil(t, reg.DequeueNext(ctx))
}

func TestRegistryDequeueReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, newMockItemStore())

	reg.Enqueue(ctx, []*domain.Task{newTestTask(t, 1, "a.pdf", "/tmp/a.pdf")})
	popped := reg.DequeueNext(ctx)
	require.NotNil(t, popped)

	popped.Status = domain.StatusFailed
	assert.Equal(t, domain.StatusQueued, reg.Snapshot()[0].Status)
}

func TestRegistryUpdate(t *testing.T) {
	ctx := context.Background()
	reg, store, history := newTestRegistry(t, newMockItemStore())

	reg.Enqueue(ctx, []*domain.Task{newTestTask(t, 1, "a.pdf", "/tmp/a.pdf")})

	ok := reg.Update(ctx, 1, func(task *domain.Task) {
		task.Status = domain.StatusUploading
		task.Stage = "uploading"
	})
	assert.True(t, ok)
	assert.Equal(t, domain.StatusUploading, reg.Snapshot()[0].Status)

	// Unknown attachment is a silent no-op.
	assert.False(t, reg.Update(ctx, 99, func(task *domain.Task) {
		task.Status = domain.StatusFailed
	}))

	// Transition to terminal records history and drops the task from the
	// persisted active set.
	ok = reg.Update(ctx, 1, func(task *domain.Task) {
		task.Status = domain.StatusFailed
		task.Error = "upload failed"
	})
	assert.True(t, ok)
	assert.Equal(t, 0, store.len())

	entries, err := history.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusFailed, entries[0].Status)

	// Terminal tasks are frozen against further updates.
	assert.False(t, reg.Update(ctx, 1, func(task *domain.Task) {
		task.Status = domain.StatusSuccess
	}))
	assert.Equal(t, domain.StatusFailed, reg.Snapshot()[0].Status)
}

func TestRegistryCancel(t *testing.T) {
	ctx := context.Background()
	reg, _, history := newTestRegistry(t, newMockItemStore())

	reg.Enqueue(ctx, []*domain.Task{
		newTestTask(t, 1, "a.pdf", "/tmp/a.pdf"),
		newTestTask(t, 2, "b.pdf", "/tmp/b.pdf"),
	})

	require.NoError(t, reg.Cancel(ctx, 2))
	assert.Equal(t, 1, reg.PendingLen())
	assert.Equal(t, domain.StatusCanceled, reg.Snapshot()[1].Status)

	entries, err := history.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusCanceled, entries[0].Status)

	// Only queued tasks can be canceled.
	reg.Update(ctx, 1, func(task *domain.Task) {
		task.Status = domain.StatusTranslating
	})
	assert.ErrorIs(t, reg.Cancel(ctx, 1), ErrNotCancelable)

	assert.ErrorIs(t, reg.Cancel(ctx, 99), ErrTaskNotFound)
}

func TestRegistryRetry(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, newMockItemStore())

	reg.Enqueue(ctx, []*domain.Task{newTestTask(t, 1, "a.pdf", "/tmp/a.pdf")})

	// Only failed tasks can be retried.
	_, err := reg.Retry(ctx, 1)
	assert.ErrorIs(t, err, ErrNotRetryable)

	popped := reg.DequeueNext(ctx)
	require.NotNil(t, popped)
	reg.Update(ctx, 1, func(task *domain.Task) {
		task.RemoteJobID = "job-123"
		task.Status = domain.StatusFailed
		task.Error = "network error"
	})

	retried, err := reg.Retry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, retried.Status)
	assert.Empty(t, retried.Error)
	// The remote job ID survives so the retry resumes monitoring instead of
	// re-uploading.
	assert.Equal(t, "job-123", retried.RemoteJobID)
	assert.Equal(t, 1, reg.PendingLen())

	_, err = reg.Retry(ctx, 99)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegistryLoadFromStore(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Put(ctx, newTestTask(t, 1, "a.pdf", "/tmp/a.pdf")))
	require.NoError(t, store.Put(ctx, newTestTask(t, 2, "b.pdf", "/tmp/b.pdf")))
	store.putRaw("3", []byte("{not json"))

	reg := NewRegistry(store, newMemHistory(), newMockItemStore(), nil, testLogger())
	require.NoError(t, reg.LoadFromStore(ctx))

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(1), snapshot[0].AttachmentID)
	assert.Equal(t, int64(2), snapshot[1].AttachmentID)
	assert.Equal(t, 0, reg.PendingLen())
}

func TestRegistryRestoreUnfinished(t *testing.T) {
	ctx := context.Background()
	items := newMockItemStore(
		item.Ref{ID: 1, Kind: item.KindDocument, Title: "Doc"},
		item.Ref{ID: 10, ParentID: 1, Kind: item.KindAttachment, Filename: "a.pdf", ContentType: item.PDFContentType},
		item.Ref{ID: 11, Kind: item.KindAttachment, Filename: "orphan.pdf", ContentType: item.PDFContentType},
	)
	store := newMemStore()

	// Unfinished task with a live attachment and parent.
	alive := newTestTask(t, 10, "a.pdf", "/tmp/a.pdf")
	alive.Status = domain.StatusTranslating
	alive.RemoteJobID = "job-a"
	require.NoError(t, store.Put(ctx, alive))

	// Unfinished task whose attachment is gone from the library.
	gone := newTestTask(t, 20, "gone.pdf", "/tmp/gone.pdf")
	gone.Status = domain.StatusUploading
	require.NoError(t, store.Put(ctx, gone))

	// Unfinished orphan task; ParentItemID zero skips the parent check.
	orphan := newTestTask(t, 11, "orphan.pdf", "/tmp/orphan.pdf")
	orphan.ParentItemID = 0
	orphan.Status = domain.StatusQueued
	require.NoError(t, store.Put(ctx, orphan))

	reg := NewRegistry(store, newMemHistory(), items, nil, testLogger())
	require.NoError(t, reg.LoadFromStore(ctx))

	restored := reg.RestoreUnfinished(ctx)
	assert.Equal(t, 2, restored)
	assert.Equal(t, 2, reg.PendingLen())

	// Restoring again never duplicates queue entries.
	assert.Equal(t, 0, reg.RestoreUnfinished(ctx))
	assert.Equal(t, 2, reg.PendingLen())
}

func TestRegistryPersistsOnlyNonTerminal(t *testing.T) {
	ctx := context.Background()
	reg, store, _ := newTestRegistry(t, newMockItemStore())

	reg.Enqueue(ctx, []*domain.Task{
		newTestTask(t, 1, "a.pdf", "/tmp/a.pdf"),
		newTestTask(t, 2, "b.pdf", "/tmp/b.pdf"),
	})
	require.NoError(t, reg.Cancel(ctx, 1))

	assert.Equal(t, 1, store.len())
	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{StoreKey(2)}, keys)
}
