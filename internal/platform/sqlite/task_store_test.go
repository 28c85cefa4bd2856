package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/task"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "translateq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func storedTask(t *testing.T, attachmentID int64) *domain.Task {
	t.Helper()
	tk, err := domain.NewTask(domain.NewTaskParams{
		AttachmentID:       attachmentID,
		ParentItemID:       1,
		ParentItemTitle:    "Paper",
		AttachmentFilename: "paper.pdf",
		AttachmentPath:     "/tmp/paper.pdf",
		TargetLanguage:     "zh-CN",
		TranslateModel:     "standard",
		TranslateMode:      domain.ModeDual,
	})
	require.NoError(t, err)
	return tk
}

func TestTaskStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	want := storedTask(t, 10)
	require.NoError(t, store.Put(ctx, want))

	got, err := store.Get(ctx, task.StoreKey(10))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTaskStorePutReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	tk := storedTask(t, 10)
	require.NoError(t, store.Put(ctx, tk))

	tk.Status = domain.StatusTranslating
	tk.RemoteJobID = "job-1"
	require.NoError(t, store.Put(ctx, tk))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{task.StoreKey(10)}, keys)

	got, err := store.Get(ctx, task.StoreKey(10))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTranslating, got.Status)
	assert.Equal(t, "job-1", got.RemoteJobID)
}

func TestTaskStoreListKeysInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	for _, id := range []int64{30, 10, 20} {
		require.NoError(t, store.Put(ctx, storedTask(t, id)))
	}

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"30", "10", "20"}, keys)
}

func TestTaskStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	_, err := store.Get(ctx, "404")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestTaskStoreGetMalformed(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewTaskStore(db)

	_, err := db.ExecContext(ctx, "INSERT INTO tasks (key, data) VALUES (?, ?)", "7", "{not json")
	require.NoError(t, err)

	_, err = store.Get(ctx, "7")
	assert.ErrorIs(t, err, task.ErrMalformedTask)
}

func TestTaskStoreClearAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(openTestDB(t))

	require.NoError(t, store.Put(ctx, storedTask(t, 1)))
	require.NoError(t, store.Put(ctx, storedTask(t, 2)))

	require.NoError(t, store.Delete(ctx, task.StoreKey(1)))
	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{task.StoreKey(2)}, keys)

	require.NoError(t, store.Clear(ctx))
	keys, err = store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestHistoryStoreNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	history := NewHistoryStore(db)

	for _, id := range []int64{1, 2, 3} {
		tk := storedTask(t, id)
		tk.Status = domain.StatusFailed
		require.NoError(t, history.Append(ctx, tk))
	}

	entries, err := history.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].AttachmentID)
	assert.Equal(t, int64(2), entries[1].AttachmentID)

	all, err := history.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
