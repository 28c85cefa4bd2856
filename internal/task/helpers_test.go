package task

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/events"
	"github.com/tbellam/translateq/internal/item"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRegistry wires a registry over fresh in-memory stores.
func newTestRegistry(t *testing.T, items item.Store) (*Registry, *memStore, *memHistory) {
	t.Helper()
	store := newMemStore()
	history := newMemHistory()
	reg := NewRegistry(store, history, items, events.NewEmitter(testLogger()), testLogger())
	return reg, store, history
}

// newTestTask builds a valid queued task for the given attachment.
func newTestTask(t *testing.T, attachmentID int64, filename, path string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(domain.NewTaskParams{
		AttachmentID:       attachmentID,
		ParentItemID:       1,
		ParentItemTitle:    "Attention Is All You Need",
		AttachmentFilename: filename,
		AttachmentPath:     path,
		TargetLanguage:     "zh-CN",
		TranslateModel:     "standard",
		TranslateMode:      domain.ModeDual,
	})
	require.NoError(t, err)
	return task
}
