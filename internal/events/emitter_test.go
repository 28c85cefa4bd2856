package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingHandler struct {
	calls int
	err   error
}

func (h *countingHandler) HandleTasksChanged(ctx context.Context) error {
	h.calls++
	return h.err
}

func TestEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("notify with no handlers", func(t *testing.T) {
		emitter := NewEmitter(logger)
		assert.NoError(t, emitter.NotifyTasksChanged(context.Background()))
	})

	t.Run("notify reaches all handlers", func(t *testing.T) {
		emitter := NewEmitter(logger)

		h1 := &countingHandler{}
		h2 := &countingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		assert.NoError(t, emitter.NotifyTasksChanged(context.Background()))
		assert.Equal(t, 1, h1.calls)
		assert.Equal(t, 1, h2.calls)
	})

	t.Run("failing handler does not block others", func(t *testing.T) {
		emitter := NewEmitter(logger)

		failing := &countingHandler{err: errors.New("render failed")}
		ok := &countingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(ok)

		err := emitter.NotifyTasksChanged(context.Background())
		assert.EqualError(t, err, "render failed")
		assert.Equal(t, 1, failing.calls)
		assert.Equal(t, 1, ok.calls)
	})

	t.Run("handler func adapter", func(t *testing.T) {
		emitter := NewEmitter(logger)

		called := 0
		emitter.RegisterHandler(HandlerFunc(func(ctx context.Context) error {
			called++
			return nil
		}))

		assert.NoError(t, emitter.NotifyTasksChanged(context.Background()))
		assert.Equal(t, 1, called)
	})
}
