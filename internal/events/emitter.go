package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler receives task-list change notifications. The signal carries no
// payload; handlers re-read the task list from the registry.
type Handler interface {
	HandleTasksChanged(ctx context.Context) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context) error

// HandleTasksChanged calls the wrapped function.
func (f HandlerFunc) HandleTasksChanged(ctx context.Context) error {
	return f(ctx)
}

// Emitter fans a "tasks changed" signal out to all registered handlers.
// A failing handler never prevents the others from being notified.
type Emitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewEmitter creates a new Emitter.
func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{
		handlers: make([]Handler, 0),
		logger:   logger.With("component", "events_emitter"),
	}
}

// RegisterHandler adds a new handler to receive change notifications.
func (e *Emitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered tasks-changed handler", "handler_count", len(e.handlers))
}

// NotifyTasksChanged publishes the change signal to all registered handlers.
// All handlers are invoked even if some fail; the first error encountered is
// returned.
func (e *Emitter) NotifyTasksChanged(ctx context.Context) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleTasksChanged(ctx); err != nil {
			e.logger.Error("tasks-changed handler failed",
				"error", err,
				"handler_index", i)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
