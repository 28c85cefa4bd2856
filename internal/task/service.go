package task

import (
	"context"
	"log/slog"

	"github.com/tbellam/translateq/internal/domain"
)

// Service is the façade the control surface talks to. It wires the builder,
// registry, queue processor, and job monitor together and owns their
// lifecycle; callers never touch the engine internals directly.
type Service struct {
	builder   *Builder
	registry  *Registry
	processor *QueueProcessor
	monitor   *JobMonitor
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(
	builder *Builder,
	registry *Registry,
	processor *QueueProcessor,
	monitor *JobMonitor,
	logger *slog.Logger,
) *Service {
	return &Service{
		builder:   builder,
		registry:  registry,
		processor: processor,
		monitor:   monitor,
		logger:    logger.With("component", "task_service"),
	}
}

// Start loads persisted tasks, re-queues the unfinished ones, and kicks the
// queue processor if recovery produced work. Called once at startup.
func (s *Service) Start(ctx context.Context) error {
	if err := s.registry.LoadFromStore(ctx); err != nil {
		return err
	}
	if restored := s.registry.RestoreUnfinished(ctx); restored > 0 {
		s.logger.Info("resuming unfinished translations", "count", restored)
		s.processor.Start()
	}
	return nil
}

// Stop shuts the engine down: the drain loop and poller exit, then the
// active task set is flushed to the store one last time.
func (s *Service) Stop(ctx context.Context) {
	s.processor.Stop()
	s.monitor.Stop()
	s.registry.Flush(ctx)
	s.logger.Info("task service stopped")
}

// Submit expands a library selection into tasks, enqueues them, and starts
// processing. Items filtered out by the eligibility and dedup rules are
// skipped silently; the returned count is the number of tasks actually
// enqueued.
func (s *Service) Submit(ctx context.Context, selection []int64, opts SubmitOptions) int {
	tasks := s.builder.Build(ctx, selection, opts)
	if len(tasks) == 0 {
		return 0
	}
	s.registry.Enqueue(ctx, tasks)
	s.processor.Start()
	return len(tasks)
}

// Retry re-queues a failed task and starts processing.
func (s *Service) Retry(ctx context.Context, attachmentID int64) error {
	if _, err := s.registry.Retry(ctx, attachmentID); err != nil {
		return err
	}
	s.processor.Start()
	return nil
}

// Cancel cancels a queued task.
func (s *Service) Cancel(ctx context.Context, attachmentID int64) error {
	return s.registry.Cancel(ctx, attachmentID)
}

// Tasks returns the current session task list.
func (s *Service) Tasks() []domain.Task {
	return s.registry.Snapshot()
}

// History returns recent terminal task records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.Task, error) {
	return s.registry.History(ctx, limit)
}
