package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/item"
	"github.com/tbellam/translateq/internal/translator"
)

// QueueProcessor drains the pending queue one task at a time. Initiation is
// deliberately single flight (at most one upload/create-job sequence runs
// at any moment) while monitoring of already-initiated jobs happens
// concurrently in the JobMonitor. A failure initiating one task marks that
// task failed and the loop moves on; retry is always an explicit user
// action.
type QueueProcessor struct {
	registry *Registry
	client   translator.Client
	monitor  *JobMonitor
	logger   *slog.Logger

	mu       sync.Mutex
	draining bool

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewQueueProcessor creates a QueueProcessor.
func NewQueueProcessor(
	registry *Registry,
	client translator.Client,
	monitor *JobMonitor,
	logger *slog.Logger,
) *QueueProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &QueueProcessor{
		registry:   registry,
		client:     client,
		monitor:    monitor,
		logger:     logger.With("component", "queue_processor"),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the drain loop if it is not already running and there is
// pending work. Safe to call from any goroutine at any time; redundant
// starts are no-ops.
func (p *QueueProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining {
		return
	}
	if p.registry.PendingLen() == 0 {
		return
	}

	p.draining = true
	p.wg.Add(1)
	go p.drainLoop()
	p.logger.Debug("drain loop started")
}

// Stop cancels the drain loop and waits for it to exit.
func (p *QueueProcessor) Stop() {
	p.cancelFunc()
	p.wg.Wait()
}

// drainLoop pops and processes tasks until the queue is empty. Before
// exiting it re-checks the queue under the drain guard: a task enqueued
// between the last pop and the guard release must not strand the queue.
func (p *QueueProcessor) drainLoop() {
	defer p.wg.Done()

	for {
		if p.ctx.Err() != nil {
			p.setDraining(false)
			return
		}

		next := p.registry.DequeueNext(p.ctx)
		if next == nil {
			p.mu.Lock()
			if p.registry.PendingLen() > 0 {
				p.mu.Unlock()
				continue
			}
			p.draining = false
			p.mu.Unlock()
			p.logger.Debug("pending queue empty, drain loop stopping")
			return
		}

		p.process(next)
	}
}

// process initiates a single task, or hands it straight to the monitor when
// it already holds a remote job ID from a previous run.
func (p *QueueProcessor) process(t *domain.Task) {
	log := p.logger.With(
		"attachment_id", t.AttachmentID,
		"filename", t.AttachmentFilename)

	if !p.registry.IsActive(t.AttachmentID) {
		// Canceled or removed between enqueue and pop; nothing to do.
		return
	}

	if t.RemoteJobID != "" {
		log.Info("task already has a remote job, resuming monitoring",
			"job_id", t.RemoteJobID)
		p.registry.Update(p.ctx, t.AttachmentID, func(task *domain.Task) {
			task.Status = domain.StatusTranslating
		})
		p.monitor.Add(t.RemoteJobID, t)
		return
	}

	log.Info("initiating translation")
	if err := p.initiate(t); err != nil {
		if p.ctx.Err() != nil {
			// Shutting down mid-initiation. The task stays non-terminal
			// in the store and is re-queued on the next start.
			return
		}
		log.Error("failed to initiate translation", "error", err)
		p.registry.Update(p.ctx, t.AttachmentID, func(task *domain.Task) {
			task.Status = domain.StatusFailed
			task.Error = err.Error()
		})
	}
}

// initiate uploads the source file, creates the remote job, records the job
// ID, and hands the task to the monitor.
func (p *QueueProcessor) initiate(t *domain.Task) error {
	p.registry.Update(p.ctx, t.AttachmentID, func(task *domain.Task) {
		task.Status = domain.StatusUploading
		task.Stage = "uploading"
		task.Progress = 0
	})

	data, err := os.ReadFile(t.AttachmentPath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	slot, err := p.client.RequestUploadSlot(p.ctx)
	if err != nil {
		return err
	}

	if err := p.client.UploadFile(p.ctx, slot.UploadURL, data, item.PDFContentType); err != nil {
		return err
	}

	jobID, err := p.client.CreateJob(p.ctx, translator.CreateJobRequest{
		ObjectKey:            slot.ObjectKey,
		FileName:             t.AttachmentFilename,
		TargetLanguage:       t.TargetLanguage,
		Model:                t.TranslateModel,
		EnhanceCompatibility: t.EnhanceCompatibility,
	})
	if err != nil {
		return err
	}

	p.logger.Info("translation job created",
		"attachment_id", t.AttachmentID,
		"job_id", jobID)

	p.registry.Update(p.ctx, t.AttachmentID, func(task *domain.Task) {
		task.RemoteJobID = jobID
		task.Status = domain.StatusTranslating
		task.Stage = "queued"
		task.Progress = 0
	})

	t.RemoteJobID = jobID
	p.monitor.Add(jobID, t)
	return nil
}

func (p *QueueProcessor) setDraining(v bool) {
	p.mu.Lock()
	p.draining = v
	p.mu.Unlock()
}
