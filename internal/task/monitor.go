package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/translator"
)

// MonitorConfig holds configuration for the job monitor.
type MonitorConfig struct {
	// PollInterval is the pause between polling cycles.
	PollInterval time.Duration

	// BatchSize caps how many status requests run concurrently within one
	// polling cycle.
	BatchSize int
}

// DefaultMonitorConfig returns a MonitorConfig with reasonable defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval: 3 * time.Second,
		BatchSize:    6,
	}
}

// JobMonitor is a single shared poller over every task with an active
// remote job. One loop polls all jobs in bounded batches instead of one
// timer per job, which amortizes polling overhead and caps concurrent
// network load. Jobs stay in the poll set until the remote side reports
// success or failure (long jobs are expected, so there is no overall
// timeout) and leave it on any terminal outcome, including finalizer
// failures.
type JobMonitor struct {
	registry  *Registry
	client    translator.Client
	finalizer *ResultFinalizer
	logger    *slog.Logger
	config    MonitorConfig

	mu      sync.Mutex
	jobs    map[string]*domain.Task // remote job ID -> task snapshot
	polling bool

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewJobMonitor creates a JobMonitor.
func NewJobMonitor(
	registry *Registry,
	client translator.Client,
	finalizer *ResultFinalizer,
	config MonitorConfig,
	logger *slog.Logger,
) *JobMonitor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultMonitorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultMonitorConfig().BatchSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobMonitor{
		registry:   registry,
		client:     client,
		finalizer:  finalizer,
		logger:     logger.With("component", "job_monitor"),
		config:     config,
		jobs:       make(map[string]*domain.Task),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Add inserts a job into the poll set and starts the poll loop if it is not
// already running.
func (m *JobMonitor) Add(jobID string, t *domain.Task) {
	m.mu.Lock()
	m.jobs[jobID] = t
	if !m.polling {
		m.polling = true
		m.wg.Add(1)
		go m.pollLoop()
	}
	m.mu.Unlock()

	m.logger.Info("monitoring translation job",
		"job_id", jobID,
		"attachment_id", t.AttachmentID,
		"filename", t.AttachmentFilename)
}

// ActiveJobs returns the number of jobs currently being polled.
func (m *JobMonitor) ActiveJobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Stop cancels the poll loop and waits for it to exit.
func (m *JobMonitor) Stop() {
	m.cancelFunc()
	m.wg.Wait()
}

type jobEntry struct {
	jobID string
	task  *domain.Task
}

// pollLoop polls every tracked job in bounded batches, waiting out the poll
// interval between cycles, until the poll set empties.
func (m *JobMonitor) pollLoop() {
	defer m.wg.Done()

	m.logger.Debug("poll loop started")
	for {
		if m.ctx.Err() != nil {
			m.setPolling(false)
			return
		}

		entries := m.snapshot()
		if len(entries) == 0 {
			m.mu.Lock()
			if len(m.jobs) == 0 {
				m.polling = false
				m.mu.Unlock()
				m.logger.Debug("all jobs resolved, poll loop stopping")
				return
			}
			m.mu.Unlock()
			continue
		}

		for start := 0; start < len(entries); start += m.config.BatchSize {
			end := start + m.config.BatchSize
			if end > len(entries) {
				end = len(entries)
			}

			var batch sync.WaitGroup
			for _, e := range entries[start:end] {
				batch.Add(1)
				go func(e jobEntry) {
					defer batch.Done()
					m.checkJob(e.jobID, e.task)
				}(e)
			}
			batch.Wait()
		}

		select {
		case <-m.ctx.Done():
			m.setPolling(false)
			return
		case <-time.After(m.config.PollInterval):
		}
	}
}

// checkJob polls one job and resolves it if the remote side is done. Any
// error (a failed status call, a job-reported failure, or a finalizer
// failure) marks the task failed and removes the job from the poll set;
// the monitor never retries on its own. Errors caused by the monitor
// shutting down are the exception: the task keeps its persisted state so
// the next run can resume the job.
func (m *JobMonitor) checkJob(jobID string, t *domain.Task) {
	log := m.logger.With(
		"job_id", jobID,
		"attachment_id", t.AttachmentID,
		"filename", t.AttachmentFilename)

	status, err := m.client.GetJobStatus(m.ctx, jobID)
	if err != nil {
		if m.ctx.Err() != nil {
			// Shutting down, not a real monitoring failure.
			return
		}
		log.Error("status check failed", "error", err)
		m.registry.Update(m.ctx, t.AttachmentID, func(task *domain.Task) {
			task.Status = domain.StatusFailed
			task.Error = err.Error()
		})
		m.remove(jobID)
		return
	}

	stage := status.CurrentStageName
	if stage == "" {
		stage = "queued"
	}
	m.registry.Update(m.ctx, t.AttachmentID, func(task *domain.Task) {
		task.Status = domain.StatusTranslating
		task.Stage = stage
		task.Progress = status.OverallProgress
	})

	switch {
	case status.Succeeded():
		log.Info("translation completed, downloading result")
		m.registry.Update(m.ctx, t.AttachmentID, func(task *domain.Task) {
			task.Stage = "downloading"
			task.Progress = 100
		})

		if err := m.finalizer.Finalize(m.ctx, jobID, t); err != nil {
			if m.ctx.Err() != nil {
				return
			}
			log.Error("failed to finalize result", "error", err)
			m.registry.Update(m.ctx, t.AttachmentID, func(task *domain.Task) {
				task.Status = domain.StatusFailed
				task.Error = err.Error()
			})
		}
		m.remove(jobID)

	case status.Failed():
		log.Error("remote job failed",
			"status", status.Status,
			"message", status.Message)
		m.registry.Update(m.ctx, t.AttachmentID, func(task *domain.Task) {
			task.Status = domain.StatusFailed
			task.Error = status.FailureMessage()
		})
		m.remove(jobID)
	}
}

// snapshot returns the current poll set in a stable order.
func (m *JobMonitor) snapshot() []jobEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]jobEntry, 0, len(m.jobs))
	for id, t := range m.jobs {
		entries = append(entries, jobEntry{jobID: id, task: t})
	}
	return entries
}

func (m *JobMonitor) remove(jobID string) {
	m.mu.Lock()
	delete(m.jobs, jobID)
	m.mu.Unlock()
}

func (m *JobMonitor) setPolling(v bool) {
	m.mu.Lock()
	m.polling = v
	m.mu.Unlock()
}
