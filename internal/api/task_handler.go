package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/task"
)

// TaskService is the task engine surface the handlers consume.
type TaskService interface {
	Submit(ctx context.Context, selection []int64, opts task.SubmitOptions) int
	Retry(ctx context.Context, attachmentID int64) error
	Cancel(ctx context.Context, attachmentID int64) error
	Tasks() []domain.Task
	History(ctx context.Context, limit int) ([]domain.Task, error)
}

// TaskHandler handles translation task endpoints.
type TaskHandler struct {
	service  TaskService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(service TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "task_handler"),
	}
}

// ListTasks handles GET /tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.service.Tasks()
	if tasks == nil {
		tasks = []domain.Task{}
	}
	RespondWithJSON(w, r, http.StatusOK, tasks)
}

// ListHistory handles GET /tasks/history. The optional limit query parameter
// caps the number of entries; it defaults to 50.
func (h *TaskHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondWithError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read task history", "error", err)
		RespondWithError(w, r, http.StatusInternalServerError, "failed to read task history")
		return
	}
	if entries == nil {
		entries = []domain.Task{}
	}
	RespondWithJSON(w, r, http.StatusOK, entries)
}

// SubmitTasks handles POST /tasks.
func (h *TaskHandler) SubmitTasks(w http.ResponseWriter, r *http.Request) {
	var req SubmitTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "item_ids must contain at least one positive ID")
		return
	}

	enqueued := h.service.Submit(r.Context(), req.ItemIDs, req.Options)
	h.logger.Info("handled task submission",
		"selection_size", len(req.ItemIDs),
		"enqueued", enqueued)
	RespondWithJSON(w, r, http.StatusAccepted, SubmitTasksResponse{Enqueued: enqueued})
}

// RetryTask handles POST /tasks/{attachmentID}/retry.
func (h *TaskHandler) RetryTask(w http.ResponseWriter, r *http.Request) {
	attachmentID, ok := h.attachmentID(w, r)
	if !ok {
		return
	}

	err := h.service.Retry(r.Context(), attachmentID)
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		RespondWithError(w, r, http.StatusNotFound, "no task for attachment")
	case errors.Is(err, task.ErrNotRetryable):
		RespondWithError(w, r, http.StatusConflict, "only failed tasks can be retried")
	case err != nil:
		h.logger.Error("failed to retry task", "attachment_id", attachmentID, "error", err)
		RespondWithError(w, r, http.StatusInternalServerError, "failed to retry task")
	default:
		RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "queued"})
	}
}

// CancelTask handles POST /tasks/{attachmentID}/cancel.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	attachmentID, ok := h.attachmentID(w, r)
	if !ok {
		return
	}

	err := h.service.Cancel(r.Context(), attachmentID)
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		RespondWithError(w, r, http.StatusNotFound, "no task for attachment")
	case errors.Is(err, task.ErrNotCancelable):
		RespondWithError(w, r, http.StatusConflict, "only queued tasks can be canceled")
	case err != nil:
		h.logger.Error("failed to cancel task", "attachment_id", attachmentID, "error", err)
		RespondWithError(w, r, http.StatusInternalServerError, "failed to cancel task")
	default:
		RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "canceled"})
	}
}

func (h *TaskHandler) attachmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "attachmentID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		RespondWithError(w, r, http.StatusBadRequest, "attachment ID must be a positive integer")
		return 0, false
	}
	return id, true
}
