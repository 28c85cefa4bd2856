package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a translation task
type Status string

// Possible task status values
const (
	StatusQueued      Status = "queued"
	StatusUploading   Status = "uploading"
	StatusTranslating Status = "translating"
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusCanceled    Status = "canceled"
)

// Translate mode values. ModeAll downloads both the dual-language and the
// translation-only artifact; the dual-language attachment is the canonical
// result in that case.
const (
	ModeDual        = "dual"
	ModeTranslation = "translation"
	ModeAll         = "all"
)

// Common validation errors for Task
var (
	ErrInvalidAttachmentID  = errors.New("attachment ID must be positive")
	ErrEmptyAttachmentName  = errors.New("attachment filename cannot be empty")
	ErrEmptyAttachmentPath  = errors.New("attachment path cannot be empty")
	ErrEmptyTargetLanguage  = errors.New("target language cannot be empty")
	ErrEmptyTranslateModel  = errors.New("translate model cannot be empty")
	ErrInvalidTranslateMode = errors.New("invalid translate mode")
	ErrInvalidStatus        = errors.New("invalid task status")
)

// Task represents one durable unit of translation work for a single source
// attachment. It tracks job configuration fixed at creation time and the
// remote job's progress until the result is imported back into the item
// store.
type Task struct {
	ID                   uuid.UUID `json:"id"`
	AttachmentID         int64     `json:"attachment_id"`
	ParentItemID         int64     `json:"parent_item_id,omitempty"`
	ParentItemTitle      string    `json:"parent_item_title,omitempty"`
	AttachmentFilename   string    `json:"attachment_filename"`
	AttachmentPath       string    `json:"attachment_path"`
	TargetLanguage       string    `json:"target_language"`
	TranslateModel       string    `json:"translate_model"`
	TranslateMode        string    `json:"translate_mode"`
	EnhanceCompatibility bool      `json:"enhance_compatibility"`
	RemoteJobID          string    `json:"remote_job_id,omitempty"`
	Status               Status    `json:"status"`
	Stage                string    `json:"stage,omitempty"`
	Progress             int       `json:"progress"`
	Error                string    `json:"error,omitempty"`
	ResultAttachmentID   int64     `json:"result_attachment_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewTaskParams holds the inputs captured at task creation time.
type NewTaskParams struct {
	AttachmentID         int64
	ParentItemID         int64
	ParentItemTitle      string
	AttachmentFilename   string
	AttachmentPath       string
	TargetLanguage       string
	TranslateModel       string
	TranslateMode        string
	EnhanceCompatibility bool
}

// NewTask creates a new Task in the queued state. It generates a new UUID
// for the task record and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(p NewTaskParams) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:                   uuid.New(),
		AttachmentID:         p.AttachmentID,
		ParentItemID:         p.ParentItemID,
		ParentItemTitle:      p.ParentItemTitle,
		AttachmentFilename:   p.AttachmentFilename,
		AttachmentPath:       p.AttachmentPath,
		TargetLanguage:       p.TargetLanguage,
		TranslateModel:       p.TranslateModel,
		TranslateMode:        p.TranslateMode,
		EnhanceCompatibility: p.EnhanceCompatibility,
		Status:               StatusQueued,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.AttachmentID <= 0 {
		return ErrInvalidAttachmentID
	}

	if t.AttachmentFilename == "" {
		return ErrEmptyAttachmentName
	}

	if t.AttachmentPath == "" {
		return ErrEmptyAttachmentPath
	}

	if t.TargetLanguage == "" {
		return ErrEmptyTargetLanguage
	}

	if t.TranslateModel == "" {
		return ErrEmptyTranslateModel
	}

	if !isValidTranslateMode(t.TranslateMode) {
		return ErrInvalidTranslateMode
	}

	if !isValidStatus(t.Status) {
		return ErrInvalidStatus
	}

	return nil
}

// IsTerminal reports whether the task has reached a final state.
// Terminal tasks are never mutated again except by an explicit retry.
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// HasParent reports whether the task's source attachment belongs to a
// document. Orphan attachments attach their result to the attachment's own
// collections instead.
func (t *Task) HasParent() bool {
	return t.ParentItemID > 0
}

// Touch updates the UpdatedAt timestamp.
func (t *Task) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// IsTerminal reports whether the status is one of the final values.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// isValidStatus checks if the given status is a valid Status.
func isValidStatus(status Status) bool {
	switch status {
	case StatusQueued, StatusUploading, StatusTranslating,
		StatusSuccess, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// isValidTranslateMode checks if the given mode is a supported translate mode.
func isValidTranslateMode(mode string) bool {
	switch mode {
	case ModeDual, ModeTranslation, ModeAll:
		return true
	default:
		return false
	}
}
