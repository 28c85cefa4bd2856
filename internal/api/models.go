package api

import (
	"github.com/tbellam/translateq/internal/task"
)

// SubmitTasksRequest is the request body for POST /tasks: a library
// selection plus optional per-batch option overrides.
type SubmitTasksRequest struct {
	ItemIDs []int64            `json:"item_ids" validate:"required,min=1,dive,gt=0"`
	Options task.SubmitOptions `json:"options"`
}

// SubmitTasksResponse reports how many tasks a submission produced after
// filtering and deduplication.
type SubmitTasksResponse struct {
	Enqueued int `json:"enqueued"`
}

// CreateItemRequest is the request body for POST /items. Attachments carry a
// filename, an on-disk path, and a content type; documents carry a title.
type CreateItemRequest struct {
	Kind        string  `json:"kind" validate:"required,oneof=document attachment"`
	ParentID    int64   `json:"parent_id,omitempty" validate:"gte=0"`
	Title       string  `json:"title,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	Path        string  `json:"path,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Collections []int64 `json:"collections,omitempty"`
}
