package translator

import (
	"context"
	"fmt"
)

// UploadSlot is a pre-signed destination for a single source file upload.
type UploadSlot struct {
	ObjectKey string `json:"object_key"`
	UploadURL string `json:"upload_url"`
}

// CreateJobRequest describes a new translation job for an uploaded file.
type CreateJobRequest struct {
	ObjectKey            string `json:"object_key"`
	FileName             string `json:"file_name"`
	TargetLanguage       string `json:"target_language"`
	Model                string `json:"model"`
	EnhanceCompatibility bool   `json:"enhance_compatibility"`
}

// JobStatus is a point-in-time snapshot of a remote job. Status "ok" with
// full progress is the sole success predicate; any other non-empty status is
// a failure report. CurrentStageName is advisory display text.
type JobStatus struct {
	Status           string `json:"status"`
	OverallProgress  int    `json:"overall_progress"`
	CurrentStageName string `json:"currentStageName"`
	Message          string `json:"message,omitempty"`
}

// Succeeded reports whether the job has completed successfully.
func (s JobStatus) Succeeded() bool {
	return s.Status == "ok" && s.OverallProgress == 100
}

// Failed reports whether the remote side declared the job failed.
func (s JobStatus) Failed() bool {
	return s.Status != "" && s.Status != "ok"
}

// FailureMessage returns the service-provided error text, falling back to a
// generic description of the failing status.
func (s JobStatus) FailureMessage() string {
	if s.Message != "" {
		return s.Message
	}
	return fmt.Sprintf("translation failed with status: %s", s.Status)
}

// JobResult holds temporary download URLs for a completed job's artifacts.
// Either URL may be empty if the corresponding artifact was not produced.
type JobResult struct {
	DualURL            string `json:"dual_url"`
	TranslationOnlyURL string `json:"translation_only_url"`
}

// Client is the translation service surface consumed by the task engine.
type Client interface {
	// RequestUploadSlot asks the service for a pre-signed upload
	// destination for one source file.
	RequestUploadSlot(ctx context.Context) (UploadSlot, error)

	// UploadFile puts the file bytes to the pre-signed URL. Must succeed
	// before CreateJob.
	UploadFile(ctx context.Context, uploadURL string, data []byte, contentType string) error

	// CreateJob registers a translation job for an uploaded object and
	// returns the remote job ID.
	CreateJob(ctx context.Context, req CreateJobRequest) (string, error)

	// GetJobStatus returns the current status snapshot of a job.
	GetJobStatus(ctx context.Context, jobID string) (JobStatus, error)

	// GetJobResult returns the temporary artifact URLs of a completed job.
	GetJobResult(ctx context.Context, jobID string) (JobResult, error)

	// DownloadFile fetches an artifact's bytes from a result URL.
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}
