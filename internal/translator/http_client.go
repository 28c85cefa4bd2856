package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Per-endpoint retry counts. Status checks retry hardest because a single
// missed poll cycle fails the whole task.
const (
	uploadSlotRetries = 3
	uploadRetries     = 3
	createJobRetries  = 3
	statusRetries     = 10
	resultRetries     = 3
	downloadRetries   = 3
)

// ErrEmptyJobID is returned when the service accepts a job but responds
// without an identifier.
var ErrEmptyJobID = errors.New("service returned an empty job ID")

// APIError is a failure reported by the service envelope (non-zero code).
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("translation service error (code %d): %s", e.Code, e.Message)
}

// envelope is the service's standard JSON response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config holds the settings for the HTTP client.
type Config struct {
	// BaseURL is the service root, e.g. "https://api.example.com/v1".
	BaseURL string

	// AuthKey is sent as a bearer token on every envelope request.
	AuthKey string

	// RequestTimeout bounds each individual HTTP request.
	RequestTimeout time.Duration

	// RetryDelay is the pause between retry attempts.
	RetryDelay time.Duration
}

// HTTPClient implements Client against the remote translation service.
type HTTPClient struct {
	baseURL    string
	authKey    string
	httpClient *http.Client
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the service at cfg.BaseURL.
func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		authKey:    cfg.AuthKey,
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: retryDelay,
		logger:     logger.With("component", "translator_client"),
	}
}

// RequestUploadSlot asks the service for a pre-signed upload destination.
func (c *HTTPClient) RequestUploadSlot(ctx context.Context) (UploadSlot, error) {
	var slot UploadSlot
	if err := c.doEnvelope(ctx, http.MethodGet, "/upload-url", nil, &slot, uploadSlotRetries); err != nil {
		return UploadSlot{}, fmt.Errorf("failed to request upload slot: %w", err)
	}
	return slot, nil
}

// UploadFile puts the file bytes to the pre-signed URL.
func (c *HTTPClient) UploadFile(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	err := c.withRetries(ctx, uploadRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer closeBody(resp, c.logger)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("upload returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// CreateJob registers a translation job and returns the remote job ID.
func (c *HTTPClient) CreateJob(ctx context.Context, req CreateJobRequest) (string, error) {
	var jobID string
	if err := c.doEnvelope(ctx, http.MethodPost, "/jobs", req, &jobID, createJobRetries); err != nil {
		return "", fmt.Errorf("failed to create translation job: %w", err)
	}
	if jobID == "" {
		return "", ErrEmptyJobID
	}
	return jobID, nil
}

// GetJobStatus returns the current status snapshot of a job.
func (c *HTTPClient) GetJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	path := fmt.Sprintf("/jobs/%s/status", jobID)
	if err := c.doEnvelope(ctx, http.MethodGet, path, nil, &status, statusRetries); err != nil {
		return JobStatus{}, fmt.Errorf("failed to get job status: %w", err)
	}
	return status, nil
}

// GetJobResult returns the temporary artifact URLs of a completed job.
func (c *HTTPClient) GetJobResult(ctx context.Context, jobID string) (JobResult, error) {
	var result JobResult
	path := fmt.Sprintf("/jobs/%s/result", jobID)
	if err := c.doEnvelope(ctx, http.MethodGet, path, nil, &result, resultRetries); err != nil {
		return JobResult{}, fmt.Errorf("failed to get job result: %w", err)
	}
	return result, nil
}

// DownloadFile fetches an artifact's bytes from a result URL.
func (c *HTTPClient) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := c.withRetries(ctx, downloadRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer closeBody(resp, c.logger)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download returned status %d", resp.StatusCode)
		}

		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, nil
}

// doEnvelope performs a JSON request against a service endpoint, unwraps the
// standard response envelope, and decodes its data field into out.
func (c *HTTPClient) doEnvelope(ctx context.Context, method, path string, body, out any, retries int) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	return c.withRetries(ctx, retries, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.authKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer closeBody(resp, c.logger)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("service returned status %d", resp.StatusCode)
		}

		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return fmt.Errorf("failed to decode response envelope: %w", err)
		}

		if env.Code != 0 {
			// A service-level rejection is not transient; report it
			// without consuming further attempts.
			return &APIError{Code: env.Code, Message: env.Message}
		}

		if out != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return fmt.Errorf("failed to decode response data: %w", err)
			}
		}
		return nil
	})
}

// withRetries runs fn up to attempts times, pausing between tries. Service
// envelope errors abort immediately since repeating the request cannot
// change the answer.
func (c *HTTPClient) withRetries(ctx context.Context, attempts int, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(lastErr, &apiErr) {
			return lastErr
		}

		if i < attempts-1 {
			c.logger.Debug("request failed, retrying",
				"attempt", i+1,
				"max_attempts", attempts,
				"error", lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return lastErr
}

func closeBody(resp *http.Response, logger *slog.Logger) {
	if err := resp.Body.Close(); err != nil {
		logger.Warn("failed to close response body", "error", err)
	}
}
