// Package translator is the HTTP client for the remote translation service.
// The service exposes a small job-oriented API: request a pre-signed upload
// slot, upload the source file, create a translation job, poll its status,
// then fetch temporary result URLs and download the artifacts. Request-level
// retries and timeouts live here; the task engine above never retries on its
// own.
package translator
