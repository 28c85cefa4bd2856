package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/item"
	"github.com/tbellam/translateq/internal/translator"
)

// ResultFinalizer downloads finished translation artifacts and imports them
// into the item library next to their source. Finalization is all or
// nothing: if any required artifact fails to download or import, the task is
// left for the monitor to mark failed and nothing partial is recorded as
// success.
type ResultFinalizer struct {
	client     translator.Client
	items      item.Store
	registry   *Registry
	logger     *slog.Logger
	scratchDir string
}

// NewResultFinalizer creates a ResultFinalizer. Downloaded artifacts are
// staged under scratchDir before import; pass "" to use the system temp
// directory.
func NewResultFinalizer(
	client translator.Client,
	items item.Store,
	registry *Registry,
	scratchDir string,
	logger *slog.Logger,
) *ResultFinalizer {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &ResultFinalizer{
		client:     client,
		items:      items,
		registry:   registry,
		logger:     logger.With("component", "result_finalizer"),
		scratchDir: scratchDir,
	}
}

// Finalize fetches the result URLs for a completed job, imports the
// artifacts the task's translate mode calls for, and marks the task
// succeeded. With mode "all" both artifacts are imported and the dual-layout
// one becomes the task's canonical result.
func (f *ResultFinalizer) Finalize(ctx context.Context, jobID string, t *domain.Task) error {
	result, err := f.client.GetJobResult(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to fetch job result: %w", err)
	}

	var resultID int64
	switch t.TranslateMode {
	case domain.ModeDual:
		resultID, err = f.importArtifact(ctx, jobID, t, result.DualURL, domain.ModeDual)

	case domain.ModeTranslation:
		resultID, err = f.importArtifact(ctx, jobID, t, result.TranslationOnlyURL, domain.ModeTranslation)

	case domain.ModeAll:
		resultID, err = f.importArtifact(ctx, jobID, t, result.DualURL, domain.ModeDual)
		if err == nil {
			_, err = f.importArtifact(ctx, jobID, t, result.TranslationOnlyURL, domain.ModeTranslation)
		}

	default:
		err = fmt.Errorf("%w: %q", domain.ErrInvalidTranslateMode, t.TranslateMode)
	}
	if err != nil {
		return err
	}

	f.registry.Update(ctx, t.AttachmentID, func(task *domain.Task) {
		task.Status = domain.StatusSuccess
		task.Stage = "completed"
		task.Progress = 100
		task.ResultAttachmentID = resultID
	})

	f.logger.Info("translation result imported",
		"attachment_id", t.AttachmentID,
		"result_attachment_id", resultID,
		"job_id", jobID)
	return nil
}

// importArtifact downloads one result PDF, stages it on disk, and imports it
// as an attachment tagged with the result marker and the remote job ID. The
// import lands under the source's parent document when there is one, and
// into the source attachment's collections otherwise.
func (f *ResultFinalizer) importArtifact(
	ctx context.Context,
	jobID string,
	t *domain.Task,
	url string,
	mode string,
) (int64, error) {
	if url == "" {
		return 0, fmt.Errorf("job result is missing the %s artifact URL", mode)
	}

	data, err := f.client.DownloadFile(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s artifact: %w", mode, err)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("downloaded %s artifact is empty", mode)
	}

	filename := resultFilename(t, mode)
	// Prefix with the job ID so concurrent finalizations of same-named
	// sources never collide on the staging path.
	scratch := filepath.Join(f.scratchDir, jobID+"_"+filename)
	if err := os.WriteFile(scratch, data, 0o600); err != nil {
		return 0, fmt.Errorf("failed to stage %s artifact: %w", mode, err)
	}

	req := item.ImportRequest{
		FilePath:    scratch,
		Title:       filename,
		ContentType: item.PDFContentType,
	}
	if t.HasParent() {
		req.ParentID = t.ParentItemID
	} else {
		source, err := f.items.Get(ctx, t.AttachmentID)
		if err != nil {
			return 0, fmt.Errorf("failed to look up source attachment: %w", err)
		}
		req.Collections = source.Collections
	}

	imported, err := f.items.ImportAttachment(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s artifact: %w", mode, err)
	}

	if err := f.items.SetTags(ctx, imported.ID, []string{ResultMarkerTag, jobID}); err != nil {
		return 0, fmt.Errorf("failed to tag imported attachment: %w", err)
	}

	if err := os.Remove(scratch); err != nil {
		f.logger.Warn("failed to remove staged artifact", "path", scratch, "error", err)
	}

	f.logger.Debug("imported result artifact",
		"attachment_id", t.AttachmentID,
		"imported_id", imported.ID,
		"mode", mode,
		"filename", filename)
	return imported.ID, nil
}

// resultFilename derives the imported attachment's filename from the source
// filename, the target language, and the artifact mode:
// <base>_<language>_<mode>.pdf.
func resultFilename(t *domain.Task, mode string) string {
	base := strings.TrimSuffix(t.AttachmentFilename, filepath.Ext(t.AttachmentFilename))
	return fmt.Sprintf("%s_%s_%s.pdf", base, t.TargetLanguage, mode)
}
