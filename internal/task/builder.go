package task

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/tbellam/translateq/internal/domain"
	"github.com/tbellam/translateq/internal/item"
)

// resultFilenamePattern matches the filenames the finalizer gives imported
// results (<base>_<language>_<mode>.pdf). Attachments named this way are
// never re-translated even if their marker tag was stripped.
var resultFilenamePattern = regexp.MustCompile(`_[A-Za-z0-9-]+_(dual|translation)\.pdf$`)

// JobDefaults is the job configuration applied to new tasks when the
// submission carries no overrides.
type JobDefaults struct {
	TargetLanguage       string
	TranslateModel       string
	TranslateMode        string
	EnhanceCompatibility bool
}

// SubmitOptions carries per-batch overrides confirmed by the user at
// submission time. Empty fields fall back to the configured defaults; the
// resolved values apply to every task in the batch.
type SubmitOptions struct {
	TargetLanguage       string `json:"target_language,omitempty"`
	TranslateModel       string `json:"translate_model,omitempty"`
	TranslateMode        string `json:"translate_mode,omitempty"`
	EnhanceCompatibility *bool  `json:"enhance_compatibility,omitempty"`
}

// Builder turns a library selection into new task records, applying the
// dedup rules and the current job configuration. A bad item in a
// multi-selection never blocks the rest: problems are logged and skipped,
// and no failed task record is created for inputs that were filtered out.
type Builder struct {
	items    item.Store
	registry *Registry
	defaults JobDefaults
	logger   *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(items item.Store, registry *Registry, defaults JobDefaults, logger *slog.Logger) *Builder {
	return &Builder{
		items:    items,
		registry: registry,
		defaults: defaults,
		logger:   logger.With("component", "task_builder"),
	}
}

// Build expands the selected item IDs into translation tasks. Documents
// contribute all of their eligible PDF attachments; directly selected
// attachments contribute themselves, under their parent document if they
// have a valid one or as a standalone unit otherwise.
func (b *Builder) Build(ctx context.Context, selection []int64, opts SubmitOptions) []*domain.Task {
	resolved := b.resolveOptions(opts)

	var tasks []*domain.Task
	for _, id := range selection {
		ref, err := b.items.Get(ctx, id)
		if err != nil {
			b.logger.Warn("skipping unknown item in selection", "item_id", id, "error", err)
			continue
		}

		var parent item.Ref
		var candidates []item.Ref

		switch {
		case ref.IsDocument():
			parent = ref
			attachments, err := b.items.Attachments(ctx, ref.ID)
			if err != nil {
				b.logger.Warn("skipping document, cannot list attachments",
					"item_id", ref.ID, "error", err)
				continue
			}
			candidates = attachments

		case ref.IsAttachment():
			if ref.ParentID > 0 {
				p, err := b.items.Get(ctx, ref.ParentID)
				if err != nil || !p.IsDocument() {
					b.logger.Warn("skipping attachment with invalid parent",
						"item_id", ref.ID, "parent_id", ref.ParentID)
					continue
				}
				parent = p
			}
			candidates = []item.Ref{ref}

		default:
			continue
		}

		for _, att := range candidates {
			if !b.eligible(att) {
				continue
			}
			if b.registry.IsActive(att.ID) {
				b.logger.Debug("skipping attachment with active task",
					"attachment_id", att.ID, "filename", att.Filename)
				continue
			}
			if !att.FileExists() {
				b.logger.Warn("skipping attachment, source file missing on disk",
					"attachment_id", att.ID, "filename", att.Filename)
				continue
			}

			t, err := domain.NewTask(domain.NewTaskParams{
				AttachmentID:         att.ID,
				ParentItemID:         parent.ID,
				ParentItemTitle:      parent.Title,
				AttachmentFilename:   att.Filename,
				AttachmentPath:       att.Path,
				TargetLanguage:       resolved.TargetLanguage,
				TranslateModel:       resolved.TranslateModel,
				TranslateMode:        resolved.TranslateMode,
				EnhanceCompatibility: resolved.EnhanceCompatibility,
			})
			if err != nil {
				b.logger.Warn("skipping attachment, invalid task data",
					"attachment_id", att.ID, "error", err)
				continue
			}
			tasks = append(tasks, t)
		}
	}

	b.logger.Info("built translation tasks", "selection_size", len(selection), "task_count", len(tasks))
	return tasks
}

// eligible filters out everything that must never be translated: non-PDF
// attachments, attachments carrying the result marker tag, and attachments
// whose filename already follows the result naming convention.
func (b *Builder) eligible(att item.Ref) bool {
	if !att.IsAttachment() || att.ContentType != item.PDFContentType {
		return false
	}
	if att.HasTag(ResultMarkerTag) {
		b.logger.Debug("skipping attachment, already a translation result",
			"attachment_id", att.ID, "filename", att.Filename)
		return false
	}
	if resultFilenamePattern.MatchString(att.Filename) {
		b.logger.Debug("skipping attachment, filename matches result pattern",
			"attachment_id", att.ID, "filename", att.Filename)
		return false
	}
	return true
}

func (b *Builder) resolveOptions(opts SubmitOptions) JobDefaults {
	resolved := b.defaults
	if opts.TargetLanguage != "" {
		resolved.TargetLanguage = opts.TargetLanguage
	}
	if opts.TranslateModel != "" {
		resolved.TranslateModel = opts.TranslateModel
	}
	if opts.TranslateMode != "" {
		resolved.TranslateMode = opts.TranslateMode
	}
	if opts.EnhanceCompatibility != nil {
		resolved.EnhanceCompatibility = *opts.EnhanceCompatibility
	}
	return resolved
}
