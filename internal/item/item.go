// Package item defines the item store consumed by the translation engine:
// a library of documents and their file attachments. The engine only reads
// items, imports result attachments, and tags them; everything else about
// the hosting library is out of scope.
package item

import (
	"context"
	"errors"
	"os"
)

// Kind distinguishes documents from file attachments.
type Kind string

const (
	KindDocument   Kind = "document"
	KindAttachment Kind = "attachment"
)

// PDFContentType is the only attachment content type the engine translates.
const PDFContentType = "application/pdf"

// Common item store errors.
var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidItem  = errors.New("invalid item data")
)

// Ref is a snapshot of a single library item. Attachment refs carry the
// on-disk path of their file; document refs carry a title and own
// attachments.
type Ref struct {
	ID          int64    `json:"id"`
	ParentID    int64    `json:"parent_id,omitempty"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title,omitempty"`
	Filename    string   `json:"filename,omitempty"`
	Path        string   `json:"path,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Collections []int64  `json:"collections,omitempty"`
}

// IsDocument reports whether the ref is a regular document.
func (r Ref) IsDocument() bool {
	return r.Kind == KindDocument
}

// IsAttachment reports whether the ref is a file attachment.
func (r Ref) IsAttachment() bool {
	return r.Kind == KindAttachment
}

// HasTag reports whether the item carries the given tag.
func (r Ref) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FileExists reports whether the attachment's file is present on disk.
// Documents have no file and always report false.
func (r Ref) FileExists() bool {
	if r.Path == "" {
		return false
	}
	info, err := os.Stat(r.Path)
	return err == nil && !info.IsDir()
}

// ImportRequest describes a result attachment to add to the library.
// Exactly one of ParentID or Collections anchors the new attachment:
// results of orphan attachments land in the source's own collections.
type ImportRequest struct {
	FilePath    string
	ParentID    int64
	Collections []int64
	Title       string
	ContentType string
}

// Store is the library surface the engine consumes.
type Store interface {
	// Get returns the item with the given ID.
	Get(ctx context.Context, id int64) (Ref, error)

	// Attachments returns the file attachments of a document, in
	// insertion order.
	Attachments(ctx context.Context, itemID int64) ([]Ref, error)

	// ImportAttachment copies the file at req.FilePath into the library
	// and returns the new attachment's ref.
	ImportAttachment(ctx context.Context, req ImportRequest) (Ref, error)

	// SetTags replaces the tags of an item.
	SetTags(ctx context.Context, id int64, tags []string) error
}
