package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tbellam/translateq/internal/item"
)

// ItemStore is the item.Store over the items table. Imported attachment
// files are copied under filesDir, one file per attachment.
type ItemStore struct {
	db       *DB
	filesDir string
}

// NewItemStore creates an ItemStore that keeps imported files under
// filesDir.
func NewItemStore(db *DB, filesDir string) *ItemStore {
	return &ItemStore{db: db, filesDir: filesDir}
}

// Get returns the item with the given ID.
func (s *ItemStore) Get(ctx context.Context, id int64) (item.Ref, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, parent_id, kind, title, filename, path, content_type, tags, collections
		 FROM items WHERE id = ?`, id)
	return scanRef(row)
}

// Attachments returns the file attachments of a document, in insertion
// order.
func (s *ItemStore) Attachments(ctx context.Context, itemID int64) ([]item.Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, kind, title, filename, path, content_type, tags, collections
		 FROM items WHERE parent_id = ? AND kind = ? ORDER BY id`,
		itemID, string(item.KindAttachment))
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var out []item.Ref
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// List returns every library item in insertion order.
func (s *ItemStore) List(ctx context.Context) ([]item.Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, kind, title, filename, path, content_type, tags, collections
		 FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []item.Ref
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ImportAttachment copies the file at req.FilePath under the library files
// directory and records the new attachment.
func (s *ItemStore) ImportAttachment(ctx context.Context, req item.ImportRequest) (item.Ref, error) {
	ref := item.Ref{
		ParentID:    req.ParentID,
		Kind:        item.KindAttachment,
		Title:       req.Title,
		Filename:    req.Title,
		ContentType: req.ContentType,
		Collections: req.Collections,
	}

	id, err := s.insert(ctx, ref)
	if err != nil {
		return item.Ref{}, err
	}
	ref.ID = id

	dest := filepath.Join(s.filesDir, fmt.Sprintf("%d_%s", id, req.Title))
	if err := copyFile(req.FilePath, dest); err != nil {
		return item.Ref{}, fmt.Errorf("failed to copy attachment file: %w", err)
	}
	ref.Path = dest

	if _, err := s.db.ExecContext(ctx, "UPDATE items SET path = ? WHERE id = ?", dest, id); err != nil {
		return item.Ref{}, fmt.Errorf("failed to record attachment path: %w", err)
	}
	return ref, nil
}

// SetTags replaces the tags of an item.
func (s *ItemStore) SetTags(ctx context.Context, id int64, tags []string) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE items SET tags = ? WHERE id = ?", string(data), id)
	if err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return item.ErrItemNotFound
	}
	return nil
}

// Create registers an item as given, without touching any file. The control
// surface uses it to add documents and existing on-disk attachments to the
// library.
func (s *ItemStore) Create(ctx context.Context, ref item.Ref) (item.Ref, error) {
	if ref.Kind != item.KindDocument && ref.Kind != item.KindAttachment {
		return item.Ref{}, fmt.Errorf("%w: unknown kind %q", item.ErrInvalidItem, ref.Kind)
	}

	id, err := s.insert(ctx, ref)
	if err != nil {
		return item.Ref{}, err
	}
	ref.ID = id
	return ref, nil
}

func (s *ItemStore) insert(ctx context.Context, ref item.Ref) (int64, error) {
	tags, err := json.Marshal(orEmpty(ref.Tags))
	if err != nil {
		return 0, fmt.Errorf("failed to encode tags: %w", err)
	}
	collections, err := json.Marshal(orEmptyInt64(ref.Collections))
	if err != nil {
		return 0, fmt.Errorf("failed to encode collections: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (parent_id, kind, title, filename, path, content_type, tags, collections)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.ParentID, string(ref.Kind), ref.Title, ref.Filename, ref.Path,
		ref.ContentType, string(tags), string(collections))
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}
	return res.LastInsertId()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRef(row rowScanner) (item.Ref, error) {
	var (
		ref         item.Ref
		kind        string
		tags        string
		collections string
	)
	err := row.Scan(&ref.ID, &ref.ParentID, &kind, &ref.Title, &ref.Filename,
		&ref.Path, &ref.ContentType, &tags, &collections)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Ref{}, item.ErrItemNotFound
	}
	if err != nil {
		return item.Ref{}, fmt.Errorf("failed to scan item: %w", err)
	}

	ref.Kind = item.Kind(kind)
	if err := json.Unmarshal([]byte(tags), &ref.Tags); err != nil {
		return item.Ref{}, fmt.Errorf("%w: bad tags for item %d: %v", item.ErrInvalidItem, ref.ID, err)
	}
	if err := json.Unmarshal([]byte(collections), &ref.Collections); err != nil {
		return item.Ref{}, fmt.Errorf("%w: bad collections for item %d: %v", item.ErrInvalidItem, ref.ID, err)
	}
	return ref, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyInt64(s []int64) []int64 {
	if s == nil {
		return []int64{}
	}
	return s
}
