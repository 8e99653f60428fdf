// Package store builds the vault's two state layers on top of a
// ContentStore: the hierarchical file store for photo/video binaries and
// the document store for the account and letters.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kashw/keepsake/internal/adapter"
	"github.com/kashw/keepsake/internal/model"
)

// Category is a top-level memories tree. Only photos and videos exist.
type Category string

const (
	CategoryPhotos Category = "photos"
	CategoryVideos Category = "videos"
)

// placeholderName is the zero-byte marker that makes an otherwise-empty
// folder visible. The backend has no native empty-directory concept, so
// this file is the folder. It never appears in listings.
const placeholderName = ".keep"

// ParseCategory validates a raw category string from a request path.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryPhotos, CategoryVideos:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// FileStore emulates a folder hierarchy over the flat backend. It is the
// only component that knows about the placeholder convention.
type FileStore struct {
	backend adapter.ContentStore

	// now stamps upload names; replaced in tests.
	now func() time.Time
}

// NewFileStore creates a FileStore over the given backend.
func NewFileStore(backend adapter.ContentStore) *FileStore {
	return &FileStore{backend: backend, now: time.Now}
}

// List returns the visible entries of a virtual folder. A missing folder
// is an empty listing, not an error. Placeholder files are filtered out,
// and files get a proxy URL instead of any backend location.
func (s *FileStore) List(ctx context.Context, category Category, folder string) ([]model.Item, error) {
	entries, err := s.backend.ListDirectory(ctx, folderPath(category, folder))
	if errors.Is(err, adapter.ErrNotFound) {
		return []model.Item{}, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(entries))
	for _, e := range entries {
		if e.Name == placeholderName {
			continue
		}
		item := model.Item{
			Name:        e.Name,
			IsDirectory: e.Kind == adapter.KindDir,
			Path:        e.Path,
		}
		if !item.IsDirectory {
			item.URL = "/api/proxy?path=" + url.QueryEscape(e.Path)
		}
		items = append(items, item)
	}
	return items, nil
}

// CreateFolder makes an empty folder visible by writing its placeholder.
func (s *FileStore) CreateFolder(ctx context.Context, category Category, parent, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") || name == placeholderName {
		return fmt.Errorf("invalid folder name %q", name)
	}
	path := folderPath(category, parent) + "/" + name + "/" + placeholderName
	_, err := s.backend.WriteEntry(ctx, path, nil, "Create folder: "+name, "")
	return err
}

// Upload writes each file as {epoch-millis}-{name} under the folder,
// sequentially so each write's revision resolution stays accurate. On
// failure it returns how many files were committed before the error;
// earlier files stay written (no rollback).
func (s *FileStore) Upload(ctx context.Context, category Category, folder string, uploads []model.Upload) (int, error) {
	base := folderPath(category, folder)
	for i, up := range uploads {
		if up.Name == "" || strings.Contains(up.Name, "/") {
			return i, fmt.Errorf("invalid file name %q", up.Name)
		}
		name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), up.Name)
		if _, err := s.backend.WriteEntry(ctx, base+"/"+name, up.Content, "Upload: "+up.Name, ""); err != nil {
			return i, fmt.Errorf("uploading %s: %w", up.Name, err)
		}
	}
	return len(uploads), nil
}

// Fetch returns the raw bytes of a stored binary by full backend path.
// This backs the proxy endpoint; it is the only way stored content
// reaches a client.
func (s *FileStore) Fetch(ctx context.Context, path string) ([]byte, error) {
	e, err := s.backend.FetchEntry(ctx, path)
	if err != nil {
		return nil, err
	}
	if e.Kind != adapter.KindFile {
		return nil, fmt.Errorf("%w: %s", adapter.ErrNotFound, path)
	}
	return e.Content, nil
}

// CountFiles counts visible files at a category's top level. Does not
// descend into subfolders.
func (s *FileStore) CountFiles(ctx context.Context, category Category) (int, error) {
	items, err := s.List(ctx, category, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range items {
		if !item.IsDirectory {
			n++
		}
	}
	return n, nil
}

// folderPath joins a category and a virtual folder into a backend path.
// Empty folder means the category root.
func folderPath(category Category, folder string) string {
	p := string(category)
	if folder = strings.Trim(folder, "/"); folder != "" {
		p += "/" + folder
	}
	return p
}
