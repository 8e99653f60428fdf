// Package memory implements adapter.ContentStore as an in-process map.
// It backs tests and DEV_MODE runs, mirroring the remote backend's
// semantics: flat path addressing, opaque revisions regenerated on every
// write, directories inferred from path prefixes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kashw/keepsake/internal/adapter"
)

type file struct {
	content  []byte
	revision string
}

// Store is an in-memory ContentStore. The zero value is not usable; call
// NewStore.
type Store struct {
	mu    sync.RWMutex
	files map[string]*file
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{files: make(map[string]*file)}
}

// FetchEntry returns the file at path, or a directory entry when path is
// a prefix of stored files.
func (s *Store) FetchEntry(ctx context.Context, path string) (*adapter.Entry, error) {
	path = clean(path)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.files[path]; ok {
		content := make([]byte, len(f.content))
		copy(content, f.content)
		return &adapter.Entry{
			Name:     lastSegment(path),
			Path:     path,
			Kind:     adapter.KindFile,
			Size:     int64(len(content)),
			Revision: f.revision,
			Content:  content,
		}, nil
	}
	if s.hasChildrenLocked(path) {
		return &adapter.Entry{
			Name: lastSegment(path),
			Path: path,
			Kind: adapter.KindDir,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", adapter.ErrNotFound, path)
}

// WriteEntry stores content at path. A non-empty revision must match the
// stored one; an empty revision always wins (create-or-update).
func (s *Store) WriteEntry(ctx context.Context, path string, content []byte, message, revision string) (string, error) {
	path = clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.files[path]
	if revision != "" && (existing == nil || existing.revision != revision) {
		return "", fmt.Errorf("%w: %s", adapter.ErrPreconditionFailed, path)
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	next := uuid.New().String()
	s.files[path] = &file{content: stored, revision: next}
	return next, nil
}

// ListDirectory lists the immediate children of path: files stored
// directly under it and directories implied by deeper paths.
func (s *Store) ListDirectory(ctx context.Context, path string) ([]adapter.Entry, error) {
	path = clean(path)
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := path
	if prefix != "" {
		prefix += "/"
	}

	dirs := make(map[string]bool)
	var entries []adapter.Entry
	for p, f := range s.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			dirs[rest[:i]] = true
			continue
		}
		entries = append(entries, adapter.Entry{
			Name:     rest,
			Path:     p,
			Kind:     adapter.KindFile,
			Size:     int64(len(f.content)),
			Revision: f.revision,
		})
	}
	for name := range dirs {
		entries = append(entries, adapter.Entry{
			Name: name,
			Path: prefix + name,
			Kind: adapter.KindDir,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", adapter.ErrNotFound, path)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// DeleteEntry removes the file at path.
func (s *Store) DeleteEntry(ctx context.Context, path, message string) error {
	path = clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; !ok {
		return fmt.Errorf("%w: %s", adapter.ErrNotFound, path)
	}
	delete(s.files, path)
	return nil
}

func (s *Store) hasChildrenLocked(path string) bool {
	prefix := path
	if prefix != "" {
		prefix += "/"
	}
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func clean(path string) string {
	return strings.Trim(path, "/")
}

func lastSegment(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}
