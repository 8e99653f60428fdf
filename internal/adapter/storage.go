package adapter

import (
	"context"
)

// EntryKind distinguishes files from directories in listings.
type EntryKind string

const (
	KindFile EntryKind = "file"
	KindDir  EntryKind = "dir"
)

// Entry is a stored object (or directory) addressed by path. Content is
// raw bytes; any transport encoding is the backend's concern. Revision is
// the backend-assigned optimistic-concurrency token; it changes on every
// write and is required to overwrite an existing entry.
type Entry struct {
	Name     string
	Path     string
	Kind     EntryKind
	Size     int64
	Revision string
	Content  []byte
}

// ContentStore defines the interface for a versioned, path-addressed blob
// backend. This abstraction allows switching between backends (GitHub
// contents, in-memory) without changing the store layer.
type ContentStore interface {
	// FetchEntry retrieves an entry with its decoded content.
	// Returns ErrNotFound when the path does not exist.
	FetchEntry(ctx context.Context, path string) (*Entry, error)

	// WriteEntry creates or updates the entry at path and returns the new
	// revision token. A non-empty revision makes the write conditional:
	// the backend rejects it with ErrPreconditionFailed if the entry has
	// moved on. An empty revision tells the adapter to resolve the
	// current token itself by fetching immediately before writing.
	WriteEntry(ctx context.Context, path string, content []byte, message, revision string) (string, error)

	// ListDirectory lists the immediate children of a directory, metadata
	// only. Returns ErrNotFound when the directory does not exist.
	ListDirectory(ctx context.Context, path string) ([]Entry, error)

	// DeleteEntry removes the entry at path, resolving its current
	// revision first. Returns ErrNotFound when absent.
	DeleteEntry(ctx context.Context, path, message string) error
}
