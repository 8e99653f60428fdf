package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kashw/keepsake/internal/adapter"
	"github.com/kashw/keepsake/internal/auth"
	"github.com/kashw/keepsake/internal/model"
)

// documentPath is where the JSON document lives in the backend.
const documentPath = "db.json"

// casAttempts bounds the fetch/modify/write retry loop. Two writers on a
// private vault rarely collide; three rounds is plenty before giving up.
const casAttempts = 3

var (
	// ErrAccountExists is returned by Register when the deployment
	// already has its account.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidCredentials covers every login failure mode uniformly so
	// responses never reveal whether the account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DocumentStore manages db.json through read-modify-write cycles against
// the backend. Every mutation runs a bounded compare-and-swap loop on the
// document's revision token, so two racing writers cannot silently drop
// each other's change: the loser re-reads and reapplies.
type DocumentStore struct {
	backend adapter.ContentStore
	files   *FileStore

	// now stamps letter ids and dates; replaced in tests.
	now func() time.Time
}

// NewDocumentStore creates a DocumentStore. The FileStore is consulted
// only for Stats.
func NewDocumentStore(backend adapter.ContentStore, files *FileStore) *DocumentStore {
	return &DocumentStore{backend: backend, files: files, now: time.Now}
}

// Load fetches the current document and its revision token. A missing
// document reads as the zero document with an empty token; that is never
// an error.
func (s *DocumentStore) Load(ctx context.Context) (model.Document, string, error) {
	e, err := s.backend.FetchEntry(ctx, documentPath)
	if errors.Is(err, adapter.ErrNotFound) {
		return model.Document{Letters: []model.Letter{}}, "", nil
	}
	if err != nil {
		return model.Document{}, "", err
	}

	var doc model.Document
	if err := json.Unmarshal(e.Content, &doc); err != nil {
		return model.Document{}, "", fmt.Errorf("decoding %s: %w", documentPath, err)
	}
	if doc.Letters == nil {
		doc.Letters = []model.Letter{}
	}
	return doc, e.Revision, nil
}

// mutate runs fn over a fresh copy of the document and writes the result
// conditionally on the revision it read. On a revision conflict it
// re-reads and reapplies fn, up to casAttempts times. fn must be safe to
// call multiple times.
func (s *DocumentStore) mutate(ctx context.Context, message string, fn func(doc *model.Document) error) error {
	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		doc, revision, err := s.Load(ctx)
		if err != nil {
			return err
		}
		if err := fn(&doc); err != nil {
			return err
		}

		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", documentPath, err)
		}

		_, err = s.backend.WriteEntry(ctx, documentPath, payload, message, revision)
		if err == nil {
			return nil
		}
		if !errors.Is(err, adapter.ErrPreconditionFailed) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("document write contended after %d attempts: %w", casAttempts, lastErr)
}

// Register creates the deployment's single account. Fails with
// ErrAccountExists when one is already present; the stored account is
// never altered by a failed attempt.
func (s *DocumentStore) Register(ctx context.Context, username, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "Register account", func(doc *model.Document) error {
		if doc.Account != nil {
			return ErrAccountExists
		}
		doc.Account = &model.Account{Username: username, PasswordHash: hash}
		return nil
	})
}

// Authenticate checks the credentials against the stored account. Every
// failure mode returns ErrInvalidCredentials.
func (s *DocumentStore) Authenticate(ctx context.Context, username, password string) error {
	doc, _, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if doc.Account == nil || doc.Account.Username != username {
		return ErrInvalidCredentials
	}
	if !auth.CheckPassword(doc.Account.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

// AddLetter creates a letter and prepends it, keeping the collection
// newest-first.
func (s *DocumentStore) AddLetter(ctx context.Context, title, content string) (model.Letter, error) {
	created := s.now()
	letter := model.Letter{
		ID:      strconv.FormatInt(created.UnixMilli(), 10),
		Title:   title,
		Content: content,
		Date:    created.Format("January 2, 2006"),
	}
	err := s.mutate(ctx, "New letter", func(doc *model.Document) error {
		doc.Letters = append([]model.Letter{letter}, doc.Letters...)
		return nil
	})
	if err != nil {
		return model.Letter{}, err
	}
	return letter, nil
}

// Letters returns the stored letters, newest first.
func (s *DocumentStore) Letters(ctx context.Context) ([]model.Letter, error) {
	doc, _, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Letters, nil
}

// Stats counts letters from the document and photos/videos from the
// category roots (non-recursive, placeholders excluded).
func (s *DocumentStore) Stats(ctx context.Context) (model.Stats, error) {
	doc, _, err := s.Load(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	photos, err := s.files.CountFiles(ctx, CategoryPhotos)
	if err != nil {
		return model.Stats{}, err
	}
	videos, err := s.files.CountFiles(ctx, CategoryVideos)
	if err != nil {
		return model.Stats{}, err
	}
	return model.Stats{Photos: photos, Videos: videos, Letters: len(doc.Letters)}, nil
}
