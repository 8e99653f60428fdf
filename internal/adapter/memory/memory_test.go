package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/kashw/keepsake/internal/adapter"
)

func TestStore_WriteAndFetchRoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	content := []byte{0x00, 0x01, 0xff, 0xfe, 'a', 'b'}
	rev, err := s.WriteEntry(ctx, "photos/cat.jpg", content, "Upload: cat.jpg", "")
	if err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	if rev == "" {
		t.Fatal("expected non-empty revision")
	}

	e, err := s.FetchEntry(ctx, "photos/cat.jpg")
	if err != nil {
		t.Fatalf("FetchEntry failed: %v", err)
	}
	if !bytes.Equal(e.Content, content) {
		t.Errorf("content mismatch: got %v, want %v", e.Content, content)
	}
	if e.Revision != rev {
		t.Errorf("revision mismatch: got %q, want %q", e.Revision, rev)
	}
	if e.Kind != adapter.KindFile {
		t.Errorf("expected file kind, got %q", e.Kind)
	}
}

func TestStore_FetchEntry_NotFound(t *testing.T) {
	s := NewStore()

	_, err := s.FetchEntry(context.Background(), "photos/missing.jpg")
	if !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_WriteEntry_RevisionMismatch(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	rev, _ := s.WriteEntry(ctx, "db.json", []byte(`{}`), "init", "")

	// A stale token must be rejected.
	_, err := s.WriteEntry(ctx, "db.json", []byte(`{"a":1}`), "update", "stale")
	if !errors.Is(err, adapter.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}

	// The live token must be accepted and rotated.
	next, err := s.WriteEntry(ctx, "db.json", []byte(`{"a":1}`), "update", rev)
	if err != nil {
		t.Fatalf("WriteEntry with live revision failed: %v", err)
	}
	if next == rev {
		t.Error("expected revision to change after write")
	}
}

func TestStore_WriteEntry_RevisionOnMissingEntry(t *testing.T) {
	s := NewStore()

	_, err := s.WriteEntry(context.Background(), "db.json", []byte(`{}`), "update", "ghost")
	if !errors.Is(err, adapter.ErrPreconditionFailed) {
		t.Errorf("expected ErrPreconditionFailed for revision on missing entry, got %v", err)
	}
}

func TestStore_ListDirectory(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.WriteEntry(ctx, "photos/a.jpg", []byte("a"), "", "")
	s.WriteEntry(ctx, "photos/b.jpg", []byte("b"), "", "")
	s.WriteEntry(ctx, "photos/trip/c.jpg", []byte("c"), "", "")
	s.WriteEntry(ctx, "videos/d.mp4", []byte("d"), "", "")

	entries, err := s.ListDirectory(ctx, "photos")
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (2 files + 1 dir), got %d", len(entries))
	}

	var dirs, files int
	for _, e := range entries {
		if e.Kind == adapter.KindDir {
			dirs++
			if e.Name != "trip" {
				t.Errorf("unexpected directory %q", e.Name)
			}
		} else {
			files++
		}
	}
	if dirs != 1 || files != 2 {
		t.Errorf("expected 1 dir and 2 files, got %d dirs and %d files", dirs, files)
	}
}

func TestStore_ListDirectory_Absent(t *testing.T) {
	s := NewStore()

	_, err := s.ListDirectory(context.Background(), "photos/nope")
	if !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteEntry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.WriteEntry(ctx, "photos/gone.jpg", []byte("x"), "", "")
	if err := s.DeleteEntry(ctx, "photos/gone.jpg", "remove"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if _, err := s.FetchEntry(ctx, "photos/gone.jpg"); !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := s.DeleteEntry(ctx, "photos/gone.jpg", "again"); !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestStore_FetchEntry_ImpliedDirectory(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.WriteEntry(ctx, "photos/trip/a.jpg", []byte("a"), "", "")

	e, err := s.FetchEntry(ctx, "photos/trip")
	if err != nil {
		t.Fatalf("FetchEntry failed: %v", err)
	}
	if e.Kind != adapter.KindDir {
		t.Errorf("expected dir kind, got %q", e.Kind)
	}
}
