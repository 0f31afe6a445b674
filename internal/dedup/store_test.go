package dedup

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMarkIfNew(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := Key("page-1", "page.created")

	fresh, err := s.MarkIfNew(ctx, key, "page-1", "page.created")
	if err != nil {
		t.Fatalf("MarkIfNew() error = %v", err)
	}
	if !fresh {
		t.Error("first MarkIfNew() = false, want true")
	}

	fresh, err = s.MarkIfNew(ctx, key, "page-1", "page.created")
	if err != nil {
		t.Fatalf("MarkIfNew() error = %v", err)
	}
	if fresh {
		t.Error("second MarkIfNew() = true, want false (duplicate)")
	}
}

func TestForget(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := Key("page-2", "page.created")

	if _, err := s.MarkIfNew(ctx, key, "page-2", "page.created"); err != nil {
		t.Fatalf("MarkIfNew() error = %v", err)
	}
	if err := s.Forget(ctx, key); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}

	fresh, err := s.MarkIfNew(ctx, key, "page-2", "page.created")
	if err != nil {
		t.Fatalf("MarkIfNew() error = %v", err)
	}
	if !fresh {
		t.Error("MarkIfNew() after Forget() = false, want true")
	}
}

func TestKey(t *testing.T) {
	a := Key("page-1", "page.created")
	b := Key("page-1", "page.content_updated")
	c := Key("page-2", "page.created")

	if a == b || a == c {
		t.Error("keys for distinct deliveries must differ")
	}
	if a != Key("page-1", "page.created") {
		t.Error("key derivation must be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("Open(\"\") expected error")
	}
}
