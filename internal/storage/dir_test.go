package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDirTraversalBlocked(t *testing.T) {
	ctx := context.Background()
	d, err := NewDir(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	cases := []struct{ workspace, key string }{
		{"..", "escape"},
		{"ws", "../../etc/passwd"},
		{"/etc", "shadow"},
	}
	for _, c := range cases {
		if err := d.Put(ctx, c.workspace, c.key, []byte("x")); err == nil {
			t.Errorf("expected error for write to %s/%s", c.workspace, c.key)
		}
		if _, err := d.Get(ctx, c.workspace, c.key); err == nil {
			t.Errorf("expected error for read of %s/%s", c.workspace, c.key)
		}
	}
}

func TestDirEmptyWorkspaceRejected(t *testing.T) {
	ctx := context.Background()
	d, _ := NewDir(t.TempDir(), 0)
	if err := d.Put(ctx, "", "k", []byte("x")); err == nil {
		t.Error("expected error for empty workspace")
	}
}

func TestDirAtomicWriteNoLeftovers(t *testing.T) {
	ctx := context.Background()
	d, _ := NewDir(t.TempDir(), 0)

	_ = d.Put(ctx, "ws", "atomic", []byte("original content"))
	if err := d.Put(ctx, "ws", "atomic", []byte("updated content")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := d.Get(ctx, "ws", "atomic")
	if string(got) != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(d.Root(), "ws", tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestDirListSkipsTempFiles(t *testing.T) {
	ctx := context.Background()
	d, _ := NewDir(t.TempDir(), 0)
	_ = d.Put(ctx, "ws", "real", []byte("x"))

	// Simulate a crashed write.
	stray := filepath.Join(d.Root(), "ws", tmpPrefix+"123")
	if err := os.WriteFile(stray, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	keys, err := d.List(ctx, "ws")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 || keys[0] != "real" {
		t.Errorf("keys = %v, want [real]", keys)
	}
}

func TestNewDirRootIsFile(t *testing.T) {
	f, err := os.CreateTemp("", "othala-test-*")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewDir(f.Name(), 0); err == nil {
		t.Error("expected error when root is a file")
	}
}
