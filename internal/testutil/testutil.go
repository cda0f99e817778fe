// Package testutil provides shared test helpers for setting up storage backends and services.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/workspace"
)

// Logger returns a quiet logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDir creates a temporary directory backend that is automatically cleaned up.
func TestDir(t *testing.T) *storage.Dir {
	t.Helper()
	dir, err := storage.NewDir(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

// TestKV creates a temporary SQLite key-value backend that is automatically cleaned up.
func TestKV(t *testing.T) *storage.KV {
	t.Helper()
	kv, err := storage.OpenKV(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

// TestService creates a workspace service backed by a directory backend.
func TestService(t *testing.T, opts ...workspace.Option) *workspace.Service {
	t.Helper()
	svc, err := workspace.NewService(context.Background(), TestDir(t), Logger(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}
