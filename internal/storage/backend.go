// Package storage provides workspace-namespaced blob persistence behind a
// single Backend interface with two implementations: a hierarchical directory
// store and a flat SQLite key-value store.
package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend is the blob storage contract. Entries are addressed by an opaque
// key within a workspace namespace; the logical file path never reaches this
// layer. Business logic must not branch on the concrete implementation.
type Backend interface {
	// Name identifies the backend ("dir" or "kv") for diagnostics.
	Name() string
	// Put stores data under (workspace, key) with whole-value replace semantics.
	Put(ctx context.Context, workspace, key string, data []byte) error
	// Get returns the stored bytes, or apperr.ErrNotFound.
	Get(ctx context.Context, workspace, key string) ([]byte, error)
	// Delete removes an entry. Deleting an absent entry is not an error.
	Delete(ctx context.Context, workspace, key string) error
	// List returns every key stored in the workspace namespace.
	List(ctx context.Context, workspace string) ([]string, error)
	// Drop removes the entire workspace namespace and everything in it.
	Drop(ctx context.Context, workspace string) error
	// Usage returns the total stored bytes across all namespaces.
	Usage(ctx context.Context) (int64, error)
	// Quota returns the configured byte limit, or zero when unbounded.
	Quota() int64
	Close() error
}

// Backend preference values accepted by Open.
const (
	PreferAuto = "auto"
	PreferDir  = "dir"
	PreferKV   = "kv"
)

// Options configures backend selection.
type Options struct {
	// Prefer is "auto", "dir", or "kv".
	Prefer string
	// Root is the directory backend's data directory.
	Root string
	// SQLitePath is the KV backend's database file.
	SQLitePath string
	// Quota, when positive, bounds total stored bytes per backend.
	Quota int64
}

// Open selects and opens a backend. With "auto" the directory backend is
// probed with a real write/read/delete round trip and used only on full
// success; anything less falls back to the KV store, whose single-statement
// writes are the safer default.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Backend, error) {
	switch opts.Prefer {
	case PreferDir:
		return NewDir(opts.Root, opts.Quota)
	case PreferKV:
		return OpenKV(opts.SQLitePath, opts.Quota)
	case "", PreferAuto:
	default:
		return nil, fmt.Errorf("storage: unknown backend preference %q", opts.Prefer)
	}

	d := NewDetector(opts.Root, opts.Quota)
	if dir, ok := d.Detect(ctx); ok {
		return dir, nil
	}
	if logger != nil {
		logger.Warn("storage: directory backend unavailable, falling back to kv",
			slog.String("root", opts.Root),
			slog.String("error", d.Err().Error()))
	}
	return OpenKV(opts.SQLitePath, opts.Quota)
}
