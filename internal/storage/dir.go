package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/apperr"
)

const tmpPrefix = ".othala-tmp-"

// Dir implements Backend on a directory tree: one directory per workspace
// namespace, one file per key.
type Dir struct {
	root  string // absolute path to the data directory
	quota int64
}

// NewDir creates a Dir backend rooted at the given directory, creating it if
// necessary.
func NewDir(root string, quota int64) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &Dir{root: abs, quota: quota}, nil
}

// Root returns the absolute data directory, used by the change watcher.
func (d *Dir) Root() string { return d.root }

func (d *Dir) Name() string { return "dir" }

// safePath resolves workspace/key against the root and rejects any result
// that escapes it (directory traversal).
func (d *Dir) safePath(workspace, key string) (string, error) {
	if workspace == "" {
		return "", fmt.Errorf("storage: empty workspace")
	}
	rel := workspace
	if key != "" {
		rel = workspace + "/" + key
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(d.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) && abs != d.root {
		return "", fmt.Errorf("storage: path escapes data root: %s", rel)
	}
	return abs, nil
}

// Put atomically writes data: tmp file → fsync → rename.
func (d *Dir) Put(ctx context.Context, workspace, key string, data []byte) error {
	abs, err := d.safePath(workspace, key)
	if err != nil {
		return err
	}
	if err := d.checkQuota(ctx, abs, int64(len(data))); err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

func (d *Dir) Get(_ context.Context, workspace, key string) ([]byte, error) {
	abs, err := d.safePath(workspace, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: %s/%s: %w", workspace, key, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s/%s: %w", workspace, key, err)
	}
	return data, nil
}

func (d *Dir) Delete(_ context.Context, workspace, key string) error {
	abs, err := d.safePath(workspace, key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s/%s: %w", workspace, key, err)
	}
	return nil
}

func (d *Dir) List(_ context.Context, workspace string) ([]string, error) {
	abs, err := d.safePath(workspace, "")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", workspace, err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

func (d *Dir) Drop(_ context.Context, workspace string) error {
	abs, err := d.safePath(workspace, "")
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: drop %s: %w", workspace, err)
	}
	return nil
}

func (d *Dir) Usage(_ context.Context) (int64, error) {
	var total int64
	err := filepath.WalkDir(d.root, func(p string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil || de.IsDir() {
			return walkErr
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: usage: %w", err)
	}
	return total, nil
}

func (d *Dir) Quota() int64 { return d.quota }

func (d *Dir) Close() error { return nil }

// checkQuota rejects a write that would push total usage past the configured
// quota. Replacing an existing entry only counts the size delta.
func (d *Dir) checkQuota(ctx context.Context, abs string, incoming int64) error {
	if d.quota <= 0 {
		return nil
	}
	used, err := d.Usage(ctx)
	if err != nil {
		return err
	}
	var existing int64
	if info, statErr := os.Stat(abs); statErr == nil {
		existing = info.Size()
	}
	if used-existing+incoming > d.quota {
		return fmt.Errorf("storage: write of %d bytes: %w", incoming, apperr.ErrQuotaExceeded)
	}
	return nil
}
