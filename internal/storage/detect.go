package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

const (
	probeNamespace = ".probe"
	probeKey       = "probe"
)

// Detector probes whether the directory backend is fully functional. The
// probe is a real write/read/delete round trip; partial support is reported
// as unavailable since every write path depends on the full cycle. The
// result is memoized for the process lifetime.
type Detector struct {
	root  string
	quota int64

	once sync.Once
	dir  *Dir
	err  error
}

// NewDetector creates a detector for the given data root.
func NewDetector(root string, quota int64) *Detector {
	return &Detector{root: root, quota: quota}
}

// Detect runs the probe once and returns the directory backend on success.
func (d *Detector) Detect(ctx context.Context) (*Dir, bool) {
	d.once.Do(func() {
		d.dir, d.err = probe(ctx, d.root, d.quota)
	})
	return d.dir, d.err == nil
}

// Err returns the probe failure, or nil. Before Detect has run it reports
// the backend as unavailable, failing closed to the flat store.
func (d *Detector) Err() error {
	if d.dir == nil && d.err == nil {
		return fmt.Errorf("storage: detection has not run")
	}
	return d.err
}

func probe(ctx context.Context, root string, quota int64) (*Dir, error) {
	dir, err := NewDir(root, quota)
	if err != nil {
		return nil, err
	}

	payload := []byte("othala-probe")
	if err := dir.Put(ctx, probeNamespace, probeKey, payload); err != nil {
		return nil, fmt.Errorf("storage: probe write: %w", err)
	}
	got, err := dir.Get(ctx, probeNamespace, probeKey)
	if err != nil {
		return nil, fmt.Errorf("storage: probe read: %w", err)
	}
	if !bytes.Equal(got, payload) {
		return nil, fmt.Errorf("storage: probe read back %d bytes, want %d", len(got), len(payload))
	}
	if err := dir.Delete(ctx, probeNamespace, probeKey); err != nil {
		return nil, fmt.Errorf("storage: probe delete: %w", err)
	}
	if err := dir.Drop(ctx, probeNamespace); err != nil {
		return nil, fmt.Errorf("storage: probe cleanup: %w", err)
	}
	return dir, nil
}
