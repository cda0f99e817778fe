package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectSucceedsOnWritableRoot(t *testing.T) {
	d := NewDetector(t.TempDir(), 0)
	dir, ok := d.Detect(context.Background())
	if !ok {
		t.Fatalf("Detect failed: %v", d.Err())
	}
	if dir == nil {
		t.Fatal("Detect returned nil dir")
	}

	// Probe namespace must be cleaned up.
	if _, err := os.Stat(filepath.Join(dir.Root(), probeNamespace)); !os.IsNotExist(err) {
		t.Errorf("probe namespace left behind: %v", err)
	}
}

func TestDetectFailsWhenRootIsFile(t *testing.T) {
	f, err := os.CreateTemp("", "othala-detect-*")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	defer os.Remove(f.Name())

	d := NewDetector(f.Name(), 0)
	if _, ok := d.Detect(context.Background()); ok {
		t.Fatal("expected detection failure")
	}
	if d.Err() == nil {
		t.Error("Err should report the probe failure")
	}
}

func TestDetectMemoized(t *testing.T) {
	root := t.TempDir()
	d := NewDetector(root, 0)
	first, ok := d.Detect(context.Background())
	if !ok {
		t.Fatalf("Detect: %v", d.Err())
	}
	second, _ := d.Detect(context.Background())
	if first != second {
		t.Error("Detect should memoize its result")
	}
}

func TestDetectorErrBeforeDetect(t *testing.T) {
	d := NewDetector(t.TempDir(), 0)
	if d.Err() == nil {
		t.Error("Err before Detect should report unavailable")
	}
}
