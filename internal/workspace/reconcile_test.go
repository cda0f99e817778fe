package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/othala/internal/apperr"
)

func TestReconcileCleanWorkspace(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, "a.md", []byte("a"), "")

	res, err := svc.Reconcile(ctx, DefaultWorkspace)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Refreshed+res.Dropped+res.Reclaimed != 0 {
		t.Errorf("clean workspace repaired something: %+v", res)
	}
}

func TestReconcileDropsDanglingRecords(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	rec, _, _ := svc.WriteFile(ctx, DefaultWorkspace, "dangling.md", []byte("x"), "")

	// Remove the content behind the index's back.
	if err := svc.Backend().Delete(ctx, DefaultWorkspace, rec.ID); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Reconcile(ctx, DefaultWorkspace)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", res.Dropped)
	}
	if _, _, err := svc.ReadFile(ctx, DefaultWorkspace, rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("dangling record survived: %v", err)
	}
}

func TestReconcileReclaimsOrphanBlobs(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	// A blob no record references, as left by a crash between content write
	// and index save.
	if err := svc.Backend().Put(ctx, DefaultWorkspace, "orphan-blob", []byte("lost")); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Reconcile(ctx, DefaultWorkspace)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Reclaimed != 1 {
		t.Errorf("Reclaimed = %d, want 1", res.Reclaimed)
	}
	if _, err := svc.Backend().Get(ctx, DefaultWorkspace, "orphan-blob"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("orphan survived: %v", err)
	}
}

func TestReconcileRefreshesExternalEdits(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	rec, _, _ := svc.WriteFile(ctx, DefaultWorkspace, "edited.md", []byte("# Old"), "")

	// Simulate an external editor rewriting the blob directly.
	if err := svc.Backend().Put(ctx, DefaultWorkspace, rec.ID, []byte("# New Title\nfresh body")); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Reconcile(ctx, DefaultWorkspace)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Refreshed != 1 {
		t.Errorf("Refreshed = %d, want 1", res.Refreshed)
	}

	got, _, _ := svc.ReadFile(ctx, DefaultWorkspace, rec.ID)
	if got.Title != "New Title" {
		t.Errorf("Title = %q, want New Title", got.Title)
	}
	if got.Size != int64(len("# New Title\nfresh body")) {
		t.Errorf("Size = %d", got.Size)
	}
}

func TestReconcileAll(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	_ = svc.CreateWorkspace(ctx, "Work")
	_, _, _ = svc.WriteFile(ctx, "Work", "w.md", []byte("w"), "")
	_ = svc.Backend().Put(ctx, "Work", "stray", []byte("s"))

	if err := svc.ReconcileAll(ctx); err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if _, err := svc.Backend().Get(ctx, "Work", "stray"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stray blob survived: %v", err)
	}
}
