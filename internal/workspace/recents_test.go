package workspace

import (
	"context"
	"testing"
)

func TestRecentsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	a, _, _ := svc.WriteFile(ctx, DefaultWorkspace, "a.md", []byte("a"), "")
	b, _, _ := svc.WriteFile(ctx, DefaultWorkspace, "b.md", []byte("b"), "")

	entries, err := svc.Recents(ctx)
	if err != nil {
		t.Fatalf("Recents: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].ID != b.ID || entries[1].ID != a.ID {
		t.Errorf("order wrong: %+v", entries)
	}
}

func TestRecentsDedupMovesToFront(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	a, _, _ := svc.WriteFile(ctx, DefaultWorkspace, "a.md", []byte("a"), "")
	_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, "b.md", []byte("b"), "")

	// Re-open a: it moves to the front, no duplicate.
	_, _, _ = svc.ReadFile(ctx, DefaultWorkspace, a.ID)

	entries, _ := svc.Recents(ctx)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(entries), entries)
	}
	if entries[0].ID != a.ID {
		t.Errorf("front = %q, want %q", entries[0].ID, a.ID)
	}
}

func TestRecentsCapped(t *testing.T) {
	ctx := context.Background()
	svc := testService(t, WithRecentsLimit(3))

	for _, p := range []string{"a.md", "b.md", "c.md", "d.md", "e.md"} {
		_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, p, []byte(p), "")
	}

	entries, _ := svc.Recents(ctx)
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Path != "e.md" {
		t.Errorf("front = %q, want e.md", entries[0].Path)
	}
}

func TestRecentsSpanWorkspaces(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	_ = svc.CreateWorkspace(ctx, "Work")
	_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, "home.md", []byte("h"), "")
	_, _, _ = svc.WriteFile(ctx, "Work", "job.md", []byte("j"), "")

	entries, _ := svc.Recents(ctx)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Workspace != "Work" || entries[1].Workspace != DefaultWorkspace {
		t.Errorf("workspaces = %q, %q", entries[0].Workspace, entries[1].Workspace)
	}
}

func TestDeleteWorkspacePrunesRecents(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	_ = svc.CreateWorkspace(ctx, "Temp")
	_, _, _ = svc.WriteFile(ctx, "Temp", "t.md", []byte("t"), "")
	_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, "keep.md", []byte("k"), "")

	_ = svc.DeleteWorkspace(ctx, "Temp")

	entries, _ := svc.Recents(ctx)
	if len(entries) != 1 || entries[0].Workspace != DefaultWorkspace {
		t.Errorf("entries = %+v", entries)
	}
}

func TestPushRecentExplicit(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	rec, _, _ := svc.WriteFile(ctx, DefaultWorkspace, "x.md", []byte("x"), "")
	if err := svc.PushRecent(ctx, DefaultWorkspace, rec.ID); err != nil {
		t.Fatalf("PushRecent: %v", err)
	}
	if err := svc.PushRecent(ctx, DefaultWorkspace, "no-such-id"); err == nil {
		t.Error("expected error for unknown id")
	}
}
