package workspace

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	dir, err := storage.NewDir(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(context.Background(), dir, testLogger(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func testServiceKV(t *testing.T, opts ...Option) *Service {
	t.Helper()
	kv, err := storage.OpenKV(filepath.Join(t.TempDir(), "kv.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	svc, err := NewService(context.Background(), kv, testLogger(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestNewServiceCreatesDefault(t *testing.T) {
	svc := testService(t)
	names, active, err := svc.Workspaces(context.Background())
	if err != nil {
		t.Fatalf("Workspaces: %v", err)
	}
	if len(names) != 1 || names[0] != DefaultWorkspace {
		t.Errorf("names = %v", names)
	}
	if active != DefaultWorkspace {
		t.Errorf("active = %q", active)
	}
}

func TestCreateSwitchDeleteWorkspace(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	if err := svc.CreateWorkspace(ctx, "Work"); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	if err := svc.CreateWorkspace(ctx, "Work"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create = %v, want ErrAlreadyExists", err)
	}

	if err := svc.SwitchWorkspace(ctx, "Work"); err != nil {
		t.Fatalf("SwitchWorkspace: %v", err)
	}
	active, _ := svc.ActiveWorkspace(ctx)
	if active != "Work" {
		t.Errorf("active = %q, want Work", active)
	}

	// Deleting the active workspace re-points active to the default.
	if err := svc.DeleteWorkspace(ctx, "Work"); err != nil {
		t.Fatalf("DeleteWorkspace: %v", err)
	}
	active, _ = svc.ActiveWorkspace(ctx)
	if active != DefaultWorkspace {
		t.Errorf("active after delete = %q, want %q", active, DefaultWorkspace)
	}
}

func TestDeleteDefaultWorkspaceRefused(t *testing.T) {
	svc := testService(t)
	err := svc.DeleteWorkspace(context.Background(), DefaultWorkspace)
	if !errors.Is(err, apperr.ErrDefaultWorkspace) {
		t.Errorf("err = %v, want ErrDefaultWorkspace", err)
	}
}

func TestDeleteWorkspaceRemovesAllRecords(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	_ = svc.CreateWorkspace(ctx, "Work")
	_, _, _ = svc.WriteFile(ctx, "Work", "a.md", []byte("a"), "")
	_, _, _ = svc.WriteFile(ctx, "Work", "sub/b.md", []byte("b"), "")

	if err := svc.DeleteWorkspace(ctx, "Work"); err != nil {
		t.Fatalf("DeleteWorkspace: %v", err)
	}

	// All content is gone from the backend namespace.
	keys, err := svc.Backend().List(ctx, "Work")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("leftover keys: %v", keys)
	}

	// Operations against it now report a missing workspace.
	if _, err := svc.ListFiles(ctx, "Work", "", "", ""); !errors.Is(err, apperr.ErrNoWorkspace) {
		t.Errorf("ListFiles = %v, want ErrNoWorkspace", err)
	}
}

func TestSwitchUnknownWorkspace(t *testing.T) {
	svc := testService(t)
	err := svc.SwitchWorkspace(context.Background(), "Nowhere")
	if !errors.Is(err, apperr.ErrNoWorkspace) {
		t.Errorf("err = %v, want ErrNoWorkspace", err)
	}
}

func TestWorkspaceNameValidation(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	bad := []string{"", ".hidden", "a/b", `a\b`, string(make([]byte, 65))}
	for _, name := range bad {
		if err := svc.CreateWorkspace(ctx, name); err == nil {
			t.Errorf("expected error for workspace name %q", name)
		}
	}
}

func TestInfo(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, "a.md", []byte("12345"), "")
	_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, "docs/b.md", []byte("123"), "")
	_ = svc.CreateFolder(ctx, DefaultWorkspace, "empty")

	info, err := svc.Info(ctx, DefaultWorkspace)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Backend != "dir" {
		t.Errorf("Backend = %q", info.Backend)
	}
	if info.Files != 2 {
		t.Errorf("Files = %d, want 2", info.Files)
	}
	if info.Folders != 2 {
		t.Errorf("Folders = %d, want 2", info.Folders)
	}
	if info.Bytes != 8 {
		t.Errorf("Bytes = %d, want 8", info.Bytes)
	}
	if info.Used < info.Bytes {
		t.Errorf("Used = %d, should cover content plus index", info.Used)
	}
	if info.Quota != 0 {
		t.Errorf("Quota = %d, want 0 for an unbounded store", info.Quota)
	}
}

func TestInfoReportsConfiguredQuota(t *testing.T) {
	ctx := context.Background()
	dir, err := storage.NewDir(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(ctx, dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	info, err := svc.Info(ctx, DefaultWorkspace)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Quota != 1<<20 {
		t.Errorf("Quota = %d, want %d", info.Quota, 1<<20)
	}
}

func TestNotifyEvents(t *testing.T) {
	ctx := context.Background()
	var events []string
	svc := testService(t, WithNotify(func(kind, workspace, path string) {
		events = append(events, kind)
	}))

	rec, _, _ := svc.WriteFile(ctx, DefaultWorkspace, "a.md", []byte("v1"), "")
	_, _, _ = svc.WriteFile(ctx, DefaultWorkspace, "a.md", []byte("v2"), "")
	_ = svc.DeleteFile(ctx, DefaultWorkspace, rec.ID)
	_ = svc.CreateWorkspace(ctx, "Other")

	want := []string{"file.created", "file.updated", "file.deleted", "workspace.changed"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}
