package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
)

// ListFiles returns the workspace's records, optionally filtered to a folder
// (including its sub-folders), sorted by the given field and order. Folder
// markers never appear in listings.
func (s *Service) ListFiles(ctx context.Context, workspace, folder, sortBy, order string) ([]index.FileRecord, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, err
	}
	out := make([]index.FileRecord, 0, len(records))
	for _, r := range records {
		if r.IsFolder {
			continue
		}
		if folder != "" && r.Folder != folder && !strings.HasPrefix(r.Folder, folder+"/") {
			continue
		}
		out = append(out, r)
	}
	index.SortRecords(out, sortBy, order)
	return out, nil
}

// ReadFile resolves a record by id and returns it with its content bytes.
// Every successful read pushes a recents entry.
func (s *Service) ReadFile(ctx context.Context, workspace, id string) (*index.FileRecord, []byte, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, nil, err
	}
	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, nil, err
	}
	rec := index.Find(records, id)
	if rec == nil || rec.IsFolder {
		return nil, nil, fmt.Errorf("file %q: %w", id, apperr.ErrNotFound)
	}
	content, err := s.backend.Get(ctx, workspace, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.pushRecent(ctx, workspace, *rec); err != nil {
		s.logger.Warn("workspace: push recent failed",
			slog.String("workspace", workspace), slog.String("id", id), slog.String("error", err.Error()))
	}
	return rec, content, nil
}

// WriteFile upserts by path: an existing record at the path is updated in
// place (same id, same created timestamp), otherwise a new record is created.
// Writing the same path twice never duplicates a file. ifMatch, when
// non-empty, must equal the existing record's checksum. The bool result
// reports whether the write created a fresh record.
//
// Content lands in the store before the index is rewritten, so a crash
// between the two leaves an orphaned blob rather than a record pointing at
// nothing.
func (s *Service) WriteFile(ctx context.Context, workspace, path string, content []byte, ifMatch string) (*index.FileRecord, bool, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, false, err
	}
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, false, err
	}

	lk := s.wsLock(workspace)
	lk.Lock()
	defer lk.Unlock()

	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	created := false
	existing := index.FindPath(records, path)
	if existing != nil {
		if ifMatch != "" && ifMatch != existing.Checksum {
			return nil, false, fmt.Errorf("file %q: %w", path, apperr.ErrConflict)
		}
		if err := s.backend.Put(ctx, workspace, existing.ID, content); err != nil {
			return nil, false, err
		}
		existing.SetContent(content, now)
	} else {
		if ifMatch != "" {
			return nil, false, fmt.Errorf("file %q: %w", path, apperr.ErrNotFound)
		}
		rec := index.NewRecord(path, content, now)
		if err := s.backend.Put(ctx, workspace, rec.ID, content); err != nil {
			return nil, false, err
		}
		records = append(records, rec)
		existing = &records[len(records)-1]
		created = true
	}

	if err := index.Save(ctx, s.backend, workspace, records); err != nil {
		return nil, false, err
	}
	if err := s.pushRecent(ctx, workspace, *existing); err != nil {
		s.logger.Warn("workspace: push recent failed",
			slog.String("workspace", workspace), slog.String("path", path), slog.String("error", err.Error()))
	}
	kind := "file.updated"
	if created {
		kind = "file.created"
	}
	s.emit(kind, workspace, path)
	out := *existing
	return &out, created, nil
}

// DeleteFile removes content first, then the index record: a crash mid-way
// leaves a reclaimable orphan blob, never a dangling record.
func (s *Service) DeleteFile(ctx context.Context, workspace, id string) error {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return err
	}

	lk := s.wsLock(workspace)
	lk.Lock()
	defer lk.Unlock()

	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return err
	}
	rec := index.Find(records, id)
	if rec == nil {
		return fmt.Errorf("file %q: %w", id, apperr.ErrNotFound)
	}
	path := rec.Path
	if !rec.IsFolder {
		if err := s.backend.Delete(ctx, workspace, id); err != nil {
			return err
		}
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if err := index.Save(ctx, s.backend, workspace, kept); err != nil {
		return err
	}
	if err := s.dropRecents(ctx, func(e RecentEntry) bool {
		return e.Workspace == workspace && e.ID == id
	}); err != nil {
		s.logger.Warn("workspace: prune recents failed",
			slog.String("workspace", workspace), slog.String("id", id), slog.String("error", err.Error()))
	}
	s.emit("file.deleted", workspace, path)
	return nil
}

// RenameFile changes the leaf name. id, created, and content bytes are
// untouched; path is rederived.
func (s *Service) RenameFile(ctx context.Context, workspace, id, newName string) (*index.FileRecord, error) {
	if err := validateLeafName(newName); err != nil {
		return nil, err
	}
	return s.relocate(ctx, workspace, id, func(r *index.FileRecord) {
		r.SetPath(r.Folder, newName)
	})
}

// MoveFile changes the virtual parent folder. id, created, and content bytes
// are untouched; path is rederived.
func (s *Service) MoveFile(ctx context.Context, workspace, id, newFolder string) (*index.FileRecord, error) {
	newFolder, err := cleanFolder(newFolder)
	if err != nil {
		return nil, err
	}
	return s.relocate(ctx, workspace, id, func(r *index.FileRecord) {
		r.SetPath(newFolder, r.Name)
	})
}

// relocate applies a path mutation under the workspace lock, rejecting moves
// onto an occupied path.
func (s *Service) relocate(ctx context.Context, workspace, id string, mutate func(*index.FileRecord)) (*index.FileRecord, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, err
	}

	lk := s.wsLock(workspace)
	lk.Lock()
	defer lk.Unlock()

	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, err
	}
	rec := index.Find(records, id)
	if rec == nil {
		return nil, fmt.Errorf("file %q: %w", id, apperr.ErrNotFound)
	}
	next := *rec
	mutate(&next)
	if next.Path != rec.Path {
		if other := index.FindPath(records, next.Path); other != nil && other.ID != id {
			return nil, fmt.Errorf("path %q: %w", next.Path, apperr.ErrAlreadyExists)
		}
	}
	*rec = next
	if err := index.Save(ctx, s.backend, workspace, records); err != nil {
		return nil, err
	}
	s.emit("file.updated", workspace, rec.Path)
	out := *rec
	return &out, nil
}

// TogglePin flips the pin flag.
func (s *Service) TogglePin(ctx context.Context, workspace, id string) (*index.FileRecord, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, err
	}

	lk := s.wsLock(workspace)
	lk.Lock()
	defer lk.Unlock()

	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, err
	}
	rec := index.Find(records, id)
	if rec == nil {
		return nil, fmt.Errorf("file %q: %w", id, apperr.ErrNotFound)
	}
	rec.Pinned = !rec.Pinned
	if err := index.Save(ctx, s.backend, workspace, records); err != nil {
		return nil, err
	}
	out := *rec
	return &out, nil
}

// CreateFolder inserts a zero-byte marker record so an empty folder shows up
// in tree views. It no-ops when any record already occupies the folder or a
// sub-folder of it.
func (s *Service) CreateFolder(ctx context.Context, workspace, path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return err
	}

	lk := s.wsLock(workspace)
	lk.Lock()
	defer lk.Unlock()

	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Folder == path || strings.HasPrefix(r.Folder, path+"/") {
			return nil
		}
		if r.IsFolder && r.Path == path {
			return nil
		}
	}
	records = append(records, index.NewFolderMarker(path, time.Now().UTC()))
	if err := index.Save(ctx, s.backend, workspace, records); err != nil {
		return err
	}
	s.emit("workspace.changed", workspace, path)
	return nil
}

// Folders returns the workspace's folder tree as a sorted list of paths.
// Folders have no independent existence: the set is a pure function of the
// records' folder values plus the persisted markers.
func (s *Service) Folders(ctx context.Context, workspace string) ([]string, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, err
	}
	set := folderSet(records)
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// folderSet collects every distinct folder prefix across records.
func folderSet(records []index.FileRecord) map[string]struct{} {
	set := make(map[string]struct{})
	add := func(folder string) {
		for folder != "" {
			set[folder] = struct{}{}
			parent, _ := index.SplitPath(folder)
			folder = parent
		}
	}
	for _, r := range records {
		add(r.Folder)
		if r.IsFolder {
			add(r.Path)
		}
	}
	return set
}

// cleanPath validates a logical file or folder path: forward slashes, no
// empty or dot segments, no traversal.
func cleanPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("workspace: path is required")
	}
	if strings.ContainsRune(path, '\\') {
		return "", fmt.Errorf("workspace: backslashes not allowed in %q", path)
	}
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("workspace: invalid path %q", path)
		}
	}
	return path, nil
}

// cleanFolder is cleanPath but permits the empty (root) folder.
func cleanFolder(folder string) (string, error) {
	if folder == "" {
		return "", nil
	}
	return cleanPath(folder)
}

func validateLeafName(name string) error {
	if name == "" {
		return fmt.Errorf("workspace: name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("workspace: name must not contain path separators")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("workspace: invalid name %q", name)
	}
	return nil
}

// dropRecents removes matching recents entries, taking the sys lock.
func (s *Service) dropRecents(ctx context.Context, match func(RecentEntry) bool) error {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()
	return s.dropRecentsLocked(ctx, match)
}
