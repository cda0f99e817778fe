package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
)

// RecentEntry is one slot in the cross-workspace most-recently-used ledger.
// The workspace name is carried so a recents click can route an open into
// another workspace.
type RecentEntry struct {
	ID        string    `json:"id"`
	Workspace string    `json:"workspace"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Touched   time.Time `json:"touched"`
}

// Recents returns the ledger, most recent first.
func (s *Service) Recents(ctx context.Context) ([]RecentEntry, error) {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()
	return s.loadRecents(ctx)
}

// PushRecent records an open of the given file, for collaborators that open
// content through a side channel. Reads and writes push automatically.
func (s *Service) PushRecent(ctx context.Context, workspace, id string) error {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return err
	}
	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return err
	}
	rec := index.Find(records, id)
	if rec == nil || rec.IsFolder {
		return fmt.Errorf("file %q: %w", id, apperr.ErrNotFound)
	}
	return s.pushRecent(ctx, workspace, *rec)
}

// pushRecent inserts or promotes an entry. Pushing an already-present id
// moves it to the front instead of duplicating; the ledger is truncated to
// the configured cap.
func (s *Service) pushRecent(ctx context.Context, workspace string, rec index.FileRecord) error {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()

	entries, err := s.loadRecents(ctx)
	if err != nil {
		return err
	}
	kept := make([]RecentEntry, 0, len(entries)+1)
	kept = append(kept, RecentEntry{
		ID:        rec.ID,
		Workspace: workspace,
		Path:      rec.Path,
		Title:     rec.Title,
		Touched:   time.Now().UTC(),
	})
	for _, e := range entries {
		if e.Workspace == workspace && e.ID == rec.ID {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) > s.recentsLimit {
		kept = kept[:s.recentsLimit]
	}
	return s.saveRecents(ctx, kept)
}

// dropRecentsLocked removes matching entries. Caller holds sysMu.
func (s *Service) dropRecentsLocked(ctx context.Context, match func(RecentEntry) bool) error {
	entries, err := s.loadRecents(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	return s.saveRecents(ctx, kept)
}

func (s *Service) loadRecents(ctx context.Context) ([]RecentEntry, error) {
	data, err := s.backend.Get(ctx, sysNamespace, recentsKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("workspace: load recents: %w", err)
	}
	var entries []RecentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("workspace: decode recents: %w", err)
	}
	return entries, nil
}

func (s *Service) saveRecents(ctx context.Context, entries []RecentEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("workspace: encode recents: %w", err)
	}
	if err := s.backend.Put(ctx, sysNamespace, recentsKey, data); err != nil {
		return fmt.Errorf("workspace: save recents: %w", err)
	}
	return nil
}
