package workspace

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/index"
)

// ReconcileResult summarizes one repair pass.
type ReconcileResult struct {
	Refreshed int // records whose content changed underneath the index
	Dropped   int // records whose content blob was missing
	Reclaimed int // content blobs no record references
}

// Reconcile repairs the recognized crash modes of the two-store design for
// one workspace: index records pointing at missing content are dropped,
// orphaned content blobs are reclaimed, and records whose content changed
// externally get their size, checksum, and preview rederived.
func (s *Service) Reconcile(ctx context.Context, workspace string) (*ReconcileResult, error) {
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
	keys, err := s.backend.List(ctx, workspace)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{}
	now := time.Now().UTC()
	referenced := make(map[string]struct{}, len(records))
	kept := records[:0]
	dirty := false

	for _, r := range records {
		if r.IsFolder {
			kept = append(kept, r)
			continue
		}
		content, err := s.backend.Get(ctx, workspace, r.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			res.Dropped++
			dirty = true
			continue
		}
		if err != nil {
			return nil, err
		}
		referenced[r.ID] = struct{}{}
		if checksum.Sum(content) != r.Checksum {
			r.SetContent(content, now)
			res.Refreshed++
			dirty = true
		}
		kept = append(kept, r)
	}

	if dirty {
		if err := index.Save(ctx, s.backend, workspace, kept); err != nil {
			return nil, err
		}
	}

	for _, key := range keys {
		if key == index.Key {
			continue
		}
		if _, ok := referenced[key]; ok {
			continue
		}
		if err := s.backend.Delete(ctx, workspace, key); err != nil {
			s.logger.Warn("workspace: reclaim orphan failed",
				slog.String("workspace", workspace), slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		res.Reclaimed++
	}

	if res.Refreshed+res.Dropped+res.Reclaimed > 0 {
		s.logger.Info("workspace: reconciled",
			slog.String("workspace", workspace),
			slog.Int("refreshed", res.Refreshed),
			slog.Int("dropped", res.Dropped),
			slog.Int("reclaimed", res.Reclaimed))
		s.emit("workspace.changed", workspace, "")
	}
	return res, nil
}

// ReconcileAll runs Reconcile over every registered workspace.
func (s *Service) ReconcileAll(ctx context.Context) error {
	names, _, err := s.Workspaces(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := s.Reconcile(ctx, name); err != nil {
			s.logger.Warn("workspace: reconcile failed",
				slog.String("workspace", name), slog.String("error", err.Error()))
		}
	}
	return nil
}
