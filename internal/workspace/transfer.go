package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
)

// ArchiveVersion is the current export document version.
const ArchiveVersion = 2

// ExportArchive is the portable workspace dump. Timestamps are epoch
// milliseconds for compatibility with earlier revisions of the format.
type ExportArchive struct {
	Version   int          `json:"version"`
	Workspace string       `json:"workspace"`
	Exported  int64        `json:"exported"`
	Files     []ExportFile `json:"files"`
}

// ExportFile is one file's metadata and content inside an archive.
type ExportFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Folder   string `json:"folder"`
	Created  int64  `json:"created"`
	Modified int64  `json:"modified"`
	Size     int64  `json:"size"`
	Preview  string `json:"preview"`
	Title    string `json:"title"`
	Pinned   bool   `json:"pinned"`
	Content  string `json:"content"`
}

// legacyDocument is the pre-v2 export shape, kept importable.
type legacyDocument struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type importPayload struct {
	Version   int              `json:"version"`
	Workspace string           `json:"workspace"`
	Files     []ExportFile     `json:"files"`
	Documents []legacyDocument `json:"documents"`
}

// ExportWorkspace reads every non-marker record's content and serializes the
// whole workspace as one archive document.
func (s *Service) ExportWorkspace(ctx context.Context, workspace string) (*ExportArchive, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, err
	}
	arch := &ExportArchive{
		Version:   ArchiveVersion,
		Workspace: workspace,
		Exported:  time.Now().UTC().UnixMilli(),
		Files:     []ExportFile{},
	}
	for _, r := range records {
		if r.IsFolder {
			continue
		}
		content, err := s.backend.Get(ctx, workspace, r.ID)
		if err != nil {
			return nil, fmt.Errorf("workspace: export %s: %w", r.Path, err)
		}
		arch.Files = append(arch.Files, ExportFile{
			ID:       r.ID,
			Name:     r.Name,
			Path:     r.Path,
			Folder:   r.Folder,
			Created:  r.Created.UnixMilli(),
			Modified: r.Modified.UnixMilli(),
			Size:     r.Size,
			Preview:  r.Preview,
			Title:    r.Title,
			Pinned:   r.Pinned,
			Content:  string(content),
		})
	}
	return arch, nil
}

// ImportWorkspace replays an archive through the ordinary path upsert, so
// re-importing updates matching paths instead of duplicating. The payload is
// validated before any write: a malformed document never partially applies.
// A mid-import failure leaves prior files applied and later ones unapplied
// (best effort, no rollback).
func (s *Service) ImportWorkspace(ctx context.Context, workspace string, data []byte) (int, error) {
	var payload importPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("workspace: %w: %v", apperr.ErrMalformedImport, err)
	}
	if payload.Files == nil && payload.Documents == nil {
		return 0, fmt.Errorf("workspace: %w: missing files or documents array", apperr.ErrMalformedImport)
	}
	if payload.Files != nil {
		return s.importFiles(ctx, workspace, payload.Files)
	}
	return s.importLegacy(ctx, workspace, payload.Documents)
}

func (s *Service) importFiles(ctx context.Context, workspace string, files []ExportFile) (int, error) {
	imported := 0
	for _, f := range files {
		path := f.Path
		if path == "" {
			path = index.JoinPath(f.Folder, f.Name)
		}
		rec, _, err := s.WriteFile(ctx, workspace, path, []byte(f.Content), "")
		if err != nil {
			return imported, fmt.Errorf("workspace: import %s: %w", path, err)
		}
		imported++
		if f.Pinned != rec.Pinned {
			if _, err := s.TogglePin(ctx, workspace, rec.ID); err != nil {
				return imported, err
			}
		}
	}
	return imported, nil
}

// importLegacy accepts the pre-v2 {documents: [...]} shape.
func (s *Service) importLegacy(ctx context.Context, workspace string, docs []legacyDocument) (int, error) {
	imported := 0
	for _, d := range docs {
		path := d.Path
		if path == "" {
			path = d.Name
		}
		if path == "" && d.Title != "" {
			path = d.Title + ".md"
		}
		if path == "" {
			return imported, fmt.Errorf("workspace: %w: document without path or title", apperr.ErrMalformedImport)
		}
		if _, _, err := s.WriteFile(ctx, workspace, path, []byte(d.Content), ""); err != nil {
			return imported, fmt.Errorf("workspace: import %s: %w", path, err)
		}
		imported++
	}
	return imported, nil
}

// BulkDelete applies DeleteFile per id, in order. The first failure stops
// the run; prior deletions stay applied.
func (s *Service) BulkDelete(ctx context.Context, workspace string, ids []string) (int, error) {
	done := 0
	for _, id := range ids {
		if err := s.DeleteFile(ctx, workspace, id); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// BulkMove applies MoveFile per id, in order, with the same best-effort
// semantics as BulkDelete.
func (s *Service) BulkMove(ctx context.Context, workspace string, ids []string, folder string) (int, error) {
	done := 0
	for _, id := range ids {
		if _, err := s.MoveFile(ctx, workspace, id, folder); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}
