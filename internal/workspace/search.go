package workspace

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/othala/internal/index"
)

// Search matches the query case-insensitively against each record's name,
// title, and preview. With searchContent set, records not already matched
// are additionally checked by reading their full content. That is the slow
// path, so a keystroke-driven search never has to touch every blob.
func (s *Service) Search(ctx context.Context, workspace, query string, searchContent bool) ([]index.FileRecord, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, err
	}

	var out []index.FileRecord
	for _, r := range records {
		if r.IsFolder {
			continue
		}
		if strings.Contains(strings.ToLower(r.Name), query) ||
			strings.Contains(strings.ToLower(r.Title), query) ||
			strings.Contains(strings.ToLower(r.Preview), query) {
			out = append(out, r)
			continue
		}
		if !searchContent {
			continue
		}
		content, err := s.backend.Get(ctx, workspace, r.ID)
		if err != nil {
			s.logger.Warn("workspace: search content read failed",
				slog.String("workspace", workspace), slog.String("id", r.ID), slog.String("error", err.Error()))
			continue
		}
		if strings.Contains(strings.ToLower(string(content)), query) {
			out = append(out, r)
		}
	}
	return out, nil
}
