package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/storage"
)

// Key is the reserved blob key holding a workspace's serialized index.
// Content keys are UUIDs, so the two can never collide.
const Key = "index.json"

const blobVersion = 1

type blob struct {
	Version int          `json:"version"`
	Records []FileRecord `json:"records"`
}

// Load reads a workspace's entire index. A missing index blob is an empty
// workspace, not an error.
func Load(ctx context.Context, b storage.Backend, workspace string) ([]FileRecord, error) {
	data, err := b.Get(ctx, workspace, Key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("index: load %s: %w", workspace, err)
	}
	var bl blob
	if err := json.Unmarshal(data, &bl); err != nil {
		return nil, fmt.Errorf("index: decode %s: %w", workspace, err)
	}
	return bl.Records, nil
}

// Save writes a workspace's entire index as one unit. There is no per-record
// granularity: the O(n) rewrite avoids partial-update races at file counts
// this subsystem is built for.
func Save(ctx context.Context, b storage.Backend, workspace string, records []FileRecord) error {
	data, err := json.Marshal(blob{Version: blobVersion, Records: records})
	if err != nil {
		return fmt.Errorf("index: encode %s: %w", workspace, err)
	}
	if err := b.Put(ctx, workspace, Key, data); err != nil {
		return fmt.Errorf("index: save %s: %w", workspace, err)
	}
	return nil
}

// Find returns the record with the given id, or nil.
func Find(records []FileRecord, id string) *FileRecord {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

// FindPath returns the non-marker record at the given logical path, or nil.
func FindPath(records []FileRecord, path string) *FileRecord {
	for i := range records {
		if !records[i].IsFolder && records[i].Path == path {
			return &records[i]
		}
	}
	return nil
}
