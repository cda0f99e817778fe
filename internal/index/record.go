// Package index maintains the per-workspace metadata index: one FileRecord
// per logical file, persisted as a single JSON blob per workspace.
package index

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/parser"
)

// FileRecord is one file's metadata entry. ID addresses the content blob and
// is decoupled from the human-visible name, so renames and moves never touch
// stored bytes.
type FileRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Folder   string    `json:"folder"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
	Preview  string    `json:"preview"`
	Title    string    `json:"title"`
	Pinned   bool      `json:"pinned"`
	Checksum string    `json:"checksum,omitempty"`
	// IsFolder marks a zero-byte placeholder that makes an empty folder
	// visible in tree views. Markers have no content blob.
	IsFolder bool `json:"is_folder,omitempty"`
}

// NewRecord creates a record for a fresh file at path with the given content.
func NewRecord(path string, content []byte, now time.Time) FileRecord {
	folder, name := SplitPath(path)
	r := FileRecord{
		ID:      uuid.NewString(),
		Name:    name,
		Folder:  folder,
		Path:    path,
		Created: now,
	}
	r.SetContent(content, now)
	return r
}

// NewFolderMarker creates the zero-byte marker record for an empty folder.
func NewFolderMarker(path string, now time.Time) FileRecord {
	folder, name := SplitPath(path)
	return FileRecord{
		ID:       uuid.NewString(),
		Name:     name,
		Folder:   folder,
		Path:     path,
		Created:  now,
		Modified: now,
		IsFolder: true,
	}
}

// SetContent recomputes every content-derived field: size, checksum, preview,
// title, and the modified timestamp (kept monotonically non-decreasing).
func (r *FileRecord) SetContent(content []byte, now time.Time) {
	r.Size = int64(len(content))
	r.Checksum = checksum.Sum(content)
	res := parser.Parse(content)
	r.Preview = res.Preview
	r.Title = res.Title
	if r.Title == "" {
		r.Title = Stem(r.Name)
	}
	if now.After(r.Modified) {
		r.Modified = now
	}
}

// SetPath moves the record to (folder, name) and rederives Path. Path must
// never be edited directly.
func (r *FileRecord) SetPath(folder, name string) {
	// A title that was only the filename stem follows the rename.
	if r.Title == Stem(r.Name) {
		r.Title = Stem(name)
	}
	r.Folder = folder
	r.Name = name
	r.Path = JoinPath(folder, name)
}

// JoinPath composes the logical path from folder and leaf name.
func JoinPath(folder, name string) string {
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// SplitPath splits a logical path into its folder prefix and leaf name.
func SplitPath(path string) (folder, name string) {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// Stem returns name with its extension stripped.
func Stem(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// Sort fields accepted by SortRecords.
const (
	SortByName     = "name"
	SortByCreated  = "created"
	SortByModified = "modified"
	SortBySize     = "size"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// SortRecords sorts records in place. Name comparison is case-insensitive;
// the sort is stable so equal keys keep their index order.
func SortRecords(records []FileRecord, sortBy, order string) {
	less := func(a, b FileRecord) bool {
		switch sortBy {
		case SortByCreated:
			return a.Created.Before(b.Created)
		case SortByModified:
			return a.Modified.Before(b.Modified)
		case SortBySize:
			return a.Size < b.Size
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if order == OrderDesc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}
