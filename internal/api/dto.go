package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/workspace"
)

// FileRecord and friends are aliased from the domain layer.
type (
	FileRecord  = index.FileRecord
	RecentEntry = workspace.RecentEntry
	StorageInfo = workspace.StorageInfo
)

// WorkspaceRequest names a workspace to create or switch to.
type WorkspaceRequest struct {
	Name string `json:"name"`
}

func (r WorkspaceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 64)),
	)
}

// WriteFileRequest is the upsert body for PUT /files.
type WriteFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (r WriteFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// RenameRequest carries the new leaf name for a file.
type RenameRequest struct {
	Name string `json:"name"`
}

func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// MoveRequest carries the target folder ("" moves to the root).
type MoveRequest struct {
	Folder string `json:"folder"`
}

// FolderRequest names a folder to create.
type FolderRequest struct {
	Path string `json:"path"`
}

func (r FolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// BulkRequest applies an operation to several ids.
type BulkRequest struct {
	IDs    []string `json:"ids"`
	Folder string   `json:"folder,omitempty"`
}

func (r BulkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required),
	)
}

// RecentRequest records an open through a side channel.
type RecentRequest struct {
	ID string `json:"id"`
}

func (r RecentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
	)
}

// FileDetail is the read response: record metadata plus content.
type FileDetail struct {
	FileRecord
	Content string `json:"content"`
}

// FileListResponse wraps listings.
type FileListResponse struct {
	Files []FileRecord `json:"files"`
	Total int          `json:"total"`
}

// WorkspacesResponse lists workspaces and the active one.
type WorkspacesResponse struct {
	Workspaces []string `json:"workspaces"`
	Active     string   `json:"active"`
}

// BulkResponse reports how many items a bulk operation applied.
type BulkResponse struct {
	Applied int `json:"applied"`
}
