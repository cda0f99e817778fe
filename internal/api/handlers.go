package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/workspace"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *workspace.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *workspace.Service) *Handler {
	return &Handler{svc: svc}
}

// workspaceParam resolves the target workspace: explicit ?workspace= query
// parameter, otherwise the persisted active workspace.
func (h *Handler) workspaceParam(r *http.Request) (string, error) {
	if ws := r.URL.Query().Get("workspace"); ws != "" {
		return ws, nil
	}
	return h.svc.ActiveWorkspace(r.Context())
}

// decode reads a JSON body into a validated request type.
func decode[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request, req *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := (*req).Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// ListWorkspaces handles GET /workspaces.
func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	names, active, err := h.svc.Workspaces(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, WorkspacesResponse{Workspaces: names, Active: active})
}

// CreateWorkspace handles POST /workspaces.
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req WorkspaceRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.CreateWorkspace(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// SwitchWorkspace handles PUT /workspaces/active.
func (h *Handler) SwitchWorkspace(w http.ResponseWriter, r *http.Request) {
	var req WorkspaceRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SwitchWorkspace(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteWorkspace handles DELETE /workspaces/{name}.
func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.svc.DeleteWorkspace(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles handles GET /files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	files, err := h.svc.ListFiles(r.Context(), ws, q.Get("folder"), q.Get("sort"), q.Get("order"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files)})
}

// ReadFile handles GET /files/{id}.
func (h *Handler) ReadFile(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, content, err := h.svc.ReadFile(r.Context(), ws, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FileDetail{FileRecord: *rec, Content: string(content)})
}

// WriteFile handles PUT /files: upsert by path. An If-Match header carrying
// the last known checksum enables optimistic concurrency.
func (h *Handler) WriteFile(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req WriteFileRequest
	if !decode(w, r, &req) {
		return
	}
	ifMatch := trimQuotes(r.Header.Get("If-Match"))
	rec, created, err := h.svc.WriteFile(r.Context(), ws, req.Path, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rec)
}

// DeleteFile handles DELETE /files/{id}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteFile(r.Context(), ws, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameFile handles POST /files/{id}/rename.
func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.svc.RenameFile(r.Context(), ws, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// MoveFile handles POST /files/{id}/move.
func (h *Handler) MoveFile(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rec, err := h.svc.MoveFile(r.Context(), ws, chi.URLParam(r, "id"), req.Folder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// TogglePin handles POST /files/{id}/pin.
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.svc.TogglePin(r.Context(), ws, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateFolder handles POST /folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req FolderRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.CreateFolder(r.Context(), ws, req.Path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ListFolders handles GET /folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	folders, err := h.svc.Folders(r.Context(), ws)
	if err != nil {
		writeError(w, err)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	searchContent, _ := strconv.ParseBool(r.URL.Query().Get("content"))
	results, err := h.svc.Search(r.Context(), ws, q, searchContent)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []FileRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Recents handles GET /recents.
func (h *Handler) Recents(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Recents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []RecentEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recents": entries})
}

// PushRecent handles POST /recents.
func (h *Handler) PushRecent(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req RecentRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.PushRecent(r.Context(), ws, req.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete handles POST /files/bulk-delete.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req BulkRequest
	if !decode(w, r, &req) {
		return
	}
	applied, err := h.svc.BulkDelete(r.Context(), ws, req.IDs)
	if err != nil {
		// Best effort: report how far we got alongside the failure.
		writeJSON(w, http.StatusMultiStatus, map[string]any{"applied": applied, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BulkResponse{Applied: applied})
}

// BulkMove handles POST /files/bulk-move.
func (h *Handler) BulkMove(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req BulkRequest
	if !decode(w, r, &req) {
		return
	}
	applied, err := h.svc.BulkMove(r.Context(), ws, req.IDs, req.Folder)
	if err != nil {
		writeJSON(w, http.StatusMultiStatus, map[string]any{"applied": applied, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BulkResponse{Applied: applied})
}

// Info handles GET /info.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := h.svc.Info(r.Context(), ws)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
