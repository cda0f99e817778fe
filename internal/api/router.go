package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *workspace.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace registry.
	r.Get("/workspaces", h.ListWorkspaces)
	r.Post("/workspaces", h.CreateWorkspace)
	r.Put("/workspaces/active", h.SwitchWorkspace)
	r.Delete("/workspaces/{name}", h.DeleteWorkspace)

	// File operations.
	r.Get("/files", h.ListFiles)
	r.Put("/files", h.WriteFile)
	r.Post("/files/bulk-delete", h.BulkDelete)
	r.Post("/files/bulk-move", h.BulkMove)
	r.Get("/files/{id}", h.ReadFile)
	r.Delete("/files/{id}", h.DeleteFile)
	r.Post("/files/{id}/rename", h.RenameFile)
	r.Post("/files/{id}/move", h.MoveFile)
	r.Post("/files/{id}/pin", h.TogglePin)

	// Virtual folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)

	// Search, recents, diagnostics.
	r.Get("/search", h.Search)
	r.Get("/recents", h.Recents)
	r.Post("/recents", h.PushRecent)
	r.Get("/info", h.Info)

	// Whole-workspace transfer.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
