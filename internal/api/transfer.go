package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxImportBytes = 50 << 20 // 50 MB

// Export handles GET /export: the whole workspace as one downloadable JSON
// archive document.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	arch, err := h.svc.ExportWorkspace(r.Context(), ws)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", ws+"-export.json"))
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(arch)
}

// Import handles POST /import. The body is either a raw archive document or
// a multipart form with the archive in a "file" field.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	data, readErr := importBody(r)
	if readErr != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(readErr.Error()))
		return
	}

	imported, err := h.svc.ImportWorkspace(r.Context(), ws, data)
	if err != nil {
		if imported > 0 {
			// Best effort: some files landed before the failure.
			writeJSON(w, http.StatusMultiStatus, map[string]any{"imported": imported, "error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

func importBody(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, fmt.Errorf("file too large or invalid multipart")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing 'file' field in multipart form")
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}
