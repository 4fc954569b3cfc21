package handlers

import (
	"net/http"

	"tenderflow/internal/projection"
	"tenderflow/models"

	"github.com/go-chi/chi/v5"
)

// AttachFileHandler обрабатывает POST /api/tender-requests/{id}/files.
// Сохраняется только ключ в хранилище, сами байты лежат в объектном хранилище.
func (h *Handler) AttachFileHandler(w http.ResponseWriter, r *http.Request) {
	var in models.RequestFileInput
	if !readJSON(w, r, &in) {
		return
	}
	f, err := h.Files.Attach(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projection.File(f))
}

func (h *Handler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	files, err := h.Files.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection.Files(files))
}

func (h *Handler) RemoveFileHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Files.Remove(r.Context(), chi.URLParam(r, "fileId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
