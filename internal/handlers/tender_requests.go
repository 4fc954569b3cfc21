package handlers

import (
	"net/http"

	"tenderflow/internal/projection"
	"tenderflow/models"

	"github.com/go-chi/chi/v5"
)

// ListTenderRequestsHandler обрабатывает GET /api/tender-requests?departmentId=&status=&category=&limit=
func (h *Handler) ListTenderRequestsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := projection.ParseFilter(r.URL.Query(), h.Limits)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.Requests.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection.TenderRequests(list))
}

func (h *Handler) GetTenderRequestHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.Requests.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection.TenderRequest(t))
}

// CreateTenderRequestHandler обрабатывает POST /api/tender-requests
func (h *Handler) CreateTenderRequestHandler(w http.ResponseWriter, r *http.Request) {
	var in models.TenderRequestInput
	if !readJSON(w, r, &in) {
		return
	}
	t, err := h.Workflow.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projection.TenderRequest(t))
}

// PatchTenderRequestHandler меняет только поля, переданные в теле
func (h *Handler) PatchTenderRequestHandler(w http.ResponseWriter, r *http.Request) {
	var patch models.TenderRequestPatch
	if !readJSON(w, r, &patch) {
		return
	}
	t, err := h.Requests.Patch(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection.TenderRequest(t))
}

func (h *Handler) DeleteTenderRequestHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Requests.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReviewTenderRequestHandler обрабатывает POST /api/tender-requests/{id}/review
// с телом {"decision": "APPROVE"|"REJECT", "actorUserId": "...", "comment": "..."}.
func (h *Handler) ReviewTenderRequestHandler(w http.ResponseWriter, r *http.Request) {
	var rv models.Review
	if !readJSON(w, r, &rv) {
		return
	}
	t, err := h.Workflow.Review(r.Context(), chi.URLParam(r, "id"), rv)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection.TenderRequest(t))
}

func (h *Handler) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.ListByRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection.Events(events))
}
