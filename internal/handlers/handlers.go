package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tenderflow/internal/apperr"
	"tenderflow/internal/projection"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1048576

// Handler открывает сервисы заявок на закупку по HTTP
type Handler struct {
	Requests RequestService
	Workflow WorkflowService
	Events   EventService
	Files    FileService
	DB       Pinger
	Limits   projection.Limits
	Logger   *zap.Logger
}

func NewHandler(requests RequestService, workflow WorkflowService, events EventService, files FileService, db Pinger, limits projection.Limits, logger *zap.Logger) *Handler {
	return &Handler{
		Requests: requests,
		Workflow: workflow,
		Events:   events,
		Files:    files,
		DB:       db,
		Limits:   limits,
		Logger:   logger,
	}
}

// Routes регистрирует все маршруты на r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ping", h.PingHandler)
	r.Get("/readyz", h.ReadyzHandler)

	r.Route("/tender-requests", func(r chi.Router) {
		r.Get("/", h.ListTenderRequestsHandler)
		r.Post("/", h.CreateTenderRequestHandler)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTenderRequestHandler)
			r.Put("/", h.PatchTenderRequestHandler)
			r.Patch("/", h.PatchTenderRequestHandler)
			r.Delete("/", h.DeleteTenderRequestHandler)
			r.Post("/review", h.ReviewTenderRequestHandler)
			r.Get("/events", h.ListEventsHandler)
			r.Get("/files", h.ListFilesHandler)
			r.Post("/files", h.AttachFileHandler)
		})
	})
	r.Delete("/request-files/{fileId}", h.RemoveFileHandler)
}

// PingHandler отвечает "ok" для проверки живости сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func (h *Handler) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// readJSON читает тело запроса с ограничением размера и декодирует его в v
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError переводит вид ошибки в HTTP статус. Детали 5xx пишутся только в лог
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrInvariant):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrInfrastructure):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
