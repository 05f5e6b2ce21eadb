// Package activity exposes the read-only audit trail.
package activity

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/brightpath-dev/opsdesk/internal/storage"
)

// Response helpers (local to avoid import cycle)
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeInternalError = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

// Handler handles activity log endpoints. The log is write-once: the
// only HTTP surface is the listing; entries are recorded by the mutating
// handlers.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new activity handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

const maxLimit = 500

// List returns audit entries newest-first, filterable by project and
// task. Any authenticated caller may read the trail.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := storage.ActivityFilter{
		ProjectID: r.URL.Query().Get("project_id"),
		TaskID:    r.URL.Query().Get("task_id"),
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 1 || limit > maxLimit {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = limit
	}
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = offset
	}

	entries, err := h.storage.Activity().List(r.Context(), filter)
	if err != nil {
		log.Printf("list activity error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, entries)
}
