// Package reports provides cross-entity aggregate endpoints.
package reports

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/brightpath-dev/opsdesk/internal/storage"
)

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

// Handler handles reporting endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new reports handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// Dashboard returns the cross-entity stats snapshot. The counts are
// advisory: each aggregate reads its own consistent view, there is no
// cross-table transaction.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.storage.Reports().DashboardStats(r.Context())
	if err != nil {
		log.Printf("dashboard stats error: %v", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	jsonOK(w, stats)
}
