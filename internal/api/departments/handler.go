// Package departments provides department management API endpoints.
package departments

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/metrics"
	"github.com/brightpath-dev/opsdesk/internal/models"
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
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInvalidReference = "INVALID_REFERENCE"
	errCodeInternalError    = "INTERNAL_ERROR"
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

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Handler handles department management endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new department handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a department.
type CreateRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// UpdateRequest is the request body for updating a department.
type UpdateRequest struct {
	Name     string `json:"name,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// List returns all departments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	depts, err := h.storage.Departments().List(r.Context())
	if err != nil {
		log.Printf("list departments error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, depts)
}

// Create creates a new department (admin only).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "name is required")
		return
	}

	ctx := r.Context()
	now := time.Now()
	dept := &models.Department{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.storage.Departments().Create(ctx, dept); err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "parent department does not exist")
			return
		}
		log.Printf("create department error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("department created: %s (%s)", dept.Name, dept.ID)
	jsonCreated(w, dept)
}

// GetByID returns a department by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "department id required")
		return
	}

	dept, err := h.storage.Departments().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get department error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if dept == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "department not found")
		return
	}

	jsonOK(w, dept)
}

// Update updates a department (admin only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "department id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	dept, err := h.storage.Departments().GetByID(ctx, id)
	if err != nil {
		log.Printf("update department error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if dept == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "department not found")
		return
	}

	if req.Name != "" {
		dept.Name = strings.TrimSpace(req.Name)
	}
	if req.ParentID != "" {
		if req.ParentID == id {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "department cannot be its own parent")
			return
		}
		dept.ParentID = req.ParentID
	}
	dept.UpdatedAt = time.Now()

	if err := h.storage.Departments().Update(ctx, dept); err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "parent department does not exist")
			return
		}
		log.Printf("update department error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("department updated: %s (%s)", dept.Name, dept.ID)
	jsonOK(w, dept)
}

// Delete soft-deletes a department (admin only).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "department id required")
		return
	}

	ctx := r.Context()
	if err := h.storage.Departments().Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "department not found")
			return
		}
		log.Printf("delete department error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	metrics.SoftDeletesTotal.WithLabelValues("department").Inc()

	log.Printf("department deleted: %s", id)
	jsonNoContent(w)
}
