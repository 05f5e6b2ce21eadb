// Package clients provides client (customer) management API endpoints.
package clients

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

// Handler handles client management endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new client handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a client.
type CreateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	GSTNo       string `json:"gst_no,omitempty"`
	Address     string `json:"address,omitempty"`
}

// UpdateRequest is the request body for updating a client.
type UpdateRequest struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	GSTNo       string `json:"gst_no,omitempty"`
	Address     string `json:"address,omitempty"`
}

// List returns all clients.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.storage.Clients().List(r.Context())
	if err != nil {
		log.Printf("list clients error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, clients)
}

// Create creates a new client.
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
	if strings.TrimSpace(req.Email) == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "email is required")
		return
	}

	ctx := r.Context()
	now := time.Now()
	client := &models.Client{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		GSTNo:       req.GSTNo,
		Address:     req.Address,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storage.Clients().Create(ctx, client); err != nil {
		log.Printf("create client error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("client created: %s (%s)", client.Name, client.ID)
	jsonCreated(w, client)
}

// GetByID returns a client by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "client id required")
		return
	}

	client, err := h.storage.Clients().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get client error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if client == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "client not found")
		return
	}

	jsonOK(w, client)
}

// Update updates a client.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "client id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	client, err := h.storage.Clients().GetByID(ctx, id)
	if err != nil {
		log.Printf("update client error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if client == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "client not found")
		return
	}

	if req.Name != "" {
		client.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		client.Email = strings.TrimSpace(req.Email)
	}
	if req.Phone != "" {
		client.Phone = req.Phone
	}
	if req.CompanyName != "" {
		client.CompanyName = req.CompanyName
	}
	if req.GSTNo != "" {
		client.GSTNo = req.GSTNo
	}
	if req.Address != "" {
		client.Address = req.Address
	}
	client.UpdatedAt = time.Now()

	if err := h.storage.Clients().Update(ctx, client); err != nil {
		log.Printf("update client error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("client updated: %s (%s)", client.Name, client.ID)
	jsonOK(w, client)
}

// Delete soft-deletes a client.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "client id required")
		return
	}

	ctx := r.Context()
	if err := h.storage.Clients().Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "client not found")
			return
		}
		log.Printf("delete client error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	metrics.SoftDeletesTotal.WithLabelValues("client").Inc()

	log.Printf("client deleted: %s", id)
	jsonNoContent(w)
}
