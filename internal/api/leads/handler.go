// Package leads provides sales pipeline API endpoints.
package leads

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/access"
	"github.com/brightpath-dev/opsdesk/internal/api/middleware"
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
	errCodeAlreadyConverted = "ALREADY_CONVERTED"
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

// Handler handles sales pipeline endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new lead handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a lead.
type CreateRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Source string `json:"source,omitempty"`
	Status string `json:"status,omitempty"`
}

// UpdateRequest is the request body for updating a lead.
type UpdateRequest struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Source string `json:"source,omitempty"`
	Status string `json:"status,omitempty"`
}

// ConvertRequest is the request body for converting a lead to a project.
type ConvertRequest struct {
	ClientID     string `json:"client_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	ManagerID    string `json:"manager_id,omitempty"`
	StartDate    string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate      string `json:"end_date,omitempty"`   // YYYY-MM-DD
}

// AssignRequest is the request body for assigning a lead to a sales
// executive.
type AssignRequest struct {
	SalesExecID string `json:"sales_exec_id"`
}

// List returns the leads visible to the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role := middleware.GetRole(ctx)
	userID := middleware.GetUserID(ctx)

	scope, err := access.Leads(ctx, h.storage, userID, role)
	if err != nil {
		log.Printf("list leads error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	var leads []*models.Lead
	if scope.All {
		leads, err = h.storage.Leads().List(ctx)
	} else {
		// Empty for an executive with no assignments, not an error
		leads, err = h.storage.Leads().ListAssignedTo(ctx, userID)
	}
	if err != nil {
		log.Printf("list leads error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, leads)
}

// Create creates a new lead.
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

	status := models.LeadNew
	if req.Status != "" {
		status = models.LeadStatus(req.Status)
		if !status.Valid() {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "status must be one of: new, contacted, qualified, converted, lost")
			return
		}
		// Converted is reachable only through conversion
		if status == models.LeadConverted {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "leads cannot be created as converted")
			return
		}
	}

	ctx := r.Context()
	now := time.Now()
	lead := &models.Lead{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
		Source:    req.Source,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.storage.Leads().Create(ctx, lead); err != nil {
		log.Printf("create lead error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("lead created: %s (%s)", lead.Name, lead.ID)
	jsonCreated(w, lead)
}

// GetByID returns a lead by ID if the caller can see it.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "lead id required")
		return
	}

	ctx := r.Context()

	scope, err := access.Leads(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("get lead error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	lead, err := h.storage.Leads().GetByID(ctx, id)
	if err != nil {
		log.Printf("get lead error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if lead == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	jsonOK(w, lead)
}

// Update updates a lead. The converted status never regresses and can
// only be reached through Convert.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "lead id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	scope, err := access.Leads(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("update lead error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	lead, err := h.storage.Leads().GetByID(ctx, id)
	if err != nil {
		log.Printf("update lead error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if lead == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	if req.Name != "" {
		lead.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		lead.Email = strings.TrimSpace(req.Email)
	}
	if req.Phone != "" {
		lead.Phone = req.Phone
	}
	if req.Source != "" {
		lead.Source = req.Source
	}
	if req.Status != "" {
		status := models.LeadStatus(req.Status)
		if !status.Valid() {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "status must be one of: new, contacted, qualified, converted, lost")
			return
		}
		if status == models.LeadConverted {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "use the convert endpoint to mark a lead converted")
			return
		}
		if lead.Status == models.LeadConverted {
			jsonError(w, http.StatusConflict, errCodeAlreadyConverted, "converted leads cannot change status")
			return
		}
		lead.Status = status
	}
	lead.UpdatedAt = time.Now()

	if err := h.storage.Leads().Update(ctx, lead); err != nil {
		log.Printf("update lead error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("lead updated: %s (%s)", lead.Name, lead.ID)
	jsonOK(w, lead)
}

// Delete soft-deletes a lead.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "lead id required")
		return
	}

	ctx := r.Context()

	scope, err := access.Leads(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("delete lead error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	if err := h.storage.Leads().Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
			return
		}
		log.Printf("delete lead error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	metrics.SoftDeletesTotal.WithLabelValues("lead").Inc()

	log.Printf("lead deleted: %s", id)
	jsonNoContent(w)
}

// Convert converts a lead into a project in one transaction (sales
// managers only). A lead converts at most once; repeats get 409.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "lead id required")
		return
	}

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	var startDate, endDate time.Time
	if req.StartDate != "" {
		var err error
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "start_date must be in YYYY-MM-DD format")
			return
		}
	}
	if req.EndDate != "" {
		var err error
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "end_date must be in YYYY-MM-DD format")
			return
		}
	}

	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)

	lead, err := h.storage.Leads().GetByID(ctx, id)
	if err != nil {
		log.Printf("convert lead error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if lead == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	now := time.Now()
	project := &models.Project{
		ID:           uuid.New().String(),
		Name:         "Project: " + lead.Name,
		ClientID:     req.ClientID,
		DepartmentID: req.DepartmentID,
		ManagerID:    req.ManagerID,
		CreatedByID:  actorID,
		StartDate:    startDate,
		EndDate:      endDate,
		Status:       models.ProjectNotStarted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.storage.Leads().Convert(ctx, id, project); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyConverted):
			metrics.LeadConversionsTotal.WithLabelValues("already_converted").Inc()
			jsonError(w, http.StatusConflict, errCodeAlreadyConverted, "lead is already converted")
		case errors.Is(err, storage.ErrNotFound):
			jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		case errors.Is(err, storage.ErrInvalidReference):
			jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "client, department, or manager does not exist")
		default:
			metrics.LeadConversionsTotal.WithLabelValues("error").Inc()
			log.Printf("convert lead error: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		}
		return
	}
	metrics.LeadConversionsTotal.WithLabelValues("success").Inc()

	// Conversion is audited against the materialized project
	entry := &models.ActivityLog{
		UserID:    actorID,
		ProjectID: project.ID,
		Action:    "Converted lead: " + lead.Name,
	}
	if err := h.storage.Activity().Record(ctx, entry); err != nil {
		log.Printf("convert lead warning: record activity: %v", err)
	} else {
		metrics.ActivityEntriesTotal.Inc()
	}

	log.Printf("lead converted: %s (%s) -> project %s", lead.Name, lead.ID, project.ID)
	jsonCreated(w, project)
}

// Assign assigns a lead to a sales executive (sales managers only).
// Assigning the same pair twice is a no-op.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "lead id required")
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.SalesExecID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "sales_exec_id is required")
		return
	}

	ctx := r.Context()

	lead, err := h.storage.Leads().GetByID(ctx, id)
	if err != nil {
		log.Printf("assign lead error: get lead: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if lead == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	exec, err := h.storage.Users().GetByID(ctx, req.SalesExecID)
	if err != nil {
		log.Printf("assign lead error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if exec == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "user not found")
		return
	}

	assignment := &models.LeadAssignment{
		ID:          uuid.New().String(),
		LeadID:      id,
		SalesExecID: req.SalesExecID,
		AssignedAt:  time.Now(),
	}
	if err := h.storage.Leads().Assign(ctx, assignment); err != nil {
		log.Printf("assign lead error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("lead %s assigned to %s", id, req.SalesExecID)
	jsonNoContent(w)
}
