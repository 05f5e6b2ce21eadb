package projects

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
	errCodeConflict         = "CONFLICT"
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

// Handler handles project management endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new project handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a project.
type CreateRequest struct {
	Name               string `json:"name"`
	ClientID           string `json:"client_id,omitempty"`
	DepartmentID       string `json:"department_id,omitempty"`
	ManagerID          string `json:"manager_id,omitempty"`
	StartDate          string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate            string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status             string `json:"status,omitempty"`
	ProgressPercentage int    `json:"progress_percentage,omitempty"`
}

// UpdateRequest is the request body for updating a project.
type UpdateRequest struct {
	Name               string `json:"name,omitempty"`
	ClientID           string `json:"client_id,omitempty"`
	DepartmentID       string `json:"department_id,omitempty"`
	ManagerID          string `json:"manager_id,omitempty"`
	StartDate          string `json:"start_date,omitempty"`
	EndDate            string `json:"end_date,omitempty"`
	Status             string `json:"status,omitempty"`
	ProgressPercentage *int   `json:"progress_percentage,omitempty"`
}

// AddMemberRequest is the request body for adding a project member.
type AddMemberRequest struct {
	UserID        string `json:"user_id"`
	RoleInProject string `json:"role_in_project,omitempty"`
}

// List returns the projects visible to the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role := middleware.GetRole(ctx)
	userID := middleware.GetUserID(ctx)

	scope, err := access.Projects(ctx, h.storage, userID, role)
	if err != nil {
		log.Printf("list projects error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	var projects []*models.Project
	if scope.All {
		projects, err = h.storage.Projects().List(ctx)
	} else {
		projects, err = h.storage.Projects().ListForMember(ctx, userID)
	}
	if err != nil {
		log.Printf("list projects error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, projects)
}

// Create creates a new project (managers only).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	status := models.ProjectNotStarted
	if req.Status != "" {
		var err error
		status, err = ValidateStatus(req.Status)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	if err := ValidateProgress(req.ProgressPercentage); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	startDate, err := ParseDate("start_date", req.StartDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	endDate, err := ParseDate("end_date", req.EndDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	now := time.Now()
	project := &models.Project{
		ID:                 uuid.New().String(),
		Name:               strings.TrimSpace(req.Name),
		ClientID:           req.ClientID,
		DepartmentID:       req.DepartmentID,
		ManagerID:          req.ManagerID,
		CreatedByID:        middleware.GetUserID(ctx),
		StartDate:          startDate,
		EndDate:            endDate,
		Status:             status,
		ProgressPercentage: req.ProgressPercentage,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := h.storage.Projects().Create(ctx, project); err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "client, department, or manager does not exist")
			return
		}
		log.Printf("create project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project created: %s (%s)", project.Name, project.ID)
	jsonCreated(w, project)
}

// GetByID returns a project by ID if the caller can see it.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()

	scope, err := access.Projects(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("get project error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	// Out-of-scope rows are indistinguishable from absent ones
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("get project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	jsonOK(w, project)
}

// Update updates a project (managers only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("update project error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	if req.Name != "" {
		if err := ValidateName(req.Name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.Name = strings.TrimSpace(req.Name)
	}
	if req.ClientID != "" {
		project.ClientID = req.ClientID
	}
	if req.DepartmentID != "" {
		project.DepartmentID = req.DepartmentID
	}
	if req.ManagerID != "" {
		project.ManagerID = req.ManagerID
	}
	if req.StartDate != "" {
		startDate, err := ParseDate("start_date", req.StartDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.StartDate = startDate
	}
	if req.EndDate != "" {
		endDate, err := ParseDate("end_date", req.EndDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.EndDate = endDate
	}
	if req.Status != "" {
		status, err := ValidateStatus(req.Status)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.Status = status
	}
	if req.ProgressPercentage != nil {
		if err := ValidateProgress(*req.ProgressPercentage); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.ProgressPercentage = *req.ProgressPercentage
	}

	project.UpdatedAt = time.Now()

	if err := h.storage.Projects().Update(ctx, project); err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "client, department, or manager does not exist")
			return
		}
		log.Printf("update project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project updated: %s (%s)", project.Name, project.ID)
	jsonOK(w, project)
}

// Delete soft-deletes a project (managers only).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()
	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("delete project error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	if err := h.storage.Projects().Delete(ctx, id); err != nil {
		log.Printf("delete project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	metrics.SoftDeletesTotal.WithLabelValues("project").Inc()

	log.Printf("project deleted: %s (%s)", project.Name, project.ID)
	jsonNoContent(w)
}

// ListMembers returns the members of a project the caller can see.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()

	scope, err := access.Projects(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("list members error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("list members error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	members, err := h.storage.Projects().ListMembers(ctx, id)
	if err != nil {
		log.Printf("list members error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, members)
}

// AddMember adds a user to a project (managers only).
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "user_id is required")
		return
	}

	roleInProject := models.ProjectRoleMember
	if req.RoleInProject != "" {
		roleInProject = models.ProjectRole(req.RoleInProject)
		if !roleInProject.Valid() {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "role_in_project must be one of: PM, MEMBER, QA, VIEWER")
			return
		}
	}

	ctx := r.Context()

	// Verify project exists
	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("add member error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	// Verify user exists
	user, err := h.storage.Users().GetByID(ctx, req.UserID)
	if err != nil {
		log.Printf("add member error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "user not found")
		return
	}

	member := &models.ProjectMember{
		ProjectID:     id,
		UserID:        req.UserID,
		RoleInProject: roleInProject,
		AddedAt:       time.Now(),
	}
	if err := h.storage.Projects().AddMember(ctx, member); err != nil {
		log.Printf("add member error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("user %s added to project %s as %s", req.UserID, id, roleInProject)
	jsonNoContent(w)
}

// RemoveMember removes a user from a project (managers only).
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")
	if projectID == "" || userID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id and user id required")
		return
	}

	ctx := r.Context()

	if err := h.storage.Projects().RemoveMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "membership not found")
			return
		}
		log.Printf("remove member error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("user %s removed from project %s", userID, projectID)
	jsonNoContent(w)
}
