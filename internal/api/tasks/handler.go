package tasks

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

// Handler handles task board endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new task handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a task.
type CreateRequest struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
	BoardOrder  int    `json:"board_order,omitempty"`
	DueDate     string `json:"due_date,omitempty"` // YYYY-MM-DD
}

// UpdateRequest is the request body for updating a task.
type UpdateRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
	BoardOrder  *int   `json:"board_order,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// AssignRequest is the request body for assigning a task.
type AssignRequest struct {
	EmployeeID string `json:"employee_id"`
}

// List returns the tasks visible to the caller, optionally filtered by
// project and status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role := middleware.GetRole(ctx)
	userID := middleware.GetUserID(ctx)

	filter := storage.TaskFilter{
		ProjectID: r.URL.Query().Get("project_id"),
	}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status, err := ValidateStatus(statusParam)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		filter.Status = status
	}

	scope, err := access.Tasks(ctx, h.storage, userID, role)
	if err != nil {
		log.Printf("list tasks error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	var tasks []*models.Task
	if scope.All {
		tasks, err = h.storage.Tasks().List(ctx, filter)
	} else {
		tasks, err = h.storage.Tasks().ListForMember(ctx, userID, filter)
	}
	if err != nil {
		log.Printf("list tasks error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, tasks)
}

// Create creates a new task (managers only) and records it in the
// activity log.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.ProjectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "project_id is required")
		return
	}
	if err := ValidateTitle(req.Title); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	priority := models.PriorityMedium
	if req.Priority != "" {
		var err error
		priority, err = ValidatePriority(req.Priority)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	status := models.TaskTodo
	if req.Status != "" {
		var err error
		status, err = ValidateStatus(req.Status)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}

	var dueDate time.Time
	if req.DueDate != "" {
		var err error
		dueDate, err = time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "due_date must be in YYYY-MM-DD format")
			return
		}
	}

	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)

	// Verify project exists
	project, err := h.storage.Projects().GetByID(ctx, req.ProjectID)
	if err != nil {
		log.Printf("create task error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "project does not exist")
		return
	}

	now := time.Now()
	task := &models.Task{
		ID:          uuid.New().String(),
		ProjectID:   req.ProjectID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		Status:      status,
		BoardOrder:  req.BoardOrder,
		DueDate:     dueDate,
		CreatedByID: actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storage.Tasks().Create(ctx, task); err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "project does not exist")
			return
		}
		log.Printf("create task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	// Task creation is audited. A referential failure here is surfaced,
	// not swallowed; the ledger must not drift from reality.
	entry := &models.ActivityLog{
		UserID:    actorID,
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		Action:    "Created task: " + task.Title,
	}
	if err := h.storage.Activity().Record(ctx, entry); err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			jsonError(w, http.StatusBadRequest, errCodeInvalidReference, "activity record references unknown actor or project")
			return
		}
		log.Printf("create task error: record activity: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	metrics.ActivityEntriesTotal.Inc()

	log.Printf("task created: %s (%s) in project %s", task.Title, task.ID, task.ProjectID)
	jsonCreated(w, task)
}

// GetByID returns a task by ID if the caller can see its project board.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return
	}

	ctx := r.Context()

	task, err := h.storage.Tasks().GetByID(ctx, id)
	if err != nil {
		log.Printf("get task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if task == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	scope, err := access.Tasks(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("get task error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(task.ProjectID) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	jsonOK(w, task)
}

// Update updates a task (managers only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	task, err := h.storage.Tasks().GetByID(ctx, id)
	if err != nil {
		log.Printf("update task error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if task == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	if req.Title != "" {
		if err := ValidateTitle(req.Title); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		task.Title = strings.TrimSpace(req.Title)
	}
	if req.Description != "" {
		task.Description = strings.TrimSpace(req.Description)
	}
	if req.Priority != "" {
		priority, err := ValidatePriority(req.Priority)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		task.Priority = priority
	}
	if req.Status != "" {
		status, err := ValidateStatus(req.Status)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		task.Status = status
	}
	if req.BoardOrder != nil {
		task.BoardOrder = *req.BoardOrder
	}
	if req.DueDate != "" {
		dueDate, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "due_date must be in YYYY-MM-DD format")
			return
		}
		task.DueDate = dueDate
	}
	task.UpdatedAt = time.Now()

	if err := h.storage.Tasks().Update(ctx, task); err != nil {
		log.Printf("update task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("task updated: %s (%s)", task.Title, task.ID)
	jsonOK(w, task)
}

// Delete soft-deletes a task (managers only).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return
	}

	ctx := r.Context()
	if err := h.storage.Tasks().Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
			return
		}
		log.Printf("delete task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	metrics.SoftDeletesTotal.WithLabelValues("task").Inc()

	log.Printf("task deleted: %s", id)
	jsonNoContent(w)
}

// Assign assigns a task to an employee (managers only). Re-assigning a
// previously unassigned pair revives the original assignment row.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.EmployeeID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "employee_id is required")
		return
	}

	ctx := r.Context()

	task, err := h.storage.Tasks().GetByID(ctx, id)
	if err != nil {
		log.Printf("assign task error: get task: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if task == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	employee, err := h.storage.Users().GetByID(ctx, req.EmployeeID)
	if err != nil {
		log.Printf("assign task error: get employee: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if employee == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "employee not found")
		return
	}

	assignment := &models.TaskAssignment{
		ID:           uuid.New().String(),
		TaskID:       id,
		EmployeeID:   req.EmployeeID,
		AssignedByID: middleware.GetUserID(ctx),
		AssignedAt:   time.Now(),
	}
	if err := h.storage.Tasks().Assign(ctx, assignment); err != nil {
		log.Printf("assign task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("task %s assigned to %s", id, req.EmployeeID)
	jsonNoContent(w)
}

// Unassign stamps the assignment's unassigned_at (managers only). The
// row stays behind as history.
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	employeeID := chi.URLParam(r, "employeeID")
	if taskID == "" || employeeID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id and employee id required")
		return
	}

	ctx := r.Context()
	if err := h.storage.Tasks().Unassign(ctx, taskID, employeeID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "assignment not found")
			return
		}
		log.Printf("unassign task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("task %s unassigned from %s", taskID, employeeID)
	jsonNoContent(w)
}

// ListAssignments returns the assignment history for a task.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return
	}

	ctx := r.Context()

	task, err := h.storage.Tasks().GetByID(ctx, id)
	if err != nil {
		log.Printf("list assignments error: get task: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if task == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	scope, err := access.Tasks(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("list assignments error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(task.ProjectID) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	assignments, err := h.storage.Tasks().ListAssignments(ctx, id)
	if err != nil {
		log.Printf("list assignments error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, assignments)
}
