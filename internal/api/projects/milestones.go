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

const maxMilestoneTitleLen = 200

// MilestoneRequest is the request body for creating or updating a milestone.
type MilestoneRequest struct {
	Title   string `json:"title,omitempty"`
	DueDate string `json:"due_date,omitempty"` // YYYY-MM-DD
	Status  string `json:"status,omitempty"`
}

func validateMilestoneTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if len(title) > maxMilestoneTitleLen {
		return &ValidationError{Field: "title", Message: "title must be at most 200 characters"}
	}
	return nil
}

// ListMilestones returns the milestones of a project the caller can see.
func (h *Handler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()

	scope, err := access.Projects(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("list milestones error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("list milestones error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	milestones, err := h.storage.Projects().ListMilestones(ctx, id)
	if err != nil {
		log.Printf("list milestones error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, milestones)
}

// AddMilestone creates a milestone on a project (managers only).
func (h *Handler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	var req MilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := validateMilestoneTitle(req.Title); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	status := models.MilestonePending
	if req.Status != "" {
		status = models.MilestoneStatus(req.Status)
		if !status.Valid() {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "status must be one of: pending, completed")
			return
		}
	}

	dueDate, err := ParseDate("due_date", req.DueDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("add milestone error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	now := time.Now()
	milestone := &models.Milestone{
		ID:        uuid.New().String(),
		ProjectID: id,
		Title:     strings.TrimSpace(req.Title),
		DueDate:   dueDate,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.storage.Projects().AddMilestone(ctx, milestone); err != nil {
		log.Printf("add milestone error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("milestone created: %s on project %s", milestone.Title, id)
	jsonCreated(w, milestone)
}

// UpdateMilestone updates a milestone (managers only).
func (h *Handler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	milestoneID := chi.URLParam(r, "milestoneID")
	if projectID == "" || milestoneID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id and milestone id required")
		return
	}

	var req MilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	milestones, err := h.storage.Projects().ListMilestones(ctx, projectID)
	if err != nil {
		log.Printf("update milestone error: list: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	var milestone *models.Milestone
	for _, m := range milestones {
		if m.ID == milestoneID {
			milestone = m
			break
		}
	}
	if milestone == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "milestone not found")
		return
	}

	if req.Title != "" {
		if err := validateMilestoneTitle(req.Title); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		milestone.Title = strings.TrimSpace(req.Title)
	}
	if req.DueDate != "" {
		dueDate, err := ParseDate("due_date", req.DueDate)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		milestone.DueDate = dueDate
	}
	if req.Status != "" {
		status := models.MilestoneStatus(req.Status)
		if !status.Valid() {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "status must be one of: pending, completed")
			return
		}
		milestone.Status = status
	}

	milestone.UpdatedAt = time.Now()

	if err := h.storage.Projects().UpdateMilestone(ctx, milestone); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "milestone not found")
			return
		}
		log.Printf("update milestone error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, milestone)
}

// DeleteMilestone soft-deletes a milestone (managers only).
func (h *Handler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	milestoneID := chi.URLParam(r, "milestoneID")
	if projectID == "" || milestoneID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id and milestone id required")
		return
	}

	ctx := r.Context()

	if err := h.storage.Projects().DeleteMilestone(ctx, projectID, milestoneID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "milestone not found")
			return
		}
		log.Printf("delete milestone error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	metrics.SoftDeletesTotal.WithLabelValues("milestone").Inc()

	log.Printf("milestone deleted: %s on project %s", milestoneID, projectID)
	jsonNoContent(w)
}
