package tasks

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/access"
	"github.com/brightpath-dev/opsdesk/internal/api/middleware"
	"github.com/brightpath-dev/opsdesk/internal/models"
)

// CommentRequest is the request body for commenting on a task.
type CommentRequest struct {
	Comment string `json:"comment"`
}

// ListComments returns the comments on a task the caller can see.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return
	}

	ctx := r.Context()

	task, err := h.storage.Tasks().GetByID(ctx, id)
	if err != nil {
		log.Printf("list comments error: get task: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if task == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	scope, err := access.Tasks(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("list comments error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(task.ProjectID) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	comments, err := h.storage.Tasks().ListComments(ctx, id)
	if err != nil {
		log.Printf("list comments error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, comments)
}

// AddComment appends a comment to a task. Any caller who can see the
// task's board may comment.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Comment) == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "comment is required")
		return
	}

	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)

	task, err := h.storage.Tasks().GetByID(ctx, id)
	if err != nil {
		log.Printf("add comment error: get task: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if task == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	scope, err := access.Tasks(ctx, h.storage, actorID, middleware.GetRole(ctx))
	if err != nil {
		log.Printf("add comment error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(task.ProjectID) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return
	}

	comment := &models.TaskComment{
		ID:        uuid.New().String(),
		TaskID:    id,
		UserID:    actorID,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: time.Now(),
	}
	if err := h.storage.Tasks().AddComment(ctx, comment); err != nil {
		log.Printf("add comment error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("comment added to task %s by %s", id, actorID)
	jsonCreated(w, comment)
}
