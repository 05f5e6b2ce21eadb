package leads

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/access"
	"github.com/brightpath-dev/opsdesk/internal/api/middleware"
	"github.com/brightpath-dev/opsdesk/internal/models"
)

// FollowupRequest is the request body for recording a followup.
type FollowupRequest struct {
	Type         string `json:"followup_type"`
	Notes        string `json:"notes,omitempty"`
	NextFollowup string `json:"next_followup,omitempty"` // YYYY-MM-DD
	Status       string `json:"status,omitempty"`
}

// ListFollowups returns the followup history for a lead the caller can see.
func (h *Handler) ListFollowups(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "lead id required")
		return
	}

	ctx := r.Context()

	scope, err := access.Leads(ctx, h.storage, middleware.GetUserID(ctx), middleware.GetRole(ctx))
	if err != nil {
		log.Printf("list followups error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	lead, err := h.storage.Leads().GetByID(ctx, id)
	if err != nil {
		log.Printf("list followups error: get lead: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if lead == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	followups, err := h.storage.Leads().ListFollowups(ctx, id)
	if err != nil {
		log.Printf("list followups error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, followups)
}

// AddFollowup records a contact with a lead. Followups are history:
// there is no update or delete.
func (h *Handler) AddFollowup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "lead id required")
		return
	}

	var req FollowupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ftype := models.FollowupType(req.Type)
	if !ftype.Valid() {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "followup_type must be one of: call, whatsapp, meeting, email")
		return
	}

	status := models.FollowupPending
	if req.Status != "" {
		status = models.FollowupStatus(req.Status)
		if !status.Valid() {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "status must be one of: pending, done")
			return
		}
	}

	var next time.Time
	if req.NextFollowup != "" {
		var err error
		next, err = time.Parse("2006-01-02", req.NextFollowup)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "next_followup must be in YYYY-MM-DD format")
			return
		}
	}

	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)

	scope, err := access.Leads(ctx, h.storage, actorID, middleware.GetRole(ctx))
	if err != nil {
		log.Printf("add followup error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !scope.CanAccess(id) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	lead, err := h.storage.Leads().GetByID(ctx, id)
	if err != nil {
		log.Printf("add followup error: get lead: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if lead == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "lead not found")
		return
	}

	followup := &models.LeadFollowup{
		ID:           uuid.New().String(),
		LeadID:       id,
		Type:         ftype,
		Notes:        req.Notes,
		NextFollowup: next,
		Status:       status,
		CreatedByID:  actorID,
		CreatedAt:    time.Now(),
	}
	if err := h.storage.Leads().AddFollowup(ctx, followup); err != nil {
		log.Printf("add followup error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("followup recorded on lead %s by %s", id, actorID)
	jsonCreated(w, followup)
}
