// Package roles exposes the fixed role registry.
package roles

import (
	"encoding/json"
	"net/http"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

type dataResponse struct {
	Data any `json:"data"`
}

// RoleInfo describes one registry entry.
type RoleInfo struct {
	Name            string `json:"name"`
	ManagesProjects bool   `json:"manages_projects"`
	ManagesSales    bool   `json:"manages_sales"`
	ManagesUsers    bool   `json:"manages_users"`
}

// Handler handles role registry endpoints.
type Handler struct{}

// NewHandler creates a new role handler.
func NewHandler() *Handler {
	return &Handler{}
}

// List returns the role registry. The set is closed; there is no
// create/update/delete surface.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	resp := make([]RoleInfo, len(models.Roles))
	for i, role := range models.Roles {
		resp[i] = RoleInfo{
			Name:            string(role),
			ManagesProjects: role.CanManageProjects(),
			ManagesSales:    role.CanManageSales(),
			ManagesUsers:    role.IsSuperAdmin(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: resp})
}
