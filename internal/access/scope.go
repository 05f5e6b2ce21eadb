// Package access computes per-request row visibility scopes. Scopes are
// derived from the role and membership rows at request time and never
// cached across requests.
package access

import (
	"context"

	"github.com/brightpath-dev/opsdesk/internal/models"
	"github.com/brightpath-dev/opsdesk/internal/storage"
)

// ProjectScope defines which projects a user can see.
type ProjectScope struct {
	All        bool     // Role-wide override - can see everything
	ProjectIDs []string // Specific project IDs the user can access
}

// CanAccess checks if the scope covers a specific project.
func (s *ProjectScope) CanAccess(projectID string) bool {
	if s.All {
		return true
	}
	for _, id := range s.ProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// LeadScope defines which leads a user can see.
type LeadScope struct {
	All     bool
	LeadIDs []string
}

// CanAccess checks if the scope covers a specific lead.
func (s *LeadScope) CanAccess(leadID string) bool {
	if s.All {
		return true
	}
	for _, id := range s.LeadIDs {
		if id == leadID {
			return true
		}
	}
	return false
}

// Projects returns the project visibility scope for a user. Super admins
// and project managers see all projects; everyone else sees the projects
// they are a member of.
func Projects(ctx context.Context, store storage.Storage, userID string, role models.Role) (*ProjectScope, error) {
	if role.CanManageProjects() {
		return &ProjectScope{All: true}, nil
	}

	projects, err := store.Projects().ListForMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	projectIDs := make([]string, len(projects))
	for i, p := range projects {
		projectIDs[i] = p.ID
	}
	return &ProjectScope{ProjectIDs: projectIDs}, nil
}

// Tasks returns the task visibility scope for a user, expressed in terms
// of the projects whose boards the user can see. Project managers see all
// boards, not only the ones they joined.
func Tasks(ctx context.Context, store storage.Storage, userID string, role models.Role) (*ProjectScope, error) {
	if role.CanManageProjects() {
		return &ProjectScope{All: true}, nil
	}

	projects, err := store.Projects().ListForMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	projectIDs := make([]string, len(projects))
	for i, p := range projects {
		projectIDs[i] = p.ID
	}
	return &ProjectScope{ProjectIDs: projectIDs}, nil
}

// Leads returns the lead visibility scope for a user. Sales managers see
// the whole pipeline; everyone else sees only leads with an assignment
// row naming them, which for most roles is an empty set.
func Leads(ctx context.Context, store storage.Storage, userID string, role models.Role) (*LeadScope, error) {
	if role.CanManageSales() {
		return &LeadScope{All: true}, nil
	}

	leads, err := store.Leads().ListAssignedTo(ctx, userID)
	if err != nil {
		return nil, err
	}

	leadIDs := make([]string, len(leads))
	for i, l := range leads {
		leadIDs[i] = l.ID
	}
	return &LeadScope{LeadIDs: leadIDs}, nil
}
