// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

// Sentinel errors surfaced by repositories. Callers match with errors.Is.
// Getters return (nil, nil) when a row is absent; writes against a missing
// row wrap ErrNotFound.
var (
	// ErrNotFound means the row is absent or soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a uniqueness constraint was violated.
	ErrDuplicate = errors.New("duplicate")
	// ErrInvalidReference means a write named an unknown actor, project,
	// or other foreign row.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrAlreadyConverted means the lead is in the converted terminal state.
	ErrAlreadyConverted = errors.New("lead already converted")
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureSuperAdmin creates a bootstrap SUPER_ADMIN if no users exist.
	EnsureSuperAdmin() error

	// Repository accessors
	Users() UserRepository
	Departments() DepartmentRepository
	Clients() ClientRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	Leads() LeadRepository
	Activity() ActivityRepository
	Tokens() TokenRepository
	Reports() ReportRepository
}

// UserFilter narrows user listings.
type UserFilter struct {
	DepartmentID string
	Role         models.Role
}

// UserRepository defines operations for user management. Default reads
// exclude soft-deleted rows.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDIncludeDeleted(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter UserFilter) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// DepartmentRepository defines operations for department management.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *models.Department) error
	GetByID(ctx context.Context, id string) (*models.Department, error)
	GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Department, error)
	Update(ctx context.Context, dept *models.Department) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Department, error)
}

// ClientRepository defines operations for client management.
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id string) (*models.Client, error)
	GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Client, error)
}

// ProjectRepository defines operations for project and membership management.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Project, error)
	// ListForMember returns the projects where the user has a membership row.
	ListForMember(ctx context.Context, userID string) ([]*models.Project, error)
	AddMember(ctx context.Context, member *models.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	ListMembers(ctx context.Context, projectID string) ([]*models.ProjectMember, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	AddMilestone(ctx context.Context, milestone *models.Milestone) error
	UpdateMilestone(ctx context.Context, milestone *models.Milestone) error
	DeleteMilestone(ctx context.Context, projectID, milestoneID string) error
	ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error)
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	ProjectID string
	Status    models.TaskStatus
}

// TaskRepository defines operations for task and assignment management.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TaskFilter) ([]*models.Task, error)
	// ListForMember returns tasks whose project has the user as a member.
	ListForMember(ctx context.Context, userID string, filter TaskFilter) ([]*models.Task, error)
	Assign(ctx context.Context, assignment *models.TaskAssignment) error
	Unassign(ctx context.Context, taskID, employeeID string) error
	ListAssignments(ctx context.Context, taskID string) ([]*models.TaskAssignment, error)
	AddComment(ctx context.Context, comment *models.TaskComment) error
	ListComments(ctx context.Context, taskID string) ([]*models.TaskComment, error)
}

// LeadRepository defines operations for the sales pipeline.
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Lead, error)
	// ListAssignedTo returns leads with an assignment row naming the user.
	ListAssignedTo(ctx context.Context, userID string) ([]*models.Lead, error)
	Assign(ctx context.Context, assignment *models.LeadAssignment) error
	// AddFollowup appends to the followup history; there is no update or
	// delete path.
	AddFollowup(ctx context.Context, followup *models.LeadFollowup) error
	ListFollowups(ctx context.Context, leadID string) ([]*models.LeadFollowup, error)
	// Convert materializes the project and flips the lead to converted in a
	// single transaction. Returns ErrAlreadyConverted if the lead is
	// already in the terminal state; no project is created in that case.
	Convert(ctx context.Context, leadID string, project *models.Project) error
}

// ActivityFilter narrows activity log listings.
type ActivityFilter struct {
	ProjectID string
	TaskID    string
	Limit     int
	Offset    int
}

// ActivityRepository defines operations for the append-only audit trail.
// There is no update or delete.
type ActivityRepository interface {
	Record(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter) ([]*models.ActivityLog, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// ReportRepository defines read-only aggregate queries.
type ReportRepository interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}
