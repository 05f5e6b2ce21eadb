package models

import (
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectNotStarted ProjectStatus = "not_started"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectOnHold     ProjectStatus = "on_hold"
	ProjectCompleted  ProjectStatus = "completed"
)

// Valid returns true if the status is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectNotStarted, ProjectInProgress, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

// Project is a unit of client work. Every project has exactly one manager
// and one department; the department reference is cleared only when the
// department itself is removed.
type Project struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	ClientID           string        `json:"client_id"`
	DepartmentID       string        `json:"department_id,omitempty"`
	ManagerID          string        `json:"manager_id"`
	CreatedByID        string        `json:"created_by_id"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `json:"end_date"`
	Status             ProjectStatus `json:"status"`
	ProgressPercentage int           `json:"progress_percentage"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	DeletedAt          *time.Time    `json:"deleted_at,omitempty"`
}

// ProjectRole is a member's role within a single project.
type ProjectRole string

const (
	ProjectRolePM     ProjectRole = "PM"
	ProjectRoleMember ProjectRole = "MEMBER"
	ProjectRoleQA     ProjectRole = "QA"
	ProjectRoleViewer ProjectRole = "VIEWER"
)

// Valid returns true if the project role is a known value.
func (r ProjectRole) Valid() bool {
	switch r {
	case ProjectRolePM, ProjectRoleMember, ProjectRoleQA, ProjectRoleViewer:
		return true
	}
	return false
}

// ProjectMember is a user's membership in a project. A user holds at most
// one membership role per project.
type ProjectMember struct {
	ProjectID     string      `json:"project_id"`
	UserID        string      `json:"user_id"`
	Username      string      `json:"username,omitempty"`
	Email         string      `json:"email,omitempty"`
	RoleInProject ProjectRole `json:"role_in_project"`
	AddedAt       time.Time   `json:"added_at"`
}

// MilestoneStatus is the completion state of a milestone.
type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneCompleted MilestoneStatus = "completed"
)

// Valid returns true if the milestone status is a known value.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePending, MilestoneCompleted:
		return true
	}
	return false
}

// Milestone is a dated checkpoint on a project's timeline.
type Milestone struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Title     string          `json:"title"`
	DueDate   time.Time       `json:"due_date"`
	Status    MilestoneStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// Client is an external customer that owns projects.
type Client struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	CompanyName string     `json:"company_name"`
	GSTNo       string     `json:"gst_no,omitempty"`
	Address     string     `json:"address,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
