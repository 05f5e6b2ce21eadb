package models

import (
	"time"
)

// Role is a user's capability class. The set is closed: scoping decisions
// depend only on the role name, never on a derived permission matrix.
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleTeamMember     Role = "TEAM_MEMBER"
	RoleSalesManager   Role = "SALES_MANAGER"
	RoleSalesExecutive Role = "SALES_EXECUTIVE"
	RoleClient         Role = "CLIENT"
)

// Roles lists every valid role, in registry order.
var Roles = []Role{
	RoleSuperAdmin,
	RoleProjectManager,
	RoleTeamMember,
	RoleSalesManager,
	RoleSalesExecutive,
	RoleClient,
}

// Valid returns true if the role is one of the registry values.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleProjectManager, RoleTeamMember,
		RoleSalesManager, RoleSalesExecutive, RoleClient:
		return true
	}
	return false
}

// IsSuperAdmin returns true for the SUPER_ADMIN role.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// CanManageProjects returns true if the role may see and mutate every
// project and task regardless of membership.
func (r Role) CanManageProjects() bool {
	return r == RoleSuperAdmin || r == RoleProjectManager
}

// CanManageSales returns true if the role may see every lead and run
// lead conversion.
func (r Role) CanManageSales() bool {
	return r == RoleSuperAdmin || r == RoleSalesManager
}

// ParseRole converts a string to a Role. Unknown names yield the
// invalid zero Role; callers gate on Valid().
func ParseRole(s string) Role {
	r := Role(s)
	if r.Valid() {
		return r
	}
	return ""
}

// UserStatus is the activation state of a user account.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User represents a system actor. Users are never hard-deleted; they are
// deactivated via status or soft delete.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Role         Role       `json:"role"`
	DepartmentID string     `json:"department_id,omitempty"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// IsActive returns true if the user is neither soft-deleted nor deactivated.
func (u *User) IsActive() bool {
	return u.DeletedAt == nil && u.Status == UserActive
}

// Department is an organizational unit. Departments form an optional
// hierarchy via ParentID.
type Department struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ParentID  string     `json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
