package models

import (
	"time"
)

// ActivityLog is one append-only audit fact. Entries are never updated or
// deleted after creation and are retrieved newest-first.
type ActivityLog struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	TaskID    string    `json:"task_id,omitempty"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats is the advisory cross-entity report computed over
// non-deleted rows.
type DashboardStats struct {
	TotalProjects        int64            `json:"total_projects"`
	ActiveTasks          int64            `json:"active_tasks"`
	ActiveUsers          int64            `json:"active_users"`
	TotalLeads           int64            `json:"total_leads"`
	ConvertedLeads       int64            `json:"converted_leads"`
	ConversionRate       float64          `json:"conversion_rate"`
	AvgProjectCompletion float64          `json:"avg_project_completion"`
	TaskDistribution     map[string]int64 `json:"task_distribution"`
}
