package models

import (
	"time"
)

// LeadStatus is the pipeline state of a lead. Converted and lost are
// terminal; converted is the only transition enforced programmatically.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
)

// Valid returns true if the status is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadQualified, LeadConverted, LeadLost:
		return true
	}
	return false
}

// Lead is a sales pipeline record. Once status is converted, the lead
// references the project materialized from it and never regresses.
type Lead struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone,omitempty"`
	Source             string     `json:"source,omitempty"`
	Status             LeadStatus `json:"status"`
	ConvertedProjectID string     `json:"converted_project_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// FollowupType is the contact channel for a followup.
type FollowupType string

const (
	FollowupCall     FollowupType = "call"
	FollowupWhatsapp FollowupType = "whatsapp"
	FollowupMeeting  FollowupType = "meeting"
	FollowupEmail    FollowupType = "email"
)

// Valid returns true if the followup type is a known value.
func (t FollowupType) Valid() bool {
	switch t {
	case FollowupCall, FollowupWhatsapp, FollowupMeeting, FollowupEmail:
		return true
	}
	return false
}

// FollowupStatus is the completion state of a followup.
type FollowupStatus string

const (
	FollowupPending FollowupStatus = "pending"
	FollowupDone    FollowupStatus = "done"
)

// Valid returns true if the followup status is a known value.
func (s FollowupStatus) Valid() bool {
	switch s {
	case FollowupPending, FollowupDone:
		return true
	}
	return false
}

// LeadFollowup records a contact with a lead and schedules the next one.
// Followups are part of the pipeline history and are never removed.
type LeadFollowup struct {
	ID           string         `json:"id"`
	LeadID       string         `json:"lead_id"`
	Type         FollowupType   `json:"followup_type"`
	Notes        string         `json:"notes,omitempty"`
	NextFollowup time.Time      `json:"next_followup"`
	Status       FollowupStatus `json:"status"`
	CreatedByID  string         `json:"created_by_id"`
	CreatedAt    time.Time      `json:"created_at"`
}

// LeadAssignment names the sales executive responsible for a lead.
// Executives only see leads with an assignment row naming them.
type LeadAssignment struct {
	ID          string    `json:"id"`
	LeadID      string    `json:"lead_id"`
	SalesExecID string    `json:"sales_exec_id"`
	AssignedAt  time.Time `json:"assigned_at"`
}
