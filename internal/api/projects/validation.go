// Package projects provides project management API endpoints.
package projects

import (
	"strings"
	"time"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

// ValidationError contains validation error details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateName validates a project name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) > 255 {
		return &ValidationError{Field: "name", Message: "name must be at most 255 characters"}
	}
	return nil
}

// ValidateStatus validates a project status string.
func ValidateStatus(status string) (models.ProjectStatus, error) {
	s := models.ProjectStatus(status)
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: "status must be one of: not_started, in_progress, on_hold, completed"}
	}
	return s, nil
}

// ValidateProgress validates a progress percentage.
func ValidateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return &ValidationError{Field: "progress_percentage", Message: "progress must be between 0 and 100"}
	}
	return nil
}

// ParseDate parses a date in YYYY-MM-DD form. Empty strings parse to the
// zero time.
func ParseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Message: field + " must be in YYYY-MM-DD format"}
	}
	return t, nil
}
