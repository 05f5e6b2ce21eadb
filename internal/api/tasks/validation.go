// Package tasks provides task board API endpoints.
package tasks

import (
	"strings"

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

// ValidateTitle validates a task title.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if len(title) > 255 {
		return &ValidationError{Field: "title", Message: "title must be at most 255 characters"}
	}
	return nil
}

// ValidateStatus validates a task status string.
func ValidateStatus(status string) (models.TaskStatus, error) {
	s := models.TaskStatus(status)
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: "status must be one of: todo, in_progress, done, blocked"}
	}
	return s, nil
}

// ValidatePriority validates a task priority string.
func ValidatePriority(priority string) (models.TaskPriority, error) {
	p := models.TaskPriority(priority)
	if !p.Valid() {
		return "", &ValidationError{Field: "priority", Message: "priority must be one of: low, medium, high"}
	}
	return p, nil
}
