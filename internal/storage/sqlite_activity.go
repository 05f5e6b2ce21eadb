package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

// sqliteActivityRepo implements ActivityRepository using SQLite. The table
// is append-only: there is deliberately no UPDATE or DELETE here.
type sqliteActivityRepo struct {
	db *sql.DB
}

// defaultActivityLimit caps unbounded listings.
const defaultActivityLimit = 100

func (r *sqliteActivityRepo) Record(ctx context.Context, entry *models.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO activity_log (user_id, project_id, task_id, action, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		entry.UserID, entry.ProjectID, nullString(entry.TaskID),
		entry.Action, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", translateConstraintErr(err))
	}

	entry.ID, _ = result.LastInsertId()
	return nil
}

func (r *sqliteActivityRepo) List(ctx context.Context, filter ActivityFilter) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, user_id, project_id, task_id, action, created_at
		FROM activity_log WHERE 1 = 1
	`
	args := []any{}
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if filter.TaskID != "" {
		query += ` AND task_id = ?`
		args = append(args, filter.TaskID)
	}

	// Newest first. The id tiebreak keeps same-timestamp entries in
	// reverse insertion order.
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []*models.ActivityLog
	for rows.Next() {
		entry := &models.ActivityLog{}
		var taskID sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.ProjectID, &taskID,
			&entry.Action, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entry.TaskID = taskID.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
