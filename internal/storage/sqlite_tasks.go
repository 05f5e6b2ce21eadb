package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

type sqliteTaskRepo struct {
	db *sql.DB
}

const taskColumns = `id, project_id, title, description, priority, status, board_order, due_date, created_by_id, created_at, updated_at, deleted_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	task := &models.Task{}
	var description, createdByID sql.NullString
	var dueDate, deletedAt sql.NullTime
	err := row.Scan(
		&task.ID, &task.ProjectID, &task.Title, &description,
		&task.Priority, &task.Status, &task.BoardOrder, &dueDate, &createdByID,
		&task.CreatedAt, &task.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Description = description.String
	task.CreatedByID = createdByID.String
	task.DueDate = dueDate.Time
	if deletedAt.Valid {
		task.DeletedAt = &deletedAt.Time
	}
	return task, nil
}

func (r *sqliteTaskRepo) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, project_id, title, description, priority, status, board_order, due_date, created_by_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.ProjectID, task.Title, nullString(task.Description),
		task.Priority, task.Status, task.BoardOrder,
		nullTime(task.DueDate), nullString(task.CreatedByID),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteTaskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND deleted_at IS NULL`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return task, nil
}

func (r *sqliteTaskRepo) GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return task, nil
}

func (r *sqliteTaskRepo) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?, board_order = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		task.Title, nullString(task.Description), task.Priority, task.Status,
		task.BoardOrder, nullTime(task.DueDate), task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", translateConstraintErr(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteTaskRepo) Delete(ctx context.Context, id string) error {
	query := `UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := r.GetByIDIncludeDeleted(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (r *sqliteTaskRepo) List(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`
	args := []any{}
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY board_order, created_at`
	return r.queryTasks(ctx, query, args...)
}

func (r *sqliteTaskRepo) ListForMember(ctx context.Context, userID string, filter TaskFilter) ([]*models.Task, error) {
	query := `
		SELECT t.id, t.project_id, t.title, t.description, t.priority, t.status, t.board_order, t.due_date, t.created_by_id, t.created_at, t.updated_at, t.deleted_at
		FROM tasks t
		INNER JOIN project_members pm ON pm.project_id = t.project_id
		WHERE pm.user_id = ? AND t.deleted_at IS NULL
	`
	args := []any{userID}
	if filter.ProjectID != "" {
		query += ` AND t.project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY t.board_order, t.created_at`
	return r.queryTasks(ctx, query, args...)
}

func (r *sqliteTaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *sqliteTaskRepo) Assign(ctx context.Context, assignment *models.TaskAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.New().String()
	}

	// Re-assigning a previously unassigned pair revives the existing row.
	query := `
		INSERT INTO task_assignments (id, task_id, employee_id, assigned_by_id, assigned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (task_id, employee_id) DO UPDATE SET
			assigned_by_id = excluded.assigned_by_id,
			assigned_at = excluded.assigned_at,
			unassigned_at = NULL
	`
	_, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.TaskID, assignment.EmployeeID,
		nullString(assignment.AssignedByID), assignment.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("assign task: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteTaskRepo) Unassign(ctx context.Context, taskID, employeeID string) error {
	query := `
		UPDATE task_assignments SET unassigned_at = ?
		WHERE task_id = ? AND employee_id = ? AND unassigned_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), taskID, employeeID)
	if err != nil {
		return fmt.Errorf("unassign task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("assignment %s/%s: %w", taskID, employeeID, ErrNotFound)
	}
	return nil
}

func (r *sqliteTaskRepo) AddComment(ctx context.Context, comment *models.TaskComment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}

	query := `
		INSERT INTO task_comments (id, task_id, user_id, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.TaskID, comment.UserID, comment.Comment, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task comment: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteTaskRepo) ListComments(ctx context.Context, taskID string) ([]*models.TaskComment, error) {
	query := `
		SELECT c.id, c.task_id, c.user_id, u.username, c.comment, c.created_at
		FROM task_comments c
		INNER JOIN users u ON u.id = c.user_id
		WHERE c.task_id = ? AND c.deleted_at IS NULL
		ORDER BY c.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.TaskComment
	for rows.Next() {
		c := &models.TaskComment{}
		err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Username, &c.Comment, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan task comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *sqliteTaskRepo) ListAssignments(ctx context.Context, taskID string) ([]*models.TaskAssignment, error) {
	query := `
		SELECT id, task_id, employee_id, assigned_by_id, assigned_at, unassigned_at
		FROM task_assignments
		WHERE task_id = ?
		ORDER BY assigned_at
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.TaskAssignment
	for rows.Next() {
		assignment := &models.TaskAssignment{}
		var assignedByID sql.NullString
		var unassignedAt sql.NullTime
		err := rows.Scan(
			&assignment.ID, &assignment.TaskID, &assignment.EmployeeID,
			&assignedByID, &assignment.AssignedAt, &unassignedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task assignment: %w", err)
		}
		assignment.AssignedByID = assignedByID.String
		if unassignedAt.Valid {
			assignment.UnassignedAt = &unassignedAt.Time
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}
