package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

const projectColumns = `id, name, client_id, department_id, manager_id, created_by_id, start_date, end_date, status, progress_percentage, created_at, updated_at, deleted_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	project := &models.Project{}
	var clientID, deptID, managerID, createdByID sql.NullString
	var startDate, endDate, deletedAt sql.NullTime
	err := row.Scan(
		&project.ID, &project.Name, &clientID, &deptID, &managerID, &createdByID,
		&startDate, &endDate, &project.Status, &project.ProgressPercentage,
		&project.CreatedAt, &project.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	project.ClientID = clientID.String
	project.DepartmentID = deptID.String
	project.ManagerID = managerID.String
	project.CreatedByID = createdByID.String
	project.StartDate = startDate.Time
	project.EndDate = endDate.Time
	if deletedAt.Valid {
		project.DeletedAt = &deletedAt.Time
	}
	return project, nil
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, name, client_id, department_id, manager_id, created_by_id, start_date, end_date, status, progress_percentage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		project.ID, project.Name,
		nullString(project.ClientID), nullString(project.DepartmentID),
		nullString(project.ManagerID), nullString(project.CreatedByID),
		nullTime(project.StartDate), nullTime(project.EndDate),
		project.Status, project.ProgressPercentage,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ? AND deleted_at IS NULL`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects SET name = ?, client_id = ?, department_id = ?, manager_id = ?, start_date = ?, end_date = ?, status = ?, progress_percentage = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Name,
		nullString(project.ClientID), nullString(project.DepartmentID),
		nullString(project.ManagerID),
		nullTime(project.StartDate), nullTime(project.EndDate),
		project.Status, project.ProgressPercentage, project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", translateConstraintErr(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteProjectRepo) Delete(ctx context.Context, id string) error {
	query := `UPDATE projects SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := r.GetByIDIncludeDeleted(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (r *sqliteProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE deleted_at IS NULL ORDER BY name`
	return r.queryProjects(ctx, query)
}

func (r *sqliteProjectRepo) ListForMember(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT p.id, p.name, p.client_id, p.department_id, p.manager_id, p.created_by_id, p.start_date, p.end_date, p.status, p.progress_percentage, p.created_at, p.updated_at, p.deleted_at
		FROM projects p
		INNER JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = ? AND p.deleted_at IS NULL
		ORDER BY p.name
	`
	return r.queryProjects(ctx, query, userID)
}

func (r *sqliteProjectRepo) queryProjects(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *sqliteProjectRepo) AddMember(ctx context.Context, member *models.ProjectMember) error {
	query := `
		INSERT INTO project_members (project_id, user_id, role_in_project, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role_in_project = excluded.role_in_project
	`
	_, err := r.db.ExecContext(ctx, query,
		member.ProjectID, member.UserID, member.RoleInProject, member.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("add project member: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteProjectRepo) RemoveMember(ctx context.Context, projectID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM project_members WHERE project_id = ? AND user_id = ?",
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove project member: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("membership %s/%s: %w", projectID, userID, ErrNotFound)
	}
	return nil
}

func (r *sqliteProjectRepo) ListMembers(ctx context.Context, projectID string) ([]*models.ProjectMember, error) {
	query := `
		SELECT pm.project_id, pm.user_id, u.username, u.email, pm.role_in_project, pm.added_at
		FROM project_members pm
		INNER JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = ?
		ORDER BY u.username
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	var members []*models.ProjectMember
	for rows.Next() {
		member := &models.ProjectMember{}
		err := rows.Scan(
			&member.ProjectID, &member.UserID, &member.Username, &member.Email,
			&member.RoleInProject, &member.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *sqliteProjectRepo) AddMilestone(ctx context.Context, milestone *models.Milestone) error {
	query := `
		INSERT INTO project_milestones (id, project_id, title, due_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		milestone.ID, milestone.ProjectID, milestone.Title,
		nullTime(milestone.DueDate), milestone.Status,
		milestone.CreatedAt, milestone.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert milestone: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteProjectRepo) UpdateMilestone(ctx context.Context, milestone *models.Milestone) error {
	query := `
		UPDATE project_milestones SET title = ?, due_date = ?, status = ?, updated_at = ?
		WHERE id = ? AND project_id = ? AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		milestone.Title, nullTime(milestone.DueDate), milestone.Status, milestone.UpdatedAt,
		milestone.ID, milestone.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("update milestone: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("milestone %s: %w", milestone.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteProjectRepo) DeleteMilestone(ctx context.Context, projectID, milestoneID string) error {
	query := `UPDATE project_milestones SET deleted_at = ?, updated_at = ? WHERE id = ? AND project_id = ? AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), time.Now(), milestoneID, projectID)
	if err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("milestone %s: %w", milestoneID, ErrNotFound)
	}
	return nil
}

func (r *sqliteProjectRepo) ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	query := `
		SELECT id, project_id, title, due_date, status, created_at, updated_at
		FROM project_milestones
		WHERE project_id = ? AND deleted_at IS NULL
		ORDER BY due_date, created_at
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []*models.Milestone
	for rows.Next() {
		m := &models.Milestone{}
		var dueDate sql.NullTime
		err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &dueDate, &m.Status, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		m.DueDate = dueDate.Time
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func (r *sqliteProjectRepo) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM project_members WHERE project_id = ? AND user_id = ?",
		projectID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check project membership: %w", err)
	}
	return count > 0, nil
}
