package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

type sqliteDepartmentRepo struct {
	db *sql.DB
}

const departmentColumns = `id, name, parent_id, created_at, updated_at, deleted_at`

func scanDepartment(row interface{ Scan(...any) error }) (*models.Department, error) {
	dept := &models.Department{}
	var parentID sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&dept.ID, &dept.Name, &parentID,
		&dept.CreatedAt, &dept.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	dept.ParentID = parentID.String
	if deletedAt.Valid {
		dept.DeletedAt = &deletedAt.Time
	}
	return dept, nil
}

func (r *sqliteDepartmentRepo) Create(ctx context.Context, dept *models.Department) error {
	query := `
		INSERT INTO departments (id, name, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		dept.ID, dept.Name, nullString(dept.ParentID),
		dept.CreatedAt, dept.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert department: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteDepartmentRepo) GetByID(ctx context.Context, id string) (*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = ? AND deleted_at IS NULL`
	dept, err := scanDepartment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get department by id: %w", err)
	}
	return dept, nil
}

func (r *sqliteDepartmentRepo) GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = ?`
	dept, err := scanDepartment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get department by id: %w", err)
	}
	return dept, nil
}

func (r *sqliteDepartmentRepo) Update(ctx context.Context, dept *models.Department) error {
	query := `
		UPDATE departments SET name = ?, parent_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		dept.Name, nullString(dept.ParentID), dept.UpdatedAt,
		dept.ID,
	)
	if err != nil {
		return fmt.Errorf("update department: %w", translateConstraintErr(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("department %s: %w", dept.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteDepartmentRepo) Delete(ctx context.Context, id string) error {
	query := `UPDATE departments SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := r.GetByIDIncludeDeleted(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("department %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (r *sqliteDepartmentRepo) List(ctx context.Context) ([]*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE deleted_at IS NULL ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var depts []*models.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		depts = append(depts, dept)
	}
	return depts, rows.Err()
}
