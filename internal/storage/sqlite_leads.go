package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

type sqliteLeadRepo struct {
	db *sql.DB
}

const leadColumns = `id, name, email, phone, source, status, converted_project_id, created_at, updated_at, deleted_at`

func scanLead(row interface{ Scan(...any) error }) (*models.Lead, error) {
	lead := &models.Lead{}
	var phone, source, convertedProjectID sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &phone, &source,
		&lead.Status, &convertedProjectID,
		&lead.CreatedAt, &lead.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.Phone = phone.String
	lead.Source = source.String
	lead.ConvertedProjectID = convertedProjectID.String
	if deletedAt.Valid {
		lead.DeletedAt = &deletedAt.Time
	}
	return lead, nil
}

func (r *sqliteLeadRepo) Create(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, name, email, phone, source, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.Name, lead.Email,
		nullString(lead.Phone), nullString(lead.Source), lead.Status,
		lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteLeadRepo) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = ? AND deleted_at IS NULL`
	lead, err := scanLead(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by id: %w", err)
	}
	return lead, nil
}

func (r *sqliteLeadRepo) GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = ?`
	lead, err := scanLead(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by id: %w", err)
	}
	return lead, nil
}

func (r *sqliteLeadRepo) Update(ctx context.Context, lead *models.Lead) error {
	query := `
		UPDATE leads SET name = ?, email = ?, phone = ?, source = ?, status = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		lead.Name, lead.Email,
		nullString(lead.Phone), nullString(lead.Source), lead.Status,
		lead.UpdatedAt, lead.ID,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", translateConstraintErr(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("lead %s: %w", lead.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteLeadRepo) Delete(ctx context.Context, id string) error {
	query := `UPDATE leads SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := r.GetByIDIncludeDeleted(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("lead %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (r *sqliteLeadRepo) List(ctx context.Context) ([]*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE deleted_at IS NULL ORDER BY created_at DESC`
	return r.queryLeads(ctx, query)
}

func (r *sqliteLeadRepo) ListAssignedTo(ctx context.Context, userID string) ([]*models.Lead, error) {
	query := `
		SELECT l.id, l.name, l.email, l.phone, l.source, l.status, l.converted_project_id, l.created_at, l.updated_at, l.deleted_at
		FROM leads l
		INNER JOIN lead_assignments la ON la.lead_id = l.id
		WHERE la.sales_exec_id = ? AND l.deleted_at IS NULL
		ORDER BY l.created_at DESC
	`
	return r.queryLeads(ctx, query, userID)
}

func (r *sqliteLeadRepo) queryLeads(ctx context.Context, query string, args ...any) ([]*models.Lead, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *sqliteLeadRepo) Assign(ctx context.Context, assignment *models.LeadAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.New().String()
	}

	query := `
		INSERT INTO lead_assignments (id, lead_id, sales_exec_id, assigned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (lead_id, sales_exec_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.LeadID, assignment.SalesExecID, assignment.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("assign lead: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteLeadRepo) AddFollowup(ctx context.Context, followup *models.LeadFollowup) error {
	if followup.ID == "" {
		followup.ID = uuid.New().String()
	}

	query := `
		INSERT INTO lead_followups (id, lead_id, followup_type, notes, next_followup, status, created_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		followup.ID, followup.LeadID, followup.Type,
		nullString(followup.Notes), nullTime(followup.NextFollowup),
		followup.Status, followup.CreatedByID, followup.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead followup: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteLeadRepo) ListFollowups(ctx context.Context, leadID string) ([]*models.LeadFollowup, error) {
	query := `
		SELECT id, lead_id, followup_type, notes, next_followup, status, created_by_id, created_at
		FROM lead_followups
		WHERE lead_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead followups: %w", err)
	}
	defer rows.Close()

	var followups []*models.LeadFollowup
	for rows.Next() {
		f := &models.LeadFollowup{}
		var notes sql.NullString
		var next sql.NullTime
		err := rows.Scan(&f.ID, &f.LeadID, &f.Type, &notes, &next, &f.Status, &f.CreatedByID, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan lead followup: %w", err)
		}
		f.Notes = notes.String
		f.NextFollowup = next.Time
		followups = append(followups, f)
	}
	return followups, rows.Err()
}

// Convert creates the project and flips the lead to converted in one
// transaction. The status flip is a compare-and-set: the UPDATE only
// matches while the lead is not yet converted, so a second caller rolls
// back without leaving an orphan project behind.
func (r *sqliteLeadRepo) Convert(ctx context.Context, leadID string, project *models.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conversion: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, client_id, department_id, manager_id, created_by_id, start_date, end_date, status, progress_percentage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		project.ID, project.Name,
		nullString(project.ClientID), nullString(project.DepartmentID),
		nullString(project.ManagerID), nullString(project.CreatedByID),
		nullTime(project.StartDate), nullTime(project.EndDate),
		project.Status, project.ProgressPercentage,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert converted project: %w", translateConstraintErr(err))
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE leads SET status = ?, converted_project_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL AND status <> ?
	`,
		models.LeadConverted, project.ID, time.Now(),
		leadID, models.LeadConverted,
	)
	if err != nil {
		return fmt.Errorf("mark lead converted: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Either the lead is gone or it already converted. The rollback
		// discards the project insert either way. Query through the tx:
		// the pool has a single connection and the tx is holding it.
		lead, err := scanLead(tx.QueryRowContext(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE id = ?`, leadID))
		if err == sql.ErrNoRows || (err == nil && lead.DeletedAt != nil) {
			return fmt.Errorf("lead %s: %w", leadID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get lead by id: %w", err)
		}
		if lead.Status == models.LeadConverted {
			return fmt.Errorf("lead %s: %w", leadID, ErrAlreadyConverted)
		}
		return fmt.Errorf("lead %s: %w", leadID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit conversion: %w", err)
	}
	return nil
}
