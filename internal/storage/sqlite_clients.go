package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

type sqliteClientRepo struct {
	db *sql.DB
}

const clientColumns = `id, name, email, phone, company_name, gst_no, address, created_at, updated_at, deleted_at`

func scanClient(row interface{ Scan(...any) error }) (*models.Client, error) {
	client := &models.Client{}
	var phone, companyName, gstNo, address sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&client.ID, &client.Name, &client.Email, &phone, &companyName, &gstNo, &address,
		&client.CreatedAt, &client.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	client.Phone = phone.String
	client.CompanyName = companyName.String
	client.GSTNo = gstNo.String
	client.Address = address.String
	if deletedAt.Valid {
		client.DeletedAt = &deletedAt.Time
	}
	return client, nil
}

func (r *sqliteClientRepo) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (id, name, email, phone, company_name, gst_no, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		client.ID, client.Name, client.Email,
		nullString(client.Phone), nullString(client.CompanyName),
		nullString(client.GSTNo), nullString(client.Address),
		client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", translateConstraintErr(err))
	}
	return nil
}

func (r *sqliteClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ? AND deleted_at IS NULL`
	client, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client by id: %w", err)
	}
	return client, nil
}

func (r *sqliteClientRepo) GetByIDIncludeDeleted(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ?`
	client, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client by id: %w", err)
	}
	return client, nil
}

func (r *sqliteClientRepo) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients SET name = ?, email = ?, phone = ?, company_name = ?, gst_no = ?, address = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		client.Name, client.Email,
		nullString(client.Phone), nullString(client.CompanyName),
		nullString(client.GSTNo), nullString(client.Address),
		client.UpdatedAt, client.ID,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", translateConstraintErr(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("client %s: %w", client.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteClientRepo) Delete(ctx context.Context, id string) error {
	query := `UPDATE clients SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := r.GetByIDIncludeDeleted(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (r *sqliteClientRepo) List(ctx context.Context) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE deleted_at IS NULL ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}
