package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Departments table
			CREATE TABLE IF NOT EXISTS departments (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				parent_id TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				deleted_at DATETIME,
				FOREIGN KEY (parent_id) REFERENCES departments(id) ON DELETE SET NULL
			);

			-- Users table
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				username TEXT UNIQUE NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'TEAM_MEMBER',
				department_id TEXT,
				status TEXT NOT NULL DEFAULT 'active',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				deleted_at DATETIME,
				FOREIGN KEY (department_id) REFERENCES departments(id) ON DELETE SET NULL
			);

			-- Clients table
			CREATE TABLE IF NOT EXISTS clients (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				phone TEXT,
				company_name TEXT,
				gst_no TEXT,
				address TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				deleted_at DATETIME
			);

			-- Projects table
			CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				client_id TEXT,
				department_id TEXT,
				manager_id TEXT,
				created_by_id TEXT,
				start_date DATETIME,
				end_date DATETIME,
				status TEXT NOT NULL DEFAULT 'not_started',
				progress_percentage INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				deleted_at DATETIME,
				FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE SET NULL,
				FOREIGN KEY (department_id) REFERENCES departments(id) ON DELETE SET NULL,
				FOREIGN KEY (manager_id) REFERENCES users(id) ON DELETE SET NULL,
				FOREIGN KEY (created_by_id) REFERENCES users(id) ON DELETE SET NULL
			);

			-- Project-User junction table (many-to-many)
			CREATE TABLE IF NOT EXISTS project_members (
				project_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				role_in_project TEXT NOT NULL DEFAULT 'MEMBER',
				added_at DATETIME NOT NULL,
				PRIMARY KEY (project_id, user_id),
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Tasks table
			CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT,
				priority TEXT NOT NULL DEFAULT 'medium',
				status TEXT NOT NULL DEFAULT 'todo',
				board_order INTEGER NOT NULL DEFAULT 0,
				due_date DATETIME,
				created_by_id TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				deleted_at DATETIME,
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
				FOREIGN KEY (created_by_id) REFERENCES users(id) ON DELETE SET NULL
			);

			-- Task assignments table
			CREATE TABLE IF NOT EXISTS task_assignments (
				id TEXT PRIMARY KEY,
				task_id TEXT NOT NULL,
				employee_id TEXT NOT NULL,
				assigned_by_id TEXT,
				assigned_at DATETIME NOT NULL,
				unassigned_at DATETIME,
				UNIQUE (task_id, employee_id),
				FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
				FOREIGN KEY (employee_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (assigned_by_id) REFERENCES users(id) ON DELETE SET NULL
			);

			-- Leads table
			CREATE TABLE IF NOT EXISTS leads (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				phone TEXT,
				source TEXT,
				status TEXT NOT NULL DEFAULT 'new',
				converted_project_id TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				deleted_at DATETIME,
				FOREIGN KEY (converted_project_id) REFERENCES projects(id) ON DELETE SET NULL
			);

			-- Lead assignments table
			CREATE TABLE IF NOT EXISTS lead_assignments (
				id TEXT PRIMARY KEY,
				lead_id TEXT NOT NULL,
				sales_exec_id TEXT NOT NULL,
				assigned_at DATETIME NOT NULL,
				UNIQUE (lead_id, sales_exec_id),
				FOREIGN KEY (lead_id) REFERENCES leads(id) ON DELETE CASCADE,
				FOREIGN KEY (sales_exec_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Activity log table (append-only)
			CREATE TABLE IF NOT EXISTS activity_log (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				project_id TEXT NOT NULL,
				task_id TEXT,
				action TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
				FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE SET NULL
			);

			-- Refresh tokens table
			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token_hash TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				revoked INTEGER NOT NULL DEFAULT 0,
				revoked_at DATETIME,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
			CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			CREATE INDEX IF NOT EXISTS idx_users_department ON users(department_id);
			CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
			CREATE INDEX IF NOT EXISTS idx_projects_client ON projects(client_id);
			CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks(project_id, status);
			CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
			CREATE INDEX IF NOT EXISTS idx_leads_status_created ON leads(status, created_at);
			CREATE INDEX IF NOT EXISTS idx_activity_project_created ON activity_log(project_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_tokens_user ON refresh_tokens(user_id);
		`,
	},
	{
		Version: 2,
		Name:    "milestones_comments_followups",
		Up: `
			-- Project milestones table
			CREATE TABLE IF NOT EXISTS project_milestones (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				title TEXT NOT NULL,
				due_date DATETIME,
				status TEXT NOT NULL DEFAULT 'pending',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				deleted_at DATETIME,
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
			);

			-- Task comments table
			CREATE TABLE IF NOT EXISTS task_comments (
				id TEXT PRIMARY KEY,
				task_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				comment TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				deleted_at DATETIME,
				FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Lead followups table (append-only pipeline history)
			CREATE TABLE IF NOT EXISTS lead_followups (
				id TEXT PRIMARY KEY,
				lead_id TEXT NOT NULL,
				followup_type TEXT NOT NULL,
				notes TEXT,
				next_followup DATETIME,
				status TEXT NOT NULL DEFAULT 'pending',
				created_by_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (lead_id) REFERENCES leads(id) ON DELETE CASCADE,
				FOREIGN KEY (created_by_id) REFERENCES users(id)
			);

			CREATE INDEX IF NOT EXISTS idx_milestones_project ON project_milestones(project_id);
			CREATE INDEX IF NOT EXISTS idx_comments_task ON task_comments(task_id);
			CREATE INDEX IF NOT EXISTS idx_followups_lead ON lead_followups(lead_id);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		// Run migration in transaction
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
