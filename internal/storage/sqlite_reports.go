package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

// sqliteReportRepo implements ReportRepository using SQLite. All counts
// are computed over non-deleted rows at read time.
type sqliteReportRepo struct {
	db *sql.DB
}

func (r *sqliteReportRepo) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		TaskDistribution: map[string]int64{},
	}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM projects WHERE deleted_at IS NULL", &stats.TotalProjects},
		{"SELECT COUNT(*) FROM tasks WHERE deleted_at IS NULL AND status <> 'done'", &stats.ActiveTasks},
		{"SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND status = 'active'", &stats.ActiveUsers},
		{"SELECT COUNT(*) FROM leads WHERE deleted_at IS NULL", &stats.TotalLeads},
		{"SELECT COUNT(*) FROM leads WHERE deleted_at IS NULL AND status = 'converted'", &stats.ConvertedLeads},
	}
	for _, c := range counts {
		if err := r.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("dashboard count: %w", err)
		}
	}

	// Rate over all leads, rounded to two decimals. Zero leads means a
	// zero rate, not a division error.
	if stats.TotalLeads > 0 {
		rate := float64(stats.ConvertedLeads) / float64(stats.TotalLeads) * 100
		stats.ConversionRate = math.Round(rate*100) / 100
	}

	var avgCompletion sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		"SELECT AVG(progress_percentage) FROM projects WHERE deleted_at IS NULL",
	).Scan(&avgCompletion)
	if err != nil {
		return nil, fmt.Errorf("dashboard avg completion: %w", err)
	}
	if avgCompletion.Valid {
		stats.AvgProjectCompletion = math.Round(avgCompletion.Float64*100) / 100
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM tasks WHERE deleted_at IS NULL GROUP BY status",
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard task distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan task distribution: %w", err)
		}
		stats.TaskDistribution[status] = count
	}
	return stats, rows.Err()
}
