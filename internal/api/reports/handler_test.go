package reports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightpath-dev/opsdesk/internal/models"
	"github.com/brightpath-dev/opsdesk/internal/storage"
)

type mockReportRepository struct {
	stats *models.DashboardStats
	err   error
}

func (m *mockReportRepository) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	return m.stats, m.err
}

type mockStorage struct {
	reportRepo *mockReportRepository
}

func (m *mockStorage) Open() error                               { return nil }
func (m *mockStorage) Close() error                              { return nil }
func (m *mockStorage) Migrate() error                            { return nil }
func (m *mockStorage) EnsureSuperAdmin() error                   { return nil }
func (m *mockStorage) Users() storage.UserRepository             { return nil }
func (m *mockStorage) Departments() storage.DepartmentRepository { return nil }
func (m *mockStorage) Clients() storage.ClientRepository         { return nil }
func (m *mockStorage) Projects() storage.ProjectRepository       { return nil }
func (m *mockStorage) Tasks() storage.TaskRepository             { return nil }
func (m *mockStorage) Leads() storage.LeadRepository             { return nil }
func (m *mockStorage) Activity() storage.ActivityRepository      { return nil }
func (m *mockStorage) Tokens() storage.TokenRepository           { return nil }
func (m *mockStorage) Reports() storage.ReportRepository         { return m.reportRepo }

func TestDashboard_ReturnsStats(t *testing.T) {
	mockStore := &mockStorage{reportRepo: &mockReportRepository{
		stats: &models.DashboardStats{
			TotalProjects:        4,
			ActiveTasks:          12,
			ActiveUsers:          7,
			TotalLeads:           3,
			ConvertedLeads:       1,
			ConversionRate:       33.33,
			AvgProjectCompletion: 45.5,
			TaskDistribution:     map[string]int64{"todo": 8, "done": 4},
		},
	}}

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/reports/dashboard", nil)
	rec := httptest.NewRecorder()

	handler.Dashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Data models.DashboardStats `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ConversionRate != 33.33 {
		t.Errorf("conversion rate = %v, want 33.33", resp.Data.ConversionRate)
	}
	if resp.Data.TaskDistribution["todo"] != 8 {
		t.Errorf("task distribution = %v, want todo=8", resp.Data.TaskDistribution)
	}
}

func TestDashboard_EmptySystem(t *testing.T) {
	mockStore := &mockStorage{reportRepo: &mockReportRepository{
		stats: &models.DashboardStats{TaskDistribution: map[string]int64{}},
	}}

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/reports/dashboard", nil)
	rec := httptest.NewRecorder()

	handler.Dashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Data models.DashboardStats `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Zero leads means a zero rate, not a division error
	if resp.Data.ConversionRate != 0 {
		t.Errorf("conversion rate = %v, want 0", resp.Data.ConversionRate)
	}
}

func TestDashboard_StorageError(t *testing.T) {
	mockStore := &mockStorage{reportRepo: &mockReportRepository{
		err: errors.New("database is locked"),
	}}

	handler := NewHandler(mockStore)
	req := httptest.NewRequest("GET", "/api/v1/reports/dashboard", nil)
	rec := httptest.NewRecorder()

	handler.Dashboard(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
