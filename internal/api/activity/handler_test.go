package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightpath-dev/opsdesk/internal/models"
	"github.com/brightpath-dev/opsdesk/internal/storage"
)

type mockActivityRepository struct {
	entries    []*models.ActivityLog
	lastFilter storage.ActivityFilter
}

func (m *mockActivityRepository) Record(ctx context.Context, entry *models.ActivityLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockActivityRepository) List(ctx context.Context, filter storage.ActivityFilter) ([]*models.ActivityLog, error) {
	m.lastFilter = filter
	var out []*models.ActivityLog
	for _, e := range m.entries {
		if filter.ProjectID != "" && e.ProjectID != filter.ProjectID {
			continue
		}
		if filter.TaskID != "" && e.TaskID != filter.TaskID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type mockStorage struct {
	activityRepo *mockActivityRepository
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
func (m *mockStorage) Activity() storage.ActivityRepository      { return m.activityRepo }
func (m *mockStorage) Tokens() storage.TokenRepository           { return nil }
func (m *mockStorage) Reports() storage.ReportRepository         { return nil }

func seedEntries() *mockActivityRepository {
	now := time.Now()
	return &mockActivityRepository{entries: []*models.ActivityLog{
		{ID: 3, UserID: "u-1", ProjectID: "proj-1", TaskID: "t-1", Action: "Created task: c", CreatedAt: now},
		{ID: 2, UserID: "u-2", ProjectID: "proj-2", Action: "Converted lead: Acme", CreatedAt: now.Add(-time.Minute)},
		{ID: 1, UserID: "u-1", ProjectID: "proj-1", Action: "Created task: a", CreatedAt: now.Add(-2 * time.Minute)},
	}}
}

func TestList_All(t *testing.T) {
	mockStore := &mockStorage{activityRepo: seedEntries()}
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/api/v1/activity", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Data []*models.ActivityLog `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Errorf("entries = %d, want 3", len(resp.Data))
	}
}

func TestList_FilteredByProject(t *testing.T) {
	mockStore := &mockStorage{activityRepo: seedEntries()}
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/api/v1/activity?project_id=proj-1", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	var resp struct {
		Data []*models.ActivityLog `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("entries = %d, want 2", len(resp.Data))
	}
	for _, e := range resp.Data {
		if e.ProjectID != "proj-1" {
			t.Errorf("entry %d belongs to %s, want proj-1", e.ID, e.ProjectID)
		}
	}
}

func TestList_PaginationPassthrough(t *testing.T) {
	repo := seedEntries()
	mockStore := &mockStorage{activityRepo: repo}
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/api/v1/activity?limit=50&offset=100", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if repo.lastFilter.Limit != 50 || repo.lastFilter.Offset != 100 {
		t.Errorf("filter = %+v, want limit 50 offset 100", repo.lastFilter)
	}
}

func TestList_LimitOutOfRange(t *testing.T) {
	mockStore := &mockStorage{activityRepo: seedEntries()}
	handler := NewHandler(mockStore)

	for _, limit := range []string{"0", "501", "-5", "abc"} {
		req := httptest.NewRequest("GET", "/api/v1/activity?limit="+limit, nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want %d", limit, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestList_NegativeOffset(t *testing.T) {
	mockStore := &mockStorage{activityRepo: seedEntries()}
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/api/v1/activity?offset=-1", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
