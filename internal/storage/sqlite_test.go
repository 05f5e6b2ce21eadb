package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "opsdesk-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")

	store := NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open database: %v", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func newTestUser(t *testing.T, store *SQLiteStorage, username string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
		Status:       models.UserActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func newTestProject(t *testing.T, store *SQLiteStorage, name string) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    models.ProjectNotStarted,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return project
}

func newTestLead(t *testing.T, store *SQLiteStorage, name string) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     name + "@example.com",
		Status:    models.LeadNew,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Leads().Create(context.Background(), lead); err != nil {
		t.Fatalf("create lead %s: %v", name, err)
	}
	return lead
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Verify tables exist by querying them
	tables := []string{
		"users", "departments", "clients", "projects", "project_members",
		"tasks", "task_assignments", "leads", "lead_assignments",
		"activity_log", "refresh_tokens", "schema_migrations",
		"project_milestones", "task_comments", "lead_followups",
	}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser(t, store, "testuser", models.RoleTeamMember)

	// Get by ID
	got, err := store.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user by id: %v", err)
	}
	if got == nil {
		t.Fatal("user should exist")
	}
	if got.Username != user.Username {
		t.Errorf("username = %v, want %v", got.Username, user.Username)
	}

	// Get by username and email
	if got, _ := store.Users().GetByUsername(ctx, user.Username); got == nil {
		t.Fatal("user should be found by username")
	}
	if got, _ := store.Users().GetByEmail(ctx, user.Email); got == nil {
		t.Fatal("user should be found by email")
	}

	// Update
	user.Name = "Updated Name"
	user.UpdatedAt = time.Now()
	if err := store.Users().Update(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}
	got, _ = store.Users().GetByID(ctx, user.ID)
	if got.Name != "Updated Name" {
		t.Errorf("name = %v, want Updated Name", got.Name)
	}

	// List and count
	users, err := store.Users().List(ctx, UserFilter{})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("users count = %d, want 1", len(users))
	}
	count, _ := store.Users().Count(ctx)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	newTestUser(t, store, "taken", models.RoleTeamMember)

	dup := &models.User{
		ID:           uuid.New().String(),
		Name:         "Other",
		Username:     "taken",
		Email:        "other@example.com",
		PasswordHash: "hash",
		Role:         models.RoleTeamMember,
		Status:       models.UserActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	err := store.Users().Create(ctx, dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestSoftDeleteLifecycle(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser(t, store, "ghost", models.RoleTeamMember)

	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	// Default reads no longer see the row
	got, err := store.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get deleted user: %v", err)
	}
	if got != nil {
		t.Error("deleted user should not be visible")
	}
	users, _ := store.Users().List(ctx, UserFilter{})
	if len(users) != 0 {
		t.Errorf("users count = %d, want 0", len(users))
	}

	// The row survives for audit reads
	got, err = store.Users().GetByIDIncludeDeleted(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user include deleted: %v", err)
	}
	if got == nil {
		t.Fatal("row should survive soft delete")
	}
	if got.DeletedAt == nil {
		t.Error("deleted_at should be set")
	}

	// Repeating the delete is a no-op
	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Errorf("repeated delete should succeed: %v", err)
	}

	// Updates no longer match the row
	user.Name = "Back"
	err = store.Users().Update(ctx, user)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update deleted user: err = %v, want ErrNotFound", err)
	}

	// Deleting an unknown id is an error
	err = store.Users().Delete(ctx, uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("delete unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestProjectRepository_Membership(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	member := newTestUser(t, store, "member", models.RoleTeamMember)
	outsider := newTestUser(t, store, "outsider", models.RoleTeamMember)
	project := newTestProject(t, store, "alpha")
	newTestProject(t, store, "beta")

	err := store.Projects().AddMember(ctx, &models.ProjectMember{
		ProjectID:     project.ID,
		UserID:        member.ID,
		RoleInProject: models.ProjectRoleMember,
		AddedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}

	// Scoped listing sees only the joined project
	projects, err := store.Projects().ListForMember(ctx, member.ID)
	if err != nil {
		t.Fatalf("list for member: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != project.ID {
		t.Errorf("member should see exactly project alpha, got %d projects", len(projects))
	}

	projects, _ = store.Projects().ListForMember(ctx, outsider.ID)
	if len(projects) != 0 {
		t.Errorf("outsider should see no projects, got %d", len(projects))
	}

	ok, err := store.Projects().IsMember(ctx, project.ID, member.ID)
	if err != nil || !ok {
		t.Errorf("IsMember = %v, %v, want true", ok, err)
	}

	members, err := store.Projects().ListMembers(ctx, project.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].Username != "member" {
		t.Errorf("members = %+v, want single row for member", members)
	}

	if err := store.Projects().RemoveMember(ctx, project.ID, member.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	ok, _ = store.Projects().IsMember(ctx, project.ID, member.ID)
	if ok {
		t.Error("membership should be removed")
	}
}

func TestTaskRepository_ScopedListing(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	member := newTestUser(t, store, "worker", models.RoleTeamMember)
	inside := newTestProject(t, store, "inside")
	outside := newTestProject(t, store, "outside")

	store.Projects().AddMember(ctx, &models.ProjectMember{
		ProjectID:     inside.ID,
		UserID:        member.ID,
		RoleInProject: models.ProjectRoleMember,
		AddedAt:       time.Now(),
	})

	for i, projectID := range []string{inside.ID, outside.ID} {
		task := &models.Task{
			ID:        uuid.New().String(),
			ProjectID: projectID,
			Title:     "task",
			Priority:  models.PriorityMedium,
			Status:    models.TaskTodo,
			BoardOrder: i,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := store.Tasks().Create(ctx, task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	all, err := store.Tasks().List(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all tasks = %d, want 2", len(all))
	}

	scoped, err := store.Tasks().ListForMember(ctx, member.ID, TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks for member: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ProjectID != inside.ID {
		t.Errorf("member should see only tasks of joined projects, got %d", len(scoped))
	}
}

func TestTaskRepository_AssignUnassign(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser(t, store, "assignee", models.RoleTeamMember)
	project := newTestProject(t, store, "proj")
	task := &models.Task{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Title:     "build",
		Priority:  models.PriorityHigh,
		Status:    models.TaskTodo,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	assignment := &models.TaskAssignment{
		TaskID:     task.ID,
		EmployeeID: user.ID,
		AssignedAt: time.Now(),
	}
	if err := store.Tasks().Assign(ctx, assignment); err != nil {
		t.Fatalf("assign task: %v", err)
	}

	if err := store.Tasks().Unassign(ctx, task.ID, user.ID); err != nil {
		t.Fatalf("unassign task: %v", err)
	}
	assignments, _ := store.Tasks().ListAssignments(ctx, task.ID)
	if len(assignments) != 1 || assignments[0].UnassignedAt == nil {
		t.Fatalf("unassignment should stamp the existing row, got %+v", assignments)
	}

	// Re-assigning the same pair revives the row instead of duplicating it
	if err := store.Tasks().Assign(ctx, &models.TaskAssignment{
		TaskID:     task.ID,
		EmployeeID: user.ID,
		AssignedAt: time.Now(),
	}); err != nil {
		t.Fatalf("re-assign task: %v", err)
	}
	assignments, _ = store.Tasks().ListAssignments(ctx, task.ID)
	if len(assignments) != 1 {
		t.Errorf("assignments = %d, want 1", len(assignments))
	}
	if assignments[0].UnassignedAt != nil {
		t.Error("revived assignment should clear unassigned_at")
	}
}

func TestLeadRepository_Convert(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	lead := newTestLead(t, store, "acme")

	project := &models.Project{
		ID:        uuid.New().String(),
		Name:      "Project: acme",
		Status:    models.ProjectNotStarted,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Leads().Convert(ctx, lead.ID, project); err != nil {
		t.Fatalf("convert lead: %v", err)
	}

	got, _ := store.Leads().GetByID(ctx, lead.ID)
	if got.Status != models.LeadConverted {
		t.Errorf("status = %v, want converted", got.Status)
	}
	if got.ConvertedProjectID != project.ID {
		t.Errorf("converted_project_id = %v, want %v", got.ConvertedProjectID, project.ID)
	}
	if p, _ := store.Projects().GetByID(ctx, project.ID); p == nil {
		t.Fatal("converted project should exist")
	}
}

func TestLeadRepository_ConvertTwice(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	lead := newTestLead(t, store, "repeat")

	first := &models.Project{
		ID: uuid.New().String(), Name: "Project: repeat",
		Status: models.ProjectNotStarted, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := store.Leads().Convert(ctx, lead.ID, first); err != nil {
		t.Fatalf("first convert: %v", err)
	}

	second := &models.Project{
		ID: uuid.New().String(), Name: "Project: repeat",
		Status: models.ProjectNotStarted, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	err := store.Leads().Convert(ctx, lead.ID, second)
	if !errors.Is(err, ErrAlreadyConverted) {
		t.Fatalf("second convert: err = %v, want ErrAlreadyConverted", err)
	}

	// The losing attempt must not leave an orphan project behind
	if p, _ := store.Projects().GetByID(ctx, second.ID); p != nil {
		t.Error("second project should have been rolled back")
	}
	got, _ := store.Leads().GetByID(ctx, lead.ID)
	if got.ConvertedProjectID != first.ID {
		t.Errorf("converted_project_id = %v, want first project %v", got.ConvertedProjectID, first.ID)
	}
}

func TestLeadRepository_ConvertConcurrent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	lead := newTestLead(t, store, "race")

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			project := &models.Project{
				ID: uuid.New().String(), Name: "Project: race",
				Status: models.ProjectNotStarted, CreatedAt: time.Now(), UpdatedAt: time.Now(),
			}
			errs[i] = store.Leads().Convert(ctx, lead.ID, project)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else if !errors.Is(err, ErrAlreadyConverted) {
			t.Errorf("unexpected convert error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}

	projects, _ := store.Projects().List(ctx)
	if len(projects) != 1 {
		t.Errorf("projects = %d, want 1", len(projects))
	}
}

func TestLeadRepository_ConvertMissing(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	project := &models.Project{
		ID: uuid.New().String(), Name: "Project: nobody",
		Status: models.ProjectNotStarted, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	err := store.Leads().Convert(context.Background(), uuid.New().String(), project)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLeadRepository_AssignedScoping(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	exec := newTestUser(t, store, "closer", models.RoleSalesExecutive)
	mine := newTestLead(t, store, "mine")
	newTestLead(t, store, "other")

	err := store.Leads().Assign(ctx, &models.LeadAssignment{
		LeadID:      mine.ID,
		SalesExecID: exec.ID,
		AssignedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("assign lead: %v", err)
	}

	leads, err := store.Leads().ListAssignedTo(ctx, exec.ID)
	if err != nil {
		t.Fatalf("list assigned leads: %v", err)
	}
	if len(leads) != 1 || leads[0].ID != mine.ID {
		t.Errorf("exec should see exactly the assigned lead, got %d", len(leads))
	}
}

func TestActivityRepository_OrderingAndReferences(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser(t, store, "actor", models.RoleProjectManager)
	project := newTestProject(t, store, "logged")

	base := time.Now().Add(-time.Hour)
	actions := []string{"created project", "created task", "closed task"}
	for i, action := range actions {
		err := store.Activity().Record(ctx, &models.ActivityLog{
			UserID:    user.ID,
			ProjectID: project.ID,
			Action:    action,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record activity: %v", err)
		}
	}

	entries, err := store.Activity().List(ctx, ActivityFilter{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	// Newest first
	if entries[0].Action != "closed task" || entries[2].Action != "created project" {
		t.Errorf("entries out of order: %v, %v, %v",
			entries[0].Action, entries[1].Action, entries[2].Action)
	}

	// A bogus actor reference is rejected, not silently dropped
	err = store.Activity().Record(ctx, &models.ActivityLog{
		UserID:    uuid.New().String(),
		ProjectID: project.ID,
		Action:    "phantom",
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("err = %v, want ErrInvalidReference", err)
	}
}

func TestActivityRepository_SameTimestampTiebreak(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser(t, store, "burst", models.RoleProjectManager)
	project := newTestProject(t, store, "burst-project")

	at := time.Now()
	for _, action := range []string{"first", "second", "third"} {
		err := store.Activity().Record(ctx, &models.ActivityLog{
			UserID:    user.ID,
			ProjectID: project.ID,
			Action:    action,
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("record activity: %v", err)
		}
	}

	entries, err := store.Activity().List(ctx, ActivityFilter{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if entries[0].Action != "third" || entries[2].Action != "first" {
		t.Errorf("same-timestamp entries should list in reverse insertion order, got %v, %v, %v",
			entries[0].Action, entries[1].Action, entries[2].Action)
	}
}

func TestReportRepository_DashboardStats(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Empty database: all zeros, no division error
	stats, err := store.Reports().DashboardStats(ctx)
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if stats.ConversionRate != 0 {
		t.Errorf("conversion rate = %v, want 0", stats.ConversionRate)
	}

	newTestUser(t, store, "dash", models.RoleTeamMember)
	project := newTestProject(t, store, "dash-project")

	task := &models.Task{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Title:     "open",
		Priority:  models.PriorityLow,
		Status:    models.TaskTodo,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	store.Tasks().Create(ctx, task)

	leads := []*models.Lead{
		newTestLead(t, store, "l1"),
		newTestLead(t, store, "l2"),
		newTestLead(t, store, "l3"),
	}
	convProject := &models.Project{
		ID: uuid.New().String(), Name: "Project: l1",
		Status: models.ProjectNotStarted, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := store.Leads().Convert(ctx, leads[0].ID, convProject); err != nil {
		t.Fatalf("convert lead: %v", err)
	}

	stats, err = store.Reports().DashboardStats(ctx)
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if stats.TotalProjects != 2 {
		t.Errorf("total projects = %d, want 2", stats.TotalProjects)
	}
	if stats.ActiveTasks != 1 {
		t.Errorf("active tasks = %d, want 1", stats.ActiveTasks)
	}
	if stats.ActiveUsers != 1 {
		t.Errorf("active users = %d, want 1", stats.ActiveUsers)
	}
	if stats.TotalLeads != 3 || stats.ConvertedLeads != 1 {
		t.Errorf("leads = %d/%d, want 3/1", stats.ConvertedLeads, stats.TotalLeads)
	}
	if stats.ConversionRate != 33.33 {
		t.Errorf("conversion rate = %v, want 33.33", stats.ConversionRate)
	}
	if stats.TaskDistribution["todo"] != 1 {
		t.Errorf("task distribution = %v, want todo:1", stats.TaskDistribution)
	}
}

func TestEnsureSuperAdmin(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// First call should create the bootstrap user
	if err := store.EnsureSuperAdmin(); err != nil {
		t.Fatalf("ensure super admin: %v", err)
	}

	admin, err := store.Users().GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if admin == nil {
		t.Fatal("admin user should exist")
	}
	if admin.Role != models.RoleSuperAdmin {
		t.Errorf("admin role = %v, want SUPER_ADMIN", admin.Role)
	}

	// Second call should not create a duplicate
	count1, _ := store.Users().Count(ctx)
	if err := store.EnsureSuperAdmin(); err != nil {
		t.Fatalf("second ensure super admin: %v", err)
	}
	count2, _ := store.Users().Count(ctx)
	if count1 != count2 {
		t.Errorf("user count changed from %d to %d", count1, count2)
	}
}

func TestTokenRepository_Lifecycle(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser(t, store, "tokenuser", models.RoleTeamMember)

	token, plain, err := models.NewRefreshToken(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("new refresh token: %v", err)
	}
	if err := store.Tokens().Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if got == nil || !got.IsValid() {
		t.Fatalf("token should be valid, got %+v", got)
	}

	if err := store.Tokens().RevokeAllForUser(ctx, user.ID); err != nil {
		t.Fatalf("revoke tokens: %v", err)
	}
	got, _ = store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if got == nil || got.IsValid() {
		t.Error("token should be revoked")
	}
}

func TestProjectRepository_Milestones(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	project := newTestProject(t, store, "timeline")

	milestone := &models.Milestone{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Title:     "Design sign-off",
		DueDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:    models.MilestonePending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Projects().AddMilestone(ctx, milestone); err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	milestones, err := store.Projects().ListMilestones(ctx, project.ID)
	if err != nil {
		t.Fatalf("list milestones: %v", err)
	}
	if len(milestones) != 1 || milestones[0].Title != "Design sign-off" {
		t.Fatalf("milestones = %+v, want the created one", milestones)
	}

	milestone.Status = models.MilestoneCompleted
	milestone.UpdatedAt = time.Now()
	if err := store.Projects().UpdateMilestone(ctx, milestone); err != nil {
		t.Fatalf("update milestone: %v", err)
	}
	milestones, _ = store.Projects().ListMilestones(ctx, project.ID)
	if milestones[0].Status != models.MilestoneCompleted {
		t.Errorf("status = %q, want completed", milestones[0].Status)
	}

	// Soft delete hides the row from listings
	if err := store.Projects().DeleteMilestone(ctx, project.ID, milestone.ID); err != nil {
		t.Fatalf("delete milestone: %v", err)
	}
	milestones, _ = store.Projects().ListMilestones(ctx, project.ID)
	if len(milestones) != 0 {
		t.Errorf("deleted milestone still listed: %+v", milestones)
	}
	err = store.Projects().DeleteMilestone(ctx, project.ID, milestone.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("repeat delete err = %v, want ErrNotFound", err)
	}
}

func TestTaskRepository_Comments(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser(t, store, "commenter", models.RoleTeamMember)
	project := newTestProject(t, store, "board")
	task := &models.Task{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Title:     "work",
		Priority:  models.PriorityMedium,
		Status:    models.TaskTodo,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	first := &models.TaskComment{
		TaskID:    task.ID,
		UserID:    user.ID,
		Comment:   "first",
		CreatedAt: time.Now().Add(-time.Minute),
	}
	second := &models.TaskComment{
		TaskID:    task.ID,
		UserID:    user.ID,
		Comment:   "second",
		CreatedAt: time.Now(),
	}
	if err := store.Tasks().AddComment(ctx, first); err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if err := store.Tasks().AddComment(ctx, second); err != nil {
		t.Fatalf("add comment: %v", err)
	}

	comments, err := store.Tasks().ListComments(ctx, task.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(comments))
	}
	if comments[0].Comment != "first" || comments[1].Comment != "second" {
		t.Errorf("thread = %+v, want chronological order", comments)
	}
	if comments[0].Username != "commenter" {
		t.Errorf("username = %q, want joined from users", comments[0].Username)
	}

	// Comments on an unknown task violate the FK
	orphan := &models.TaskComment{
		TaskID:    "ghost",
		UserID:    user.ID,
		Comment:   "nowhere",
		CreatedAt: time.Now(),
	}
	if err := store.Tasks().AddComment(ctx, orphan); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("orphan comment err = %v, want ErrInvalidReference", err)
	}
}

func TestLeadRepository_Followups(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	exec := newTestUser(t, store, "closer", models.RoleSalesExecutive)
	lead := newTestLead(t, store, "acme")

	older := &models.LeadFollowup{
		LeadID:       lead.ID,
		Type:         models.FollowupCall,
		Notes:        "left voicemail",
		NextFollowup: time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC),
		Status:       models.FollowupPending,
		CreatedByID:  exec.ID,
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	newer := &models.LeadFollowup{
		LeadID:      lead.ID,
		Type:        models.FollowupEmail,
		Status:      models.FollowupDone,
		CreatedByID: exec.ID,
		CreatedAt:   time.Now(),
	}
	if err := store.Leads().AddFollowup(ctx, older); err != nil {
		t.Fatalf("add followup: %v", err)
	}
	if err := store.Leads().AddFollowup(ctx, newer); err != nil {
		t.Fatalf("add followup: %v", err)
	}

	followups, err := store.Leads().ListFollowups(ctx, lead.ID)
	if err != nil {
		t.Fatalf("list followups: %v", err)
	}
	if len(followups) != 2 {
		t.Fatalf("followups = %d, want 2", len(followups))
	}
	// Newest first
	if followups[0].Type != models.FollowupEmail || followups[1].Type != models.FollowupCall {
		t.Errorf("history = %+v, want newest first", followups)
	}
	if followups[1].Notes != "left voicemail" {
		t.Errorf("notes = %q, want preserved", followups[1].Notes)
	}

	orphan := &models.LeadFollowup{
		LeadID:      "ghost",
		Type:        models.FollowupCall,
		Status:      models.FollowupPending,
		CreatedByID: exec.ID,
		CreatedAt:   time.Now(),
	}
	if err := store.Leads().AddFollowup(ctx, orphan); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("orphan followup err = %v, want ErrInvalidReference", err)
	}
}
