package access

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-dev/opsdesk/internal/models"
	"github.com/brightpath-dev/opsdesk/internal/storage"
)

func setupStore(t *testing.T) storage.Storage {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "opsdesk-access-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store := storage.NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}
	return store
}

func createUser(t *testing.T, store storage.Storage, username string, role models.Role) *models.User {
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
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createProject(t *testing.T, store storage.Storage, name string) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    models.ProjectNotStarted,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func TestProjects_SuperAdminSeesAll(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	admin := createUser(t, store, "root", models.RoleSuperAdmin)
	project := createProject(t, store, "unjoined")

	scope, err := Projects(ctx, store, admin.ID, admin.Role)
	if err != nil {
		t.Fatalf("project scope: %v", err)
	}
	if !scope.All {
		t.Error("super admin scope should cover all projects")
	}
	if !scope.CanAccess(project.ID) {
		t.Error("super admin should access any project")
	}
}

func TestProjects_ManagerSeesAll(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	manager := createUser(t, store, "pm", models.RoleProjectManager)
	unjoined := createProject(t, store, "unjoined")

	scope, err := Projects(ctx, store, manager.ID, manager.Role)
	if err != nil {
		t.Fatalf("project scope: %v", err)
	}
	if !scope.All {
		t.Error("manager project scope should cover all projects")
	}
	if !scope.CanAccess(unjoined.ID) {
		t.Error("manager should access unjoined project")
	}

	taskScope, err := Tasks(ctx, store, manager.ID, manager.Role)
	if err != nil {
		t.Fatalf("task scope: %v", err)
	}
	if !taskScope.All {
		t.Error("manager task scope should cover all boards")
	}
}

func TestProjects_TeamMemberScopedToMembership(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	member := createUser(t, store, "eng", models.RoleTeamMember)
	joined := createProject(t, store, "joined")
	other := createProject(t, store, "other")

	err := store.Projects().AddMember(ctx, &models.ProjectMember{
		ProjectID:     joined.ID,
		UserID:        member.ID,
		RoleInProject: models.ProjectRoleMember,
		AddedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}

	scope, err := Projects(ctx, store, member.ID, member.Role)
	if err != nil {
		t.Fatalf("project scope: %v", err)
	}
	if scope.All {
		t.Error("team member project scope should not be unbounded")
	}
	if !scope.CanAccess(joined.ID) {
		t.Error("member should access joined project")
	}
	if scope.CanAccess(other.ID) {
		t.Error("member should not access unjoined project")
	}

	// Membership changes take effect on the next derivation
	if err := store.Projects().RemoveMember(ctx, joined.ID, member.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	scope, err = Projects(ctx, store, member.ID, member.Role)
	if err != nil {
		t.Fatalf("project scope after removal: %v", err)
	}
	if scope.CanAccess(joined.ID) {
		t.Error("member should lose access after membership removal")
	}
}

func TestTasks_TeamMemberScopedToMembership(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	member := createUser(t, store, "dev", models.RoleTeamMember)
	joined := createProject(t, store, "joined")
	other := createProject(t, store, "other")

	store.Projects().AddMember(ctx, &models.ProjectMember{
		ProjectID:     joined.ID,
		UserID:        member.ID,
		RoleInProject: models.ProjectRoleMember,
		AddedAt:       time.Now(),
	})

	scope, err := Tasks(ctx, store, member.ID, member.Role)
	if err != nil {
		t.Fatalf("task scope: %v", err)
	}
	if scope.All {
		t.Error("team member task scope should not be unbounded")
	}
	if !scope.CanAccess(joined.ID) || scope.CanAccess(other.ID) {
		t.Errorf("task scope = %+v, want joined only", scope)
	}
}

func TestLeads_Scoping(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	salesManager := createUser(t, store, "sm", models.RoleSalesManager)
	exec := createUser(t, store, "se", models.RoleSalesExecutive)

	mine := &models.Lead{
		ID: uuid.New().String(), Name: "mine", Email: "mine@example.com",
		Status: models.LeadNew, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	other := &models.Lead{
		ID: uuid.New().String(), Name: "other", Email: "other@example.com",
		Status: models.LeadNew, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	store.Leads().Create(ctx, mine)
	store.Leads().Create(ctx, other)

	err := store.Leads().Assign(ctx, &models.LeadAssignment{
		LeadID:      mine.ID,
		SalesExecID: exec.ID,
		AssignedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("assign lead: %v", err)
	}

	managerScope, err := Leads(ctx, store, salesManager.ID, salesManager.Role)
	if err != nil {
		t.Fatalf("manager lead scope: %v", err)
	}
	if !managerScope.All {
		t.Error("sales manager should see the whole pipeline")
	}

	execScope, err := Leads(ctx, store, exec.ID, exec.Role)
	if err != nil {
		t.Fatalf("exec lead scope: %v", err)
	}
	if execScope.All {
		t.Error("sales executive scope should not be unbounded")
	}
	if !execScope.CanAccess(mine.ID) || execScope.CanAccess(other.ID) {
		t.Errorf("exec scope = %+v, want assigned lead only", execScope)
	}
}

func TestLeads_UnassignedExecSeesNothing(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	exec := createUser(t, store, "idle", models.RoleSalesExecutive)
	lead := &models.Lead{
		ID: uuid.New().String(), Name: "lonely", Email: "lonely@example.com",
		Status: models.LeadNew, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	store.Leads().Create(ctx, lead)

	scope, err := Leads(ctx, store, exec.ID, exec.Role)
	if err != nil {
		t.Fatalf("lead scope: %v", err)
	}
	if len(scope.LeadIDs) != 0 {
		t.Errorf("unassigned exec should see no leads, got %v", scope.LeadIDs)
	}
	if scope.CanAccess(lead.ID) {
		t.Error("unassigned exec should not access the lead")
	}
}
