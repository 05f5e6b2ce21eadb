package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brightpath-dev/opsdesk/internal/models"
	"github.com/brightpath-dev/opsdesk/internal/storage"
)

var (
	projectDBPath     string
	projectID         string
	projectUsername   string
	projectUserID     string
	projectMemberRole string
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for inspecting and repairing OpsDesk projects.

These commands operate directly on the database file. Day-to-day
project management goes through the HTTP API; opsctl exists for the
cases where a project membership needs fixing from the server host.

Examples:
  # List all projects
  opsctl project list

  # Show project details
  opsctl project show --id 550e8400-e29b-41d4-a716-446655440000

  # List project members
  opsctl project members --id 550e8400-e29b-41d4-a716-446655440000

  # Add a member to a project
  opsctl project add-member --id 550e8400... --username alice --role MEMBER`,
}

// projectListCmd lists all projects
var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Long: `List all projects in the database.

Displays project ID, name, status, progress, and creation date.
Soft-deleted projects are not shown.

Example:
  opsctl project list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		projects, err := store.Projects().List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		// Print header
		fmt.Printf("\n%-36s  %-30s  %-12s  %-9s  %s\n",
			"ID", "NAME", "STATUS", "PROGRESS", "CREATED")
		fmt.Println(strings.Repeat("-", 105))

		for _, p := range projects {
			fmt.Printf("%-36s  %-30s  %-12s  %8d%%  %s\n",
				p.ID,
				truncate(p.Name, 30),
				p.Status,
				p.ProgressPercentage,
				p.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d project(s)\n", len(projects))

		return nil
	},
}

// projectShowCmd shows project details
var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show project details",
	Long: `Show detailed information about a project.

Example:
  opsctl project show --id 550e8400-e29b-41d4-a716-446655440000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := resolveProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		members, err := store.Projects().ListMembers(ctx, project.ID)
		if err != nil {
			PrintVerbose("Warning: could not fetch members: %v", err)
		}

		fmt.Println("\nProject Details:")
		fmt.Printf("  ID:       %s\n", project.ID)
		fmt.Printf("  Name:     %s\n", project.Name)
		fmt.Printf("  Status:   %s\n", project.Status)
		fmt.Printf("  Progress: %d%%\n", project.ProgressPercentage)
		if project.ClientID != "" {
			fmt.Printf("  Client:   %s\n", project.ClientID)
		}
		if project.ManagerID != "" {
			fmt.Printf("  Manager:  %s\n", project.ManagerID)
		}
		if s := formatDate(project.StartDate); s != "" {
			fmt.Printf("  Start:    %s\n", s)
		}
		if s := formatDate(project.EndDate); s != "" {
			fmt.Printf("  End:      %s\n", s)
		}
		fmt.Printf("  Members:  %d\n", len(members))
		fmt.Printf("  Created:  %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Updated:  %s\n", project.UpdatedAt.Format("2006-01-02 15:04:05"))

		return nil
	},
}

// projectMembersCmd lists project members
var projectMembersCmd = &cobra.Command{
	Use:   "members",
	Short: "List project members",
	Long: `List all members of a project.

Example:
  opsctl project members --id 550e8400-e29b-41d4-a716-446655440000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := resolveProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		members, err := store.Projects().ListMembers(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("get members: %w", err)
		}

		fmt.Printf("\nMembers of project '%s':\n\n", project.Name)

		if len(members) == 0 {
			fmt.Println("No members found.")
			return nil
		}

		fmt.Printf("%-36s  %-20s  %-30s  %s\n", "USER ID", "USERNAME", "EMAIL", "ROLE")
		fmt.Println(strings.Repeat("-", 100))

		for _, m := range members {
			fmt.Printf("%-36s  %-20s  %-30s  %s\n",
				m.UserID, m.Username, m.Email, m.RoleInProject)
		}
		fmt.Printf("\nTotal: %d member(s)\n", len(members))

		return nil
	},
}

// projectAddMemberCmd adds a member to a project
var projectAddMemberCmd = &cobra.Command{
	Use:   "add-member",
	Short: "Add or update a project member",
	Long: `Add a user to a project or update their role.

If the user is already a member, their role will be updated.

Available roles:
  - PM: manages the project board
  - MEMBER: works tasks
  - QA: reviews work
  - VIEWER: read-only

Examples:
  opsctl project add-member --id 550e8400... --username alice --role PM
  opsctl project add-member --id 550e8400... --user-id abc123 --role MEMBER`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := resolveProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		user, err := resolveUser(ctx, store.Users(), projectUsername, projectUserID)
		if err != nil {
			return err
		}

		role := models.ProjectRole(strings.ToUpper(projectMemberRole))
		if !role.Valid() {
			return fmt.Errorf("invalid role: %s (use: PM, MEMBER, QA, VIEWER)", projectMemberRole)
		}

		member := &models.ProjectMember{
			ProjectID:     project.ID,
			UserID:        user.ID,
			RoleInProject: role,
			AddedAt:       time.Now(),
		}
		if err := store.Projects().AddMember(ctx, member); err != nil {
			return fmt.Errorf("add member: %w", err)
		}

		fmt.Printf("Added %s to project '%s' as %s\n", user.Username, project.Name, role)
		return nil
	},
}

// projectRemoveMemberCmd removes a member from a project
var projectRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member",
	Short: "Remove a member from project",
	Long: `Remove a user from a project.

Examples:
  opsctl project remove-member --id 550e8400... --username alice
  opsctl project remove-member --id 550e8400... --user-id abc123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := resolveProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		user, err := resolveUser(ctx, store.Users(), projectUsername, projectUserID)
		if err != nil {
			return err
		}

		if err := store.Projects().RemoveMember(ctx, project.ID, user.ID); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}

		fmt.Printf("Removed %s from project '%s'\n", user.Username, project.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectMembersCmd)
	projectCmd.AddCommand(projectAddMemberCmd)
	projectCmd.AddCommand(projectRemoveMemberCmd)

	allCmds := []*cobra.Command{
		projectListCmd, projectShowCmd, projectMembersCmd,
		projectAddMemberCmd, projectRemoveMemberCmd,
	}
	for _, cmd := range allCmds {
		cmd.Flags().StringVar(&projectDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	// Show flags
	projectShowCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectShowCmd.MarkFlagRequired("id")

	// Members flags
	projectMembersCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectMembersCmd.MarkFlagRequired("id")

	// Add-member flags
	projectAddMemberCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectAddMemberCmd.Flags().StringVar(&projectUsername, "username", "", "username to add")
	projectAddMemberCmd.Flags().StringVar(&projectUserID, "user-id", "", "user ID to add")
	projectAddMemberCmd.Flags().StringVar(&projectMemberRole, "role", "MEMBER", "role: PM, MEMBER, QA, VIEWER")
	projectAddMemberCmd.MarkFlagRequired("id")

	// Remove-member flags
	projectRemoveMemberCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectRemoveMemberCmd.Flags().StringVar(&projectUsername, "username", "", "username to remove")
	projectRemoveMemberCmd.Flags().StringVar(&projectUserID, "user-id", "", "user ID to remove")
	projectRemoveMemberCmd.MarkFlagRequired("id")
}

// resolveProject finds a live project by ID.
func resolveProject(ctx context.Context, repo storage.ProjectRepository, id string) (*models.Project, error) {
	if id == "" {
		return nil, fmt.Errorf("--id is required")
	}
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	return p, nil
}

// resolveUser finds a user by username or ID.
func resolveUser(ctx context.Context, repo storage.UserRepository, username, userID string) (*models.User, error) {
	if userID == "" && username == "" {
		return nil, fmt.Errorf("specify --username or --user-id")
	}
	if userID != "" {
		u, err := repo.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if u == nil {
			return nil, fmt.Errorf("user not found: %s", userID)
		}
		return u, nil
	}
	u, err := repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user not found: %s", username)
	}
	return u, nil
}

// formatDate renders a date column, empty for unset dates.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-2] + ".."
}
