package authz

import (
	"context"
	"fmt"
	"strings"
)

// Permission names seeded at bootstrap. Keeping them as constants means a typo
// fails catalog validation at startup instead of silently denying at runtime.
const (
	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersUpdate = "users.update"
	PermUsersDelete = "users.delete"

	PermTeamsView           = "teams.view"
	PermTeamsCreate         = "teams.create"
	PermTeamsUpdate         = "teams.update"
	PermTeamsDelete         = "teams.delete"
	PermTeamsManageProjects = "teams.manage_projects"
	PermTeamsManageMembers  = "teams.manage_members"

	PermProjectsView   = "projects.view"
	PermProjectsCreate = "projects.create"
	PermProjectsUpdate = "projects.update"
	PermProjectsDelete = "projects.delete"

	PermTasksView        = "tasks.view"
	PermTasksCreate      = "tasks.create"
	PermTasksUpdate      = "tasks.update"
	PermTasksDelete      = "tasks.delete"
	PermTasksAssignUsers = "tasks.assign_users"

	PermRolesView   = "roles.view"
	PermRolesCreate = "roles.create"
	PermRolesUpdate = "roles.update"
	PermRolesDelete = "roles.delete"
)

// AllPermissions returns every permission name the engine can ask for.
func AllPermissions() []string {
	return []string{
		PermUsersView, PermUsersCreate, PermUsersUpdate, PermUsersDelete,
		PermTeamsView, PermTeamsCreate, PermTeamsUpdate, PermTeamsDelete,
		PermTeamsManageProjects, PermTeamsManageMembers,
		PermProjectsView, PermProjectsCreate, PermProjectsUpdate, PermProjectsDelete,
		PermTasksView, PermTasksCreate, PermTasksUpdate, PermTasksDelete,
		PermTasksAssignUsers,
		PermRolesView, PermRolesCreate, PermRolesUpdate, PermRolesDelete,
	}
}

// CatalogSource lists the permission names present in the seeded catalog.
type CatalogSource interface {
	PermissionNames(ctx context.Context) ([]string, error)
}

// ValidateCatalog verifies that every permission constant the engine uses exists
// in the seeded catalog. Run once at boot, after seeding.
func ValidateCatalog(ctx context.Context, src CatalogSource) error {
	seeded, err := src.PermissionNames(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]struct{}, len(seeded))
	for _, name := range seeded {
		known[name] = struct{}{}
	}

	var missing []string
	for _, name := range AllPermissions() {
		if _, ok := known[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("authz: catalog is missing permissions: %s", strings.Join(missing, ", "))
	}
	return nil
}
