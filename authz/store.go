package authz

import "context"

// Store is the read-only data-access port the engine resolves relationships
// through. Implementations must be side-effect free and present a coherent view
// for the duration of a single Decide call.
type Store interface {
	// RolesForUser returns the ids of all roles assigned to the user.
	RolesForUser(ctx context.Context, userID uint) ([]uint, error)

	// PermissionsForRole returns the permission names granted to the role.
	PermissionsForRole(ctx context.Context, roleID uint) ([]string, error)

	// OwnerOf returns the owning user id of a team or project, or the creator
	// id of a task. It returns 0 when the resource does not resolve.
	OwnerOf(ctx context.Context, resource Resource, id uint) (uint, error)

	// AssigneesOf returns the ids of all users assigned to the task.
	AssigneesOf(ctx context.Context, taskID uint) ([]uint, error)

	// TeamsOfProject returns the ids of all teams the project is linked to.
	TeamsOfProject(ctx context.Context, projectID uint) ([]uint, error)

	// ProjectsOfTeam returns the ids of all projects linked to the team.
	ProjectsOfTeam(ctx context.Context, teamID uint) ([]uint, error)

	// ProjectOfTask returns the id of the project the task belongs to,
	// or 0 when the task does not resolve.
	ProjectOfTask(ctx context.Context, taskID uint) (uint, error)

	// CountChildren counts dependent child resources, used by the
	// referential-integrity guards (team→projects, project→tasks,
	// user→owned teams, user→owned projects).
	CountChildren(ctx context.Context, resource Resource, id uint, child Resource) (int64, error)
}
