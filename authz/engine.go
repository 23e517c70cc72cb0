package authz

import (
	"context"
	"fmt"
)

// Engine is the authorization core. It is stateless and safe for concurrent
// use; every Decide call re-resolves permissions and ownership from the store,
// so facts changed between requests are always picked up.
type Engine struct {
	store  Store
	rbac   rbacResolver
	owners ownershipResolver
}

// NewEngine returns an Engine resolving relationships through store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store:  store,
		rbac:   rbacResolver{store: store},
		owners: ownershipResolver{store: store},
	}
}

// Decide evaluates whether actorID may perform action on the given resource.
// resourceID is 0 for class-level actions (create, list); actions addressing an
// instance return ErrResourceRequired when it is 0. Task creation is the one
// exception: there resourceID is the id of the target project, because creating
// a task requires view access to the project it lands in.
//
// Any satisfied clause grants access; owner and permission-holder are equally
// sufficient. Self-action guards are checked before permissions, and
// referential-integrity guards last, so the most actionable reason surfaces.
func (e *Engine) Decide(ctx context.Context, actorID uint, action Action, resource Resource, resourceID uint) (Decision, error) {
	if actorID == 0 {
		return Deny(ReasonNotAuthenticated), nil
	}

	switch resource {
	case ResourceTeam:
		return e.decideTeam(ctx, actorID, action, resourceID)
	case ResourceProject:
		return e.decideProject(ctx, actorID, action, resourceID)
	case ResourceTask:
		return e.decideTask(ctx, actorID, action, resourceID)
	case ResourceUser:
		return e.decideUser(ctx, actorID, action, resourceID)
	case ResourceRole:
		return e.decideRole(ctx, actorID, action)
	default:
		return Decision{}, fmt.Errorf("authz: unknown resource %q", resource)
	}
}

// IsOwner exposes the ownership predicate for callers that need a structural
// check outside a policy decision, such as "the project being attached to a
// team must belong to the actor".
func (e *Engine) IsOwner(ctx context.Context, resource Resource, id, userID uint) (bool, error) {
	return e.owners.isOwner(ctx, resource, id, userID)
}

func (e *Engine) decideTeam(ctx context.Context, actorID uint, action Action, teamID uint) (Decision, error) {
	if action == ActionCreate {
		return e.permissionOnly(ctx, actorID, PermTeamsCreate)
	}
	if teamID == 0 {
		return Decision{}, ErrResourceRequired
	}

	owner, err := e.owners.isOwner(ctx, ResourceTeam, teamID, actorID)
	if err != nil {
		return Decision{}, err
	}

	switch action {
	case ActionView:
		if owner {
			return Allow(), nil
		}
		if ok, err := e.rbac.hasPermission(ctx, actorID, PermTeamsView); err != nil || ok {
			return allowIf(ok), err
		}
		// Project owners may view the teams their projects are linked to.
		if ok, err := e.owners.ownsAnyProjectOf(ctx, teamID, actorID); err != nil || ok {
			return allowIf(ok), err
		}
		return Deny(ReasonInsufficientPermission), nil

	case ActionUpdate:
		return e.ownerOrPermission(ctx, actorID, owner, PermTeamsUpdate)

	case ActionDelete:
		decision, err := e.ownerOrPermission(ctx, actorID, owner, PermTeamsDelete)
		if err != nil || !decision.Allowed {
			return decision, err
		}
		return e.childGuard(ctx, ResourceTeam, teamID, ResourceProject)

	case ActionManageProjects:
		return e.ownerOrPermission(ctx, actorID, owner, PermTeamsManageProjects)

	case ActionManageMembers:
		return e.ownerOrPermission(ctx, actorID, owner, PermTeamsManageMembers)
	}
	return Decision{}, fmt.Errorf("authz: action %q not defined for teams", action)
}

func (e *Engine) decideProject(ctx context.Context, actorID uint, action Action, projectID uint) (Decision, error) {
	if action == ActionCreate {
		return e.permissionOnly(ctx, actorID, PermProjectsCreate)
	}
	if projectID == 0 {
		return Decision{}, ErrResourceRequired
	}

	owner, err := e.owners.isOwner(ctx, ResourceProject, projectID, actorID)
	if err != nil {
		return Decision{}, err
	}

	switch action {
	case ActionView:
		if owner {
			return Allow(), nil
		}
		if ok, err := e.rbac.hasPermission(ctx, actorID, PermProjectsView); err != nil || ok {
			return allowIf(ok), err
		}
		if ok, err := e.owners.isTeamOwnerOfProject(ctx, projectID, actorID); err != nil || ok {
			return allowIf(ok), err
		}
		return Deny(ReasonInsufficientPermission), nil

	case ActionUpdate:
		return e.ownerOrPermission(ctx, actorID, owner, PermProjectsUpdate)

	case ActionDelete:
		decision, err := e.ownerOrPermission(ctx, actorID, owner, PermProjectsDelete)
		if err != nil || !decision.Allowed {
			return decision, err
		}
		return e.childGuard(ctx, ResourceProject, projectID, ResourceTask)
	}
	return Decision{}, fmt.Errorf("authz: action %q not defined for projects", action)
}

func (e *Engine) decideTask(ctx context.Context, actorID uint, action Action, taskID uint) (Decision, error) {
	if action == ActionCreate {
		// For creation taskID addresses the target project.
		if taskID == 0 {
			return Decision{}, ErrResourceRequired
		}
		decision, err := e.permissionOnly(ctx, actorID, PermTasksCreate)
		if err != nil || !decision.Allowed {
			return decision, err
		}
		return e.decideProject(ctx, actorID, ActionView, taskID)
	}
	perm, known := map[Action]string{
		ActionView:        PermTasksView,
		ActionUpdate:      PermTasksUpdate,
		ActionDelete:      PermTasksDelete,
		ActionAssignUsers: PermTasksAssignUsers,
	}[action]
	if !known {
		return Decision{}, fmt.Errorf("authz: action %q not defined for tasks", action)
	}
	if taskID == 0 {
		return Decision{}, ErrResourceRequired
	}

	// Structural relations shared by every instance action.
	creator, err := e.owners.isOwner(ctx, ResourceTask, taskID, actorID)
	if err != nil {
		return Decision{}, err
	}
	if creator {
		return Allow(), nil
	}

	projectID, err := e.store.ProjectOfTask(ctx, taskID)
	if err != nil {
		return Decision{}, err
	}
	if projectID != 0 {
		if ok, err := e.owners.isOwner(ctx, ResourceProject, projectID, actorID); err != nil || ok {
			return allowIf(ok), err
		}
		if ok, err := e.owners.isTeamOwnerOfProject(ctx, projectID, actorID); err != nil || ok {
			return allowIf(ok), err
		}
	}

	// Assignees may view, update and assign, but not delete. Deletion stays
	// with the creator, the project owner and the owning team's owner.
	if action != ActionDelete {
		if ok, err := e.owners.isAssigned(ctx, taskID, actorID); err != nil || ok {
			return allowIf(ok), err
		}
	}

	return e.permissionOnly(ctx, actorID, perm)
}

func (e *Engine) decideUser(ctx context.Context, actorID uint, action Action, targetID uint) (Decision, error) {
	switch action {
	case ActionCreate:
		return e.permissionOnly(ctx, actorID, PermUsersCreate)

	case ActionView:
		return e.permissionOnly(ctx, actorID, PermUsersView)

	case ActionDelete:
		if targetID == 0 {
			return Decision{}, ErrResourceRequired
		}
		// The self guard comes before the permission check so an admin is told
		// "you cannot delete yourself" rather than the generic denial.
		if targetID == actorID {
			return Deny(ReasonSelfActionForbidden), nil
		}
		decision, err := e.permissionOnly(ctx, actorID, PermUsersDelete)
		if err != nil || !decision.Allowed {
			return decision, err
		}
		if decision, err = e.childGuard(ctx, ResourceUser, targetID, ResourceTeam); err != nil || !decision.Allowed {
			return decision, err
		}
		return e.childGuard(ctx, ResourceUser, targetID, ResourceProject)
	}
	return Decision{}, fmt.Errorf("authz: action %q not defined for users", action)
}

// decideRole covers the role catalog. Roles have no owner, so every action is
// strictly permission-gated; update also covers granting and revoking a role.
func (e *Engine) decideRole(ctx context.Context, actorID uint, action Action) (Decision, error) {
	perm, known := map[Action]string{
		ActionView:   PermRolesView,
		ActionCreate: PermRolesCreate,
		ActionUpdate: PermRolesUpdate,
		ActionDelete: PermRolesDelete,
	}[action]
	if !known {
		return Decision{}, fmt.Errorf("authz: action %q not defined for roles", action)
	}
	return e.permissionOnly(ctx, actorID, perm)
}

// permissionOnly grants iff the actor holds the named permission.
func (e *Engine) permissionOnly(ctx context.Context, actorID uint, permission string) (Decision, error) {
	ok, err := e.rbac.hasPermission(ctx, actorID, permission)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Deny(ReasonInsufficientPermission), nil
	}
	return Allow(), nil
}

// ownerOrPermission grants when the actor owns the resource or holds the
// permission; neither takes precedence over the other.
func (e *Engine) ownerOrPermission(ctx context.Context, actorID uint, owner bool, permission string) (Decision, error) {
	if owner {
		return Allow(), nil
	}
	return e.permissionOnly(ctx, actorID, permission)
}

// childGuard denies with HasDependentChildren when dependent resources exist.
func (e *Engine) childGuard(ctx context.Context, resource Resource, id uint, child Resource) (Decision, error) {
	count, err := e.store.CountChildren(ctx, resource, id, child)
	if err != nil {
		return Decision{}, err
	}
	if count > 0 {
		return Deny(ReasonHasDependentChildren), nil
	}
	return Allow(), nil
}

func allowIf(ok bool) Decision {
	if ok {
		return Allow()
	}
	return Decision{}
}
