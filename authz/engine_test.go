package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for exercising the engine without a
// database.
type fakeStore struct {
	userRoles    map[uint][]uint
	rolePerms    map[uint][]string
	owners       map[Resource]map[uint]uint
	assignees    map[uint][]uint
	projectTeams map[uint][]uint
	teamProjects map[uint][]uint
	taskProject  map[uint]uint
	children     map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		userRoles:    map[uint][]uint{},
		rolePerms:    map[uint][]string{},
		owners:       map[Resource]map[uint]uint{ResourceTeam: {}, ResourceProject: {}, ResourceTask: {}},
		assignees:    map[uint][]uint{},
		projectTeams: map[uint][]uint{},
		teamProjects: map[uint][]uint{},
		taskProject:  map[uint]uint{},
		children:     map[string]int64{},
	}
}

func (s *fakeStore) RolesForUser(_ context.Context, userID uint) ([]uint, error) {
	return s.userRoles[userID], nil
}

func (s *fakeStore) PermissionsForRole(_ context.Context, roleID uint) ([]string, error) {
	return s.rolePerms[roleID], nil
}

func (s *fakeStore) OwnerOf(_ context.Context, resource Resource, id uint) (uint, error) {
	return s.owners[resource][id], nil
}

func (s *fakeStore) AssigneesOf(_ context.Context, taskID uint) ([]uint, error) {
	return s.assignees[taskID], nil
}

func (s *fakeStore) TeamsOfProject(_ context.Context, projectID uint) ([]uint, error) {
	return s.projectTeams[projectID], nil
}

func (s *fakeStore) ProjectsOfTeam(_ context.Context, teamID uint) ([]uint, error) {
	return s.teamProjects[teamID], nil
}

func (s *fakeStore) ProjectOfTask(_ context.Context, taskID uint) (uint, error) {
	return s.taskProject[taskID], nil
}

func (s *fakeStore) CountChildren(_ context.Context, resource Resource, id uint, child Resource) (int64, error) {
	return s.children[fmt.Sprintf("%s/%d/%s", resource, id, child)], nil
}

func (s *fakeStore) grant(userID, roleID uint, perms ...string) {
	s.userRoles[userID] = append(s.userRoles[userID], roleID)
	s.rolePerms[roleID] = append(s.rolePerms[roleID], perms...)
}

// World used across the tests:
//
//	alice (1)  admin, holds every permission
//	bob   (2)  member, view permissions only
//	carol (3)  no roles at all
//	dave  (4)  no roles; owns team 10 and project 20
//
//	team 10 (owner dave)   linked to project 21
//	team 11 (owner carol)  no links
//	project 20 (owner dave)
//	project 21 (owner bob) linked to team 10
//	task 30 in project 21, created by bob, assigned to carol
func fixtureWorld() *fakeStore {
	s := newFakeStore()
	s.grant(1, 100, AllPermissions()...)
	s.grant(2, 101, PermTeamsView, PermProjectsView, PermTasksView)

	s.owners[ResourceTeam][10] = 4
	s.owners[ResourceTeam][11] = 3
	s.owners[ResourceProject][20] = 4
	s.owners[ResourceProject][21] = 2
	s.owners[ResourceTask][30] = 2

	s.projectTeams[21] = []uint{10}
	s.teamProjects[10] = []uint{21}
	s.taskProject[30] = 21
	s.assignees[30] = []uint{3}
	return s
}

func TestDecideUnauthenticated(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())

	decision, err := engine.Decide(context.Background(), 0, ActionView, ResourceTeam, 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNotAuthenticated, decision.Reason)
}

func TestDecideResourceRequired(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	for _, tc := range []struct {
		action   Action
		resource Resource
	}{
		{ActionView, ResourceTeam},
		{ActionDelete, ResourceProject},
		{ActionUpdate, ResourceTask},
		{ActionCreate, ResourceTask}, // create addresses the target project
		{ActionDelete, ResourceUser},
	} {
		_, err := engine.Decide(ctx, 1, tc.action, tc.resource, 0)
		assert.ErrorIs(t, err, ErrResourceRequired, "%s %s", tc.action, tc.resource)
	}
}

func TestDecideUnknownAction(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())

	_, err := engine.Decide(context.Background(), 1, Action("archive"), ResourceTeam, 10)
	assert.Error(t, err)

	_, err = engine.Decide(context.Background(), 1, Action("archive"), ResourceTask, 30)
	assert.Error(t, err)

	_, err = engine.Decide(context.Background(), 1, ActionView, Resource("document"), 1)
	assert.Error(t, err)
}

func TestTeamView(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	// Owner, without any role.
	decision, err := engine.Decide(ctx, 4, ActionView, ResourceTeam, 10)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Permission holder.
	decision, err = engine.Decide(ctx, 2, ActionView, ResourceTeam, 11)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Project owner sees the team the project is linked to, even with no
	// roles and no team ownership. Bob owns project 21 which is on team 10;
	// but Bob also has teams.view, so use a stripped copy of Bob.
	world := fixtureWorld()
	world.userRoles[2] = nil
	engine = NewEngine(world)
	decision, err = engine.Decide(ctx, 2, ActionView, ResourceTeam, 10)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Same roleless user against an unrelated team.
	decision, err = engine.Decide(ctx, 2, ActionView, ResourceTeam, 11)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestTeamUpdateOwnerOrPermission(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	decision, err := engine.Decide(ctx, 4, ActionUpdate, ResourceTeam, 10)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "owner may update without the permission")

	decision, err = engine.Decide(ctx, 1, ActionUpdate, ResourceTeam, 10)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "permission holder may update without owning")

	decision, err = engine.Decide(ctx, 2, ActionUpdate, ResourceTeam, 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestTeamDeleteChildGuard(t *testing.T) {
	t.Parallel()
	world := fixtureWorld()
	world.children["team/10/project"] = 1
	engine := NewEngine(world)
	ctx := context.Background()

	decision, err := engine.Decide(ctx, 4, ActionDelete, ResourceTeam, 10)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonHasDependentChildren, decision.Reason)

	// Guard runs only after authorization: an unauthorized actor gets the
	// permission denial, not the children one.
	decision, err = engine.Decide(ctx, 2, ActionDelete, ResourceTeam, 10)
	require.NoError(t, err)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)

	// No children: the owner may delete.
	decision, err = engine.Decide(ctx, 3, ActionDelete, ResourceTeam, 11)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestProjectViewViaTeamOwner(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	// Dave owns team 10, which project 21 is linked to.
	decision, err := engine.Decide(ctx, 4, ActionView, ResourceProject, 21)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Carol owns team 11, which has no projects.
	decision, err = engine.Decide(ctx, 3, ActionView, ResourceProject, 21)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestProjectDeleteChildGuard(t *testing.T) {
	t.Parallel()
	world := fixtureWorld()
	world.children["project/21/task"] = 3
	engine := NewEngine(world)

	decision, err := engine.Decide(context.Background(), 2, ActionDelete, ResourceProject, 21)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonHasDependentChildren, decision.Reason)
}

func TestTaskCreateRequiresProjectAccess(t *testing.T) {
	t.Parallel()
	world := fixtureWorld()
	world.grant(3, 102, PermTasksCreate)
	engine := NewEngine(world)
	ctx := context.Background()

	// Carol holds tasks.create but has no access to project 20.
	decision, err := engine.Decide(ctx, 3, ActionCreate, ResourceTask, 20)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)

	// Dave owns project 20 but lacks tasks.create.
	decision, err = engine.Decide(ctx, 4, ActionCreate, ResourceTask, 20)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	// Bob holds tasks.create (via stripped grant) and owns project 21.
	world.grant(2, 103, PermTasksCreate)
	decision, err = engine.Decide(ctx, 2, ActionCreate, ResourceTask, 21)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestTaskInstanceAccess(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	// Creator may do anything to their task.
	for _, action := range []Action{ActionView, ActionUpdate, ActionDelete, ActionAssignUsers} {
		decision, err := engine.Decide(ctx, 2, action, ResourceTask, 30)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "creator %s", action)
	}

	// Assignee without roles may view and update but not delete.
	decision, err := engine.Decide(ctx, 3, ActionUpdate, ResourceTask, 30)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = engine.Decide(ctx, 3, ActionDelete, ResourceTask, 30)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)

	// Owner of the team the task's project is linked to.
	decision, err = engine.Decide(ctx, 4, ActionDelete, ResourceTask, 30)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestUserDeleteSelfGuard(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	// Even the admin cannot delete themselves, and the self guard wins over
	// every other outcome.
	decision, err := engine.Decide(ctx, 1, ActionDelete, ResourceUser, 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonSelfActionForbidden, decision.Reason)
}

func TestUserDeleteChildGuards(t *testing.T) {
	t.Parallel()
	world := fixtureWorld()
	world.children["user/4/team"] = 1
	engine := NewEngine(world)
	ctx := context.Background()

	decision, err := engine.Decide(ctx, 1, ActionDelete, ResourceUser, 4)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonHasDependentChildren, decision.Reason)

	world = fixtureWorld()
	world.children["user/4/project"] = 2
	engine = NewEngine(world)
	decision, err = engine.Decide(ctx, 1, ActionDelete, ResourceUser, 4)
	require.NoError(t, err)
	assert.Equal(t, ReasonHasDependentChildren, decision.Reason)

	// Nothing owned: deletable.
	decision, err = engine.Decide(ctx, 1, ActionDelete, ResourceUser, 2)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Without users.delete the child guard is never consulted.
	decision, err = engine.Decide(ctx, 2, ActionDelete, ResourceUser, 4)
	require.NoError(t, err)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestIsOwner(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	ok, err := engine.IsOwner(ctx, ResourceProject, 21, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.IsOwner(ctx, ResourceProject, 21, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	// Missing resource resolves to no owner, not an error.
	ok, err = engine.IsOwner(ctx, ResourceProject, 999, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionUnknownName(t *testing.T) {
	t.Parallel()
	world := fixtureWorld()
	resolver := rbacResolver{store: world}

	ok, err := resolver.hasPermission(context.Background(), 1, "documents.view")
	require.NoError(t, err)
	assert.False(t, ok, "unknown permission names never match")
}

func TestRoleActionsPermissionGated(t *testing.T) {
	t.Parallel()
	engine := NewEngine(fixtureWorld())
	ctx := context.Background()

	// Admin holds the full catalog, including roles.*.
	for _, action := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete} {
		decision, err := engine.Decide(ctx, 1, action, ResourceRole, 0)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "admin %s", action)
	}

	// Ownership never applies to roles; everyone else needs the permission.
	decision, err := engine.Decide(ctx, 4, ActionUpdate, ResourceRole, 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)

	_, err = engine.Decide(ctx, 1, ActionManageMembers, ResourceRole, 0)
	assert.Error(t, err)
}
