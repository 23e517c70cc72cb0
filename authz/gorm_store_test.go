package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhive/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.Permission{},
		&models.Team{}, &models.Project{},
		&models.Task{}, &models.TaskAssignment{},
	))
	return db
}

// seedGraph builds a small relationship graph and returns the created rows.
func seedGraph(t *testing.T, db *gorm.DB) (owner, member models.User, team models.Team, project models.Project, task models.Task) {
	t.Helper()

	owner = models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", IsActive: true}
	member = models.User{Name: "Member", Email: "member@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&member).Error)

	team = models.Team{Name: "Platform", OwnerID: owner.ID, IsActive: true}
	require.NoError(t, db.Create(&team).Error)

	project = models.Project{Name: "Gateway", OwnerID: owner.ID, Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(&project).Error)
	require.NoError(t, db.Model(&team).Association("Projects").Append(&project))

	task = models.Task{Title: "Wire healthcheck", ProjectID: project.ID, CreatedBy: owner.ID, Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium}
	require.NoError(t, db.Create(&task).Error)
	require.NoError(t, db.Create(&models.TaskAssignment{TaskID: task.ID, UserID: member.ID, Role: "assignee"}).Error)

	return owner, member, team, project, task
}

func TestGormStoreRolesAndPermissions(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	require.NoError(t, models.SeedRolesAndPermissions(db))

	user := models.User{Name: "U", Email: "u@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	var admin models.Role
	require.NoError(t, db.Where("name = ?", "admin").First(&admin).Error)
	require.NoError(t, db.Model(&user).Association("Roles").Append(&admin))

	store := NewGormStore(db)
	ctx := context.Background()

	roleIDs, err := store.RolesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, roleIDs, 1)
	assert.Equal(t, admin.ID, roleIDs[0])

	perms, err := store.PermissionsForRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, AllPermissions(), perms)

	// A user with no roles resolves to an empty set, not an error.
	roleIDs, err = store.RolesForUser(ctx, user.ID+100)
	require.NoError(t, err)
	assert.Empty(t, roleIDs)
}

func TestGormStoreOwnership(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	owner, member, team, project, task := seedGraph(t, db)

	store := NewGormStore(db)
	ctx := context.Background()

	id, err := store.OwnerOf(ctx, ResourceTeam, team.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, id)

	id, err = store.OwnerOf(ctx, ResourceProject, project.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, id)

	id, err = store.OwnerOf(ctx, ResourceTask, task.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, id)

	// Missing rows resolve to 0 without an error.
	id, err = store.OwnerOf(ctx, ResourceTeam, 9999)
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = store.OwnerOf(ctx, ResourceUser, owner.ID)
	assert.Error(t, err, "users have no owner")

	assignees, err := store.AssigneesOf(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{member.ID}, assignees)
}

func TestGormStoreLinks(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	_, _, team, project, task := seedGraph(t, db)

	store := NewGormStore(db)
	ctx := context.Background()

	teamIDs, err := store.TeamsOfProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{team.ID}, teamIDs)

	projectIDs, err := store.ProjectsOfTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{project.ID}, projectIDs)

	projectID, err := store.ProjectOfTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, projectID)

	projectID, err = store.ProjectOfTask(ctx, 9999)
	require.NoError(t, err)
	assert.Zero(t, projectID)
}

func TestGormStoreCountChildren(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	owner, member, team, project, _ := seedGraph(t, db)

	store := NewGormStore(db)
	ctx := context.Background()

	count, err := store.CountChildren(ctx, ResourceTeam, team.ID, ResourceProject)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = store.CountChildren(ctx, ResourceProject, project.ID, ResourceTask)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = store.CountChildren(ctx, ResourceUser, owner.ID, ResourceTeam)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = store.CountChildren(ctx, ResourceUser, member.ID, ResourceProject)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.CountChildren(ctx, ResourceTask, 1, ResourceUser)
	assert.Error(t, err)
}

func TestEngineAgainstGormStore(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	require.NoError(t, models.SeedRolesAndPermissions(db))
	owner, member, team, project, task := seedGraph(t, db)

	engine := NewEngine(NewGormStore(db))
	ctx := context.Background()

	// Team owner may update their team with no roles at all.
	decision, err := engine.Decide(ctx, owner.ID, ActionUpdate, ResourceTeam, team.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Deleting the project is blocked while its task exists.
	decision, err = engine.Decide(ctx, owner.ID, ActionDelete, ResourceProject, project.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonHasDependentChildren, decision.Reason)

	// The assignee may update the task but not delete it.
	decision, err = engine.Decide(ctx, member.ID, ActionUpdate, ResourceTask, task.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = engine.Decide(ctx, member.ID, ActionDelete, ResourceTask, task.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}
