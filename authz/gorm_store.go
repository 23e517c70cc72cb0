package authz

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskhive/models"
)

// GormStore implements Store and CatalogSource on top of the application's
// GORM connection. Every method is a pure read.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) RolesForUser(ctx context.Context, userID uint) ([]uint, error) {
	var roleIDs []uint
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Where("user_id = ?", userID).
		Pluck("role_id", &roleIDs).Error
	return roleIDs, err
}

func (s *GormStore) PermissionsForRole(ctx context.Context, roleID uint) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Pluck("permissions.name", &names).Error
	return names, err
}

func (s *GormStore) OwnerOf(ctx context.Context, resource Resource, id uint) (uint, error) {
	var (
		ownerID uint
		err     error
	)
	db := s.db.WithContext(ctx)

	switch resource {
	case ResourceTeam:
		err = db.Model(&models.Team{}).Select("owner_id").Where("id = ?", id).Scan(&ownerID).Error
	case ResourceProject:
		err = db.Model(&models.Project{}).Select("owner_id").Where("id = ?", id).Scan(&ownerID).Error
	case ResourceTask:
		err = db.Model(&models.Task{}).Select("created_by").Where("id = ?", id).Scan(&ownerID).Error
	default:
		return 0, fmt.Errorf("authz: resource %q has no owner", resource)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return ownerID, err
}

func (s *GormStore) AssigneesOf(ctx context.Context, taskID uint) ([]uint, error) {
	var userIDs []uint
	err := s.db.WithContext(ctx).
		Model(&models.TaskAssignment{}).
		Where("task_id = ?", taskID).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (s *GormStore) TeamsOfProject(ctx context.Context, projectID uint) ([]uint, error) {
	var teamIDs []uint
	err := s.db.WithContext(ctx).
		Table("project_teams").
		Where("project_id = ?", projectID).
		Pluck("team_id", &teamIDs).Error
	return teamIDs, err
}

func (s *GormStore) ProjectsOfTeam(ctx context.Context, teamID uint) ([]uint, error) {
	var projectIDs []uint
	err := s.db.WithContext(ctx).
		Table("project_teams").
		Where("team_id = ?", teamID).
		Pluck("project_id", &projectIDs).Error
	return projectIDs, err
}

func (s *GormStore) ProjectOfTask(ctx context.Context, taskID uint) (uint, error) {
	var projectID uint
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("project_id").
		Where("id = ?", taskID).
		Scan(&projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return projectID, err
}

func (s *GormStore) CountChildren(ctx context.Context, resource Resource, id uint, child Resource) (int64, error) {
	var count int64
	db := s.db.WithContext(ctx)

	switch {
	case resource == ResourceTeam && child == ResourceProject:
		err := db.Table("project_teams").Where("team_id = ?", id).Count(&count).Error
		return count, err
	case resource == ResourceProject && child == ResourceTask:
		err := db.Model(&models.Task{}).Where("project_id = ?", id).Count(&count).Error
		return count, err
	case resource == ResourceUser && child == ResourceTeam:
		err := db.Model(&models.Team{}).Where("owner_id = ?", id).Count(&count).Error
		return count, err
	case resource == ResourceUser && child == ResourceProject:
		err := db.Model(&models.Project{}).Where("owner_id = ?", id).Count(&count).Error
		return count, err
	default:
		return 0, fmt.Errorf("authz: no child relation %s→%s", resource, child)
	}
}

// PermissionNames implements CatalogSource for boot-time catalog validation.
func (s *GormStore) PermissionNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&models.Permission{}).
		Pluck("name", &names).Error
	return names, err
}
