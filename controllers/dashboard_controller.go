package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/cache"
	"taskhive/models"
	"taskhive/utils"
)

type DashboardController struct {
	DB     *gorm.DB
	Cache  *cache.Cache
	Logger *logrus.Logger
}

func NewDashboardController(db *gorm.DB, c *cache.Cache, logger *logrus.Logger) *DashboardController {
	return &DashboardController{DB: db, Cache: c, Logger: logger}
}

type DashboardStats struct {
	OwnedTeams     int64 `json:"owned_teams"`
	OwnedProjects  int64 `json:"owned_projects"`
	CreatedTasks   int64 `json:"created_tasks"`
	AssignedTasks  int64 `json:"assigned_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	OverdueTasks   int64 `json:"overdue_tasks"`
}

const (
	dashboardStatsTTL  = 10 * time.Minute
	dashboardRecentTTL = 5 * time.Minute
	dashboardRecentN   = 5
)

// Dashboard returns the caller's activity summary. Each section is cached
// independently so an expired stats entry does not force the recents to
// recompute as well.
func (dc *DashboardController) Dashboard(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	ctx := c.Context()

	var stats DashboardStats
	err := dc.Cache.Remember(ctx, cache.UserStatsKey(user.ID), dashboardStatsTTL, &stats, func() (interface{}, error) {
		return dc.computeStats(user.ID)
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	var projects []models.Project
	err = dc.Cache.Remember(ctx, cache.UserRecentProjectsKey(user.ID, dashboardRecentN), dashboardRecentTTL, &projects, func() (interface{}, error) {
		var out []models.Project
		err := dc.DB.Where("owner_id = ?", user.ID).
			Order("updated_at DESC").Limit(dashboardRecentN).Find(&out).Error
		return out, err
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	var teams []models.Team
	err = dc.Cache.Remember(ctx, cache.UserRecentTeamsKey(user.ID, dashboardRecentN), dashboardRecentTTL, &teams, func() (interface{}, error) {
		var out []models.Team
		err := dc.DB.Where("owner_id = ?", user.ID).
			Order("updated_at DESC").Limit(dashboardRecentN).Find(&out).Error
		return out, err
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	var tasks []models.Task
	err = dc.Cache.Remember(ctx, cache.UserRecentTasksKey(user.ID, dashboardRecentN), dashboardRecentTTL, &tasks, func() (interface{}, error) {
		var out []models.Task
		err := dc.DB.Preload("Project").
			Joins("LEFT JOIN task_assignments ON task_assignments.task_id = tasks.id AND task_assignments.deleted_at IS NULL").
			Where("tasks.created_by = ? OR task_assignments.user_id = ?", user.ID, user.ID).
			Group("tasks.id").
			Order("tasks.updated_at DESC").Limit(dashboardRecentN).Find(&out).Error
		return out, err
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"statistics":      stats,
		"recent_projects": projects,
		"recent_teams":    teams,
		"recent_tasks":    tasks,
	}))
}

func (dc *DashboardController) computeStats(userID uint) (DashboardStats, error) {
	var stats DashboardStats

	if err := dc.DB.Model(&models.Team{}).Where("owner_id = ?", userID).Count(&stats.OwnedTeams).Error; err != nil {
		return stats, err
	}
	if err := dc.DB.Model(&models.Project{}).Where("owner_id = ?", userID).Count(&stats.OwnedProjects).Error; err != nil {
		return stats, err
	}
	if err := dc.DB.Model(&models.Task{}).Where("created_by = ?", userID).Count(&stats.CreatedTasks).Error; err != nil {
		return stats, err
	}

	assigned := func() *gorm.DB {
		return dc.DB.Model(&models.Task{}).
			Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id AND task_assignments.deleted_at IS NULL").
			Where("task_assignments.user_id = ?", userID)
	}
	if err := assigned().Count(&stats.AssignedTasks).Error; err != nil {
		return stats, err
	}
	if err := assigned().Where("tasks.status = ?", models.TaskStatusDone).Count(&stats.CompletedTasks).Error; err != nil {
		return stats, err
	}

	overdue := dc.DB.Model(&models.Task{}).
		Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id AND task_assignments.deleted_at IS NULL").
		Where("task_assignments.user_id = ?", userID).
		Where("tasks.due_date < ?", time.Now()).
		Where("tasks.status NOT IN ?", []string{models.TaskStatusDone, models.TaskStatusCancelled})
	if err := overdue.Count(&stats.OverdueTasks).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

// MyProjects lists projects the caller owns.
func (dc *DashboardController) MyProjects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var projects []models.Project
	if err := dc.DB.Preload("Teams").Where("owner_id = ?", user.ID).
		Order("updated_at DESC").Find(&projects).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list projects", err)
	}
	return c.JSON(utils.SuccessResponse(projects))
}

// MyTeams lists teams the caller owns or belongs to.
func (dc *DashboardController) MyTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var teams []models.Team
	if err := dc.DB.
		Joins("LEFT JOIN team_members ON team_members.team_id = teams.id").
		Where("teams.owner_id = ? OR team_members.user_id = ?", user.ID, user.ID).
		Group("teams.id").
		Order("teams.updated_at DESC").Find(&teams).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list teams", err)
	}
	return c.JSON(utils.SuccessResponse(teams))
}

// MyTasks lists tasks the caller created or is assigned to, with optional
// status filtering.
func (dc *DashboardController) MyTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := dc.DB.Preload("Project").
		Joins("LEFT JOIN task_assignments ON task_assignments.task_id = tasks.id AND task_assignments.deleted_at IS NULL").
		Where("tasks.created_by = ? OR task_assignments.user_id = ?", user.ID, user.ID).
		Group("tasks.id")

	if status := c.Query("status"); status != "" {
		if !models.IsValidTaskStatus(status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid task status", nil)
		}
		query = query.Where("tasks.status = ?", status)
	}

	var tasks []models.Task
	if err := query.Order("tasks.updated_at DESC").Find(&tasks).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", err)
	}
	return c.JSON(utils.SuccessResponse(tasks))
}
