package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/authz"
	"taskhive/cache"
	"taskhive/models"
	"taskhive/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Engine *authz.Engine
	Cache  *cache.Cache
	Logger *logrus.Logger
}

func NewProjectController(db *gorm.DB, engine *authz.Engine, c *cache.Cache, logger *logrus.Logger) *ProjectController {
	return &ProjectController{DB: db, Engine: engine, Cache: c, Logger: logger}
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
	Status      string `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Status      *string `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
}

// ProjectStatistics is the cached aggregate served by GetStatistics.
type ProjectStatistics struct {
	TotalTasks         int64   `json:"total_tasks"`
	CompletedTasks     int64   `json:"completed_tasks"`
	PendingTasks       int64   `json:"pending_tasks"`
	InProgressTasks    int64   `json:"in_progress_tasks"`
	ReviewTasks        int64   `json:"review_tasks"`
	ProgressPercentage float64 `json:"progress_percentage"`
	TeamsCount         int64   `json:"teams_count"`
}

// ListProjects returns projects the user owns or can access through team
// ownership, optionally filtered by status.
func (pc *ProjectController) ListProjects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 15)
	if limit < 1 || limit > 100 {
		limit = 15
	}

	base := pc.DB.Model(&models.Project{}).
		Distinct("projects.*").
		Joins("LEFT JOIN project_teams ON project_teams.project_id = projects.id").
		Joins("LEFT JOIN teams ON teams.id = project_teams.team_id").
		Where("projects.owner_id = ? OR teams.owner_id = ?", user.ID, user.ID)

	if status := c.Query("status"); status != "" {
		if !models.IsValidProjectStatus(status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid project status", nil)
		}
		base = base.Where("projects.status = ?", status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list projects", err)
	}

	var projects []models.Project
	if err := base.Preload("Owner").Preload("Teams").
		Order("projects.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&projects).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list projects", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  projects,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	decision, err := pc.Engine.Decide(c.Context(), user.ID, authz.ActionCreate, authz.ResourceProject, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	status := req.Status
	if status == "" {
		status = models.ProjectStatusPlanning
	}

	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
		Status:      status,
	}
	if err := pc.DB.Create(&project).Error; err != nil {
		pc.Logger.WithError(err).Error("failed to create project")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create project", err)
	}

	pc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(user.ID))

	pc.DB.Preload("Owner").First(&project, project.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(project))
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	decision, err := pc.Engine.Decide(c.Context(), user.ID, authz.ActionView, authz.ResourceProject, project.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	pc.DB.Preload("Owner").Preload("Teams").Preload("Tasks").First(&project, project.ID)
	return c.JSON(utils.SuccessResponse(project))
}

func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	decision, err := pc.Engine.Decide(c.Context(), user.ID, authz.ActionUpdate, authz.ResourceProject, project.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) > 0 {
		if err := pc.DB.Model(&project).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update project", err)
		}
	}

	pc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(project.OwnerID))
	pc.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(project.ID))

	pc.DB.Preload("Owner").Preload("Teams").First(&project, project.ID)
	return c.JSON(utils.SuccessResponse(project))
}

func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	// Covers ownership/permission and the no-tasks guard
	decision, err := pc.Engine.Decide(c.Context(), user.ID, authz.ActionDelete, authz.ResourceProject, project.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	tx := pc.DB.Begin()
	if err := tx.Model(&project).Association("Teams").Clear(); err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete project", err)
	}
	if err := tx.Delete(&project).Error; err != nil {
		tx.Rollback()
		pc.Logger.WithError(err).Error("failed to delete project")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete project", err)
	}
	if err := tx.Commit().Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete project", err)
	}

	pc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(project.OwnerID))
	pc.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(project.ID))

	return c.JSON(utils.MessageResponse("Project deleted"))
}

// GetStatistics serves the cached task-progress aggregate for a project.
func (pc *ProjectController) GetStatistics(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	decision, err := pc.Engine.Decide(c.Context(), user.ID, authz.ActionView, authz.ResourceProject, project.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var stats ProjectStatistics
	err = pc.Cache.Remember(c.Context(), cache.ProjectStatsKey(project.ID), 10*time.Minute, &stats, func() (interface{}, error) {
		return pc.computeStatistics(project.ID)
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute statistics", err)
	}

	return c.JSON(utils.SuccessResponse(stats))
}

func (pc *ProjectController) computeStatistics(projectID uint) (*ProjectStatistics, error) {
	var stats ProjectStatistics

	counts := map[string]*int64{
		models.TaskStatusDone:       &stats.CompletedTasks,
		models.TaskStatusTodo:       &stats.PendingTasks,
		models.TaskStatusInProgress: &stats.InProgressTasks,
		models.TaskStatusReview:     &stats.ReviewTasks,
	}

	if err := pc.DB.Model(&models.Task{}).Where("project_id = ?", projectID).Count(&stats.TotalTasks).Error; err != nil {
		return nil, err
	}
	for status, dest := range counts {
		if err := pc.DB.Model(&models.Task{}).
			Where("project_id = ? AND status = ?", projectID, status).
			Count(dest).Error; err != nil {
			return nil, err
		}
	}
	if err := pc.DB.Table("project_teams").Where("project_id = ?", projectID).Count(&stats.TeamsCount).Error; err != nil {
		return nil, err
	}

	if stats.TotalTasks > 0 {
		stats.ProgressPercentage = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}
	return &stats, nil
}
