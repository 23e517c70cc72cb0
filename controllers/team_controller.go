package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/authz"
	"taskhive/cache"
	"taskhive/models"
	"taskhive/utils"
)

type TeamController struct {
	DB     *gorm.DB
	Engine *authz.Engine
	Cache  *cache.Cache
	Logger *logrus.Logger
}

func NewTeamController(db *gorm.DB, engine *authz.Engine, c *cache.Cache, logger *logrus.Logger) *TeamController {
	return &TeamController{DB: db, Engine: engine, Cache: c, Logger: logger}
}

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
	IsActive    *bool  `json:"is_active"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool   `json:"is_active"`
}

type TeamProjectRequest struct {
	ProjectID uint `json:"project_id" validate:"required"`
}

type TeamMemberRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=member manager admin"`
}

// ListTeams returns active teams the user owns or whose projects the user owns.
func (tc *TeamController) ListTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 15)
	if limit < 1 || limit > 100 {
		limit = 15
	}

	base := tc.DB.Model(&models.Team{}).
		Distinct("teams.*").
		Joins("LEFT JOIN project_teams ON project_teams.team_id = teams.id").
		Joins("LEFT JOIN projects ON projects.id = project_teams.project_id").
		Where("teams.is_active = ?", true).
		Where("teams.owner_id = ? OR projects.owner_id = ?", user.ID, user.ID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list teams", err)
	}

	var teams []models.Team
	if err := base.Preload("Owner").Preload("Projects").
		Order("teams.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&teams).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list teams", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  teams,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionCreate, authz.ResourceTeam, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	team := models.Team{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
		IsActive:    true,
	}
	if req.IsActive != nil {
		team.IsActive = *req.IsActive
	}

	if err := tc.DB.Create(&team).Error; err != nil {
		tc.Logger.WithError(err).Error("failed to create team")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create team", err)
	}

	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(user.ID))

	tc.DB.Preload("Owner").Preload("Projects").First(&team, team.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionView, authz.ResourceTeam, team.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	tc.DB.Preload("Owner").Preload("Projects.Tasks").Preload("Members").First(&team, team.ID)
	return c.JSON(utils.SuccessResponse(team))
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionUpdate, authz.ResourceTeam, team.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req UpdateTeamRequest
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
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := tc.DB.Model(&team).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update team", err)
		}
	}

	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(team.OwnerID))

	tc.DB.Preload("Owner").Preload("Projects").First(&team, team.ID)
	return c.JSON(utils.SuccessResponse(team))
}

func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	// Covers both the ownership/permission rule and the no-projects guard
	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionDelete, authz.ResourceTeam, team.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	tx := tc.DB.Begin()
	if err := tx.Model(&team).Association("Members").Clear(); err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", err)
	}
	if err := tx.Delete(&team).Error; err != nil {
		tx.Rollback()
		tc.Logger.WithError(err).Error("failed to delete team")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", err)
	}
	if err := tx.Commit().Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", err)
	}

	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(team.OwnerID))

	return c.JSON(utils.MessageResponse("Team deleted"))
}

// AddProject links an existing project to the team. The project must belong to
// the acting user.
func (tc *TeamController) AddProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionManageProjects, authz.ResourceTeam, team.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req TeamProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var project models.Project
	if err := tc.DB.First(&project, req.ProjectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	// The attached project must be the actor's own
	owns, err := tc.Engine.IsOwner(c.Context(), authz.ResourceProject, project.ID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !owns {
		return deny(c, authz.Deny(authz.ReasonNotOwner))
	}

	var linked int64
	tc.DB.Table("project_teams").
		Where("team_id = ? AND project_id = ?", team.ID, project.ID).
		Count(&linked)
	if linked > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Project is already linked to this team", nil)
	}

	if err := tc.DB.Model(&team).Association("Projects").Append(&project); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add project to team", err)
	}

	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(team.OwnerID))
	tc.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(project.ID))

	return c.JSON(utils.MessageResponse("Project added to team"))
}

func (tc *TeamController) RemoveProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))
	projectID := utils.ParseUint(c.Params("projectID"))

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionManageProjects, authz.ResourceTeam, team.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var linked int64
	tc.DB.Table("project_teams").
		Where("team_id = ? AND project_id = ?", team.ID, projectID).
		Count(&linked)
	if linked == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project is not linked to this team", nil)
	}

	if err := tc.DB.Model(&team).Association("Projects").Delete(&models.Project{Model: gorm.Model{ID: projectID}}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove project from team", err)
	}

	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(team.OwnerID))
	tc.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(projectID))

	return c.JSON(utils.MessageResponse("Project removed from team"))
}

func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionManageMembers, authz.ResourceTeam, team.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req TeamMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var member models.User
	if err := tc.DB.First(&member, req.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	var linked int64
	tc.DB.Table("team_members").
		Where("team_id = ? AND user_id = ?", team.ID, member.ID).
		Count(&linked)
	if linked > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "User is already a member of this team", nil)
	}

	if err := tc.DB.Model(&team).Association("Members").Append(&member); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", err)
	}

	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(user.ID))
	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(member.ID))

	return c.JSON(utils.MessageResponse("Member added to team"))
}

func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))
	memberID := utils.ParseUint(c.Params("userID"))

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	decision, err := tc.Engine.Decide(c.Context(), user.ID, authz.ActionManageMembers, authz.ResourceTeam, team.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	// The owner cannot be removed from their own team
	if team.OwnerID == memberID {
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, "The team owner cannot be removed", nil)
	}

	var linked int64
	tc.DB.Table("team_members").
		Where("team_id = ? AND user_id = ?", team.ID, memberID).
		Count(&linked)
	if linked == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User is not a member of this team", nil)
	}

	if err := tc.DB.Model(&team).Association("Members").Delete(&models.User{Model: gorm.Model{ID: memberID}}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove member", err)
	}

	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(user.ID))
	tc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(memberID))

	return c.JSON(utils.MessageResponse("Member removed from team"))
}
