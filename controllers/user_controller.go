package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskhive/authz"
	"taskhive/cache"
	"taskhive/models"
	"taskhive/utils"
)

type UserController struct {
	DB     *gorm.DB
	Engine *authz.Engine
	Cache  *cache.Cache
	Logger *logrus.Logger
}

func NewUserController(db *gorm.DB, engine *authz.Engine, c *cache.Cache, logger *logrus.Logger) *UserController {
	return &UserController{DB: db, Engine: engine, Cache: c, Logger: logger}
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin manager member"`
}

type UserRoleRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	actor := c.Locals("user").(*models.User)

	decision, err := uc.Engine.Decide(c.Context(), actor.ID, authz.ActionView, authz.ResourceUser, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := uc.DB.Model(&models.User{}).Select("id", "name", "email", "created_at", "updated_at")
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list users", err)
	}

	var users []models.User
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list users", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  users,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// CreateUser provisions an account on behalf of an administrator.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	actor := c.Locals("user").(*models.User)

	decision, err := uc.Engine.Decide(c.Context(), actor.ID, authz.ActionCreate, authz.ResourceUser, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var existing models.User
	if err := uc.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Email already registered", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
		IsActive:     true,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		uc.Logger.WithError(err).Error("failed to create user")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
	}

	roleName := req.Role
	if roleName == "" {
		roleName = "member"
	}
	var role models.Role
	if err := uc.DB.Where("name = ?", roleName).First(&role).Error; err == nil {
		uc.DB.Model(&user).Association("Roles").Append(&role)
	}

	uc.DB.Preload("Roles").First(&user, user.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(user))
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	actor := c.Locals("user").(*models.User)

	decision, err := uc.Engine.Decide(c.Context(), actor.ID, authz.ActionView, authz.ResourceUser, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	userID := utils.ParseUint(c.Params("id"))

	var user models.User
	if err := uc.DB.Preload("Roles").First(&user, userID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}
	return c.JSON(utils.SuccessResponse(user))
}

// DeleteUser removes an account. The engine enforces the self-deletion guard,
// the users.delete permission and the owned-teams/projects guards, in that
// order, so the most specific denial reaches the client.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	actor := c.Locals("user").(*models.User)
	targetID := utils.ParseUint(c.Params("id"))

	var target models.User
	if err := uc.DB.First(&target, targetID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	decision, err := uc.Engine.Decide(c.Context(), actor.ID, authz.ActionDelete, authz.ResourceUser, target.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	// Detach relationships before deleting the account
	tx := uc.DB.Begin()
	if err := tx.Model(&target).Association("Roles").Clear(); err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete user", err)
	}
	if err := tx.Model(&target).Association("MemberTeams").Clear(); err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete user", err)
	}
	if err := tx.Where("user_id = ?", target.ID).Delete(&models.TaskAssignment{}).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete user", err)
	}
	if err := tx.Where("user_id = ?", target.ID).Delete(&models.RefreshToken{}).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete user", err)
	}
	if err := tx.Delete(&target).Error; err != nil {
		tx.Rollback()
		uc.Logger.WithError(err).Error("failed to delete user")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete user", err)
	}
	if err := tx.Commit().Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete user", err)
	}

	uc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(target.ID))
	uc.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(actor.ID))

	return c.JSON(utils.MessageResponse("User deleted"))
}

func (uc *UserController) ListRoles(c *fiber.Ctx) error {
	actor := c.Locals("user").(*models.User)

	decision, err := uc.Engine.Decide(c.Context(), actor.ID, authz.ActionView, authz.ResourceRole, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var roles []models.Role
	if err := uc.DB.Preload("Permissions").Find(&roles).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list roles", err)
	}
	return c.JSON(utils.SuccessResponse(roles))
}

// AssignRole grants a role to a user. Granting an already-held role is a
// conflict, not a failure of the grant itself.
func (uc *UserController) AssignRole(c *fiber.Ctx) error {
	actor := c.Locals("user").(*models.User)

	decision, err := uc.Engine.Decide(c.Context(), actor.ID, authz.ActionUpdate, authz.ResourceRole, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req UserRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var user models.User
	if err := uc.DB.First(&user, req.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}
	var role models.Role
	if err := uc.DB.Where("name = ?", req.Role).First(&role).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Role not found", nil)
	}

	var held int64
	uc.DB.Table("user_roles").
		Where("user_id = ? AND role_id = ?", user.ID, role.ID).
		Count(&held)
	if held > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "User already has this role", nil)
	}

	if err := uc.DB.Model(&user).Association("Roles").Append(&role); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to assign role", err)
	}

	return c.JSON(utils.MessageResponse("Role assigned"))
}

func (uc *UserController) RemoveRole(c *fiber.Ctx) error {
	actor := c.Locals("user").(*models.User)

	decision, err := uc.Engine.Decide(c.Context(), actor.ID, authz.ActionUpdate, authz.ResourceRole, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req UserRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var user models.User
	if err := uc.DB.First(&user, req.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}
	var role models.Role
	if err := uc.DB.Where("name = ?", req.Role).First(&role).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Role not found", nil)
	}

	var held int64
	uc.DB.Table("user_roles").
		Where("user_id = ? AND role_id = ?", user.ID, role.ID).
		Count(&held)
	if held == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User does not have this role", nil)
	}

	if err := uc.DB.Model(&user).Association("Roles").Delete(&role); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove role", err)
	}

	return c.JSON(utils.MessageResponse("Role removed"))
}
