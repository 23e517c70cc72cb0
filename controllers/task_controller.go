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

type TaskController struct {
	DB     *gorm.DB
	Engine *authz.Engine
	Cache  *cache.Cache
	Logger *logrus.Logger
}

func NewTaskController(db *gorm.DB, engine *authz.Engine, c *cache.Cache, logger *logrus.Logger) *TaskController {
	return &TaskController{DB: db, Engine: engine, Cache: c, Logger: logger}
}

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"max=2000"`
	ProjectID   uint       `json:"project_id" validate:"required"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in_progress review done cancelled"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo in_progress review done cancelled"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date"`
}

type TaskAssignRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,max=50"`
}

// ListTasks returns tasks the user created or is assigned to, optionally
// filtered by status.
func (tk *TaskController) ListTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 15)
	if limit < 1 || limit > 100 {
		limit = 15
	}

	base := tk.DB.Model(&models.Task{}).
		Distinct("tasks.*").
		Joins("LEFT JOIN task_assignments ON task_assignments.task_id = tasks.id AND task_assignments.deleted_at IS NULL").
		Where("tasks.created_by = ? OR task_assignments.user_id = ?", user.ID, user.ID)

	if status := c.Query("status"); status != "" {
		if !models.IsValidTaskStatus(status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid task status", nil)
		}
		base = base.Where("tasks.status = ?", status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", err)
	}

	var tasks []models.Task
	if err := base.Preload("Project").Preload("Creator").
		Order("tasks.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&tasks).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  tasks,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func (tk *TaskController) CreateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var project models.Project
	if err := tk.DB.First(&project, req.ProjectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	// Creation requires the tasks.create permission plus view access to the
	// target project; the engine checks both.
	decision, err := tk.Engine.Decide(c.Context(), user.ID, authz.ActionCreate, authz.ResourceTask, project.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   project.ID,
		CreatedBy:   user.ID,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
	}
	if err := tk.DB.Create(&task).Error; err != nil {
		tk.Logger.WithError(err).Error("failed to create task")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create task", err)
	}

	tk.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(user.ID))
	tk.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(project.ID))

	tk.DB.Preload("Project").Preload("Creator").First(&task, task.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(task))
}

func (tk *TaskController) GetTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	if err := tk.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	decision, err := tk.Engine.Decide(c.Context(), user.ID, authz.ActionView, authz.ResourceTask, task.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	tk.DB.Preload("Project").Preload("Creator").Preload("Assignments.User").First(&task, task.ID)
	return c.JSON(utils.SuccessResponse(task))
}

func (tk *TaskController) UpdateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	if err := tk.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	decision, err := tk.Engine.Decide(c.Context(), user.ID, authz.ActionUpdate, authz.ResourceTask, task.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if len(updates) > 0 {
		if err := tk.DB.Model(&task).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update task", err)
		}
	}

	tk.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(task.CreatedBy))
	tk.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(task.ProjectID))

	tk.DB.Preload("Project").Preload("Creator").Preload("Assignments.User").First(&task, task.ID)
	return c.JSON(utils.SuccessResponse(task))
}

func (tk *TaskController) DeleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	if err := tk.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	decision, err := tk.Engine.Decide(c.Context(), user.ID, authz.ActionDelete, authz.ResourceTask, task.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	tx := tk.DB.Begin()
	if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignment{}).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", err)
	}
	if err := tx.Delete(&task).Error; err != nil {
		tx.Rollback()
		tk.Logger.WithError(err).Error("failed to delete task")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", err)
	}
	if err := tx.Commit().Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", err)
	}

	tk.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(task.CreatedBy))
	tk.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(task.ProjectID))

	return c.JSON(utils.MessageResponse("Task deleted"))
}

func (tk *TaskController) AssignUser(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	if err := tk.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	decision, err := tk.Engine.Decide(c.Context(), user.ID, authz.ActionAssignUsers, authz.ResourceTask, task.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req TaskAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var assignee models.User
	if err := tk.DB.First(&assignee, req.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	var existing int64
	tk.DB.Model(&models.TaskAssignment{}).
		Where("task_id = ? AND user_id = ?", task.ID, assignee.ID).
		Count(&existing)
	if existing > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "User is already assigned to this task", nil)
	}

	role := req.Role
	if role == "" {
		role = "assignee"
	}
	assignment := models.TaskAssignment{TaskID: task.ID, UserID: assignee.ID, Role: role}
	if err := tk.DB.Create(&assignment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to assign user", err)
	}

	tk.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(assignee.ID))
	tk.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(task.ProjectID))

	return c.JSON(utils.MessageResponse("User assigned to task"))
}

func (tk *TaskController) UnassignUser(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	if err := tk.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	decision, err := tk.Engine.Decide(c.Context(), user.ID, authz.ActionAssignUsers, authz.ResourceTask, task.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", err)
	}
	if !decision.Allowed {
		return deny(c, decision)
	}

	var req TaskAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var assignment models.TaskAssignment
	if err := tk.DB.Where("task_id = ? AND user_id = ?", task.ID, req.UserID).
		First(&assignment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User is not assigned to this task", nil)
	}

	if err := tk.DB.Delete(&assignment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to unassign user", err)
	}

	tk.Cache.ForgetPrefix(c.Context(), cache.UserPrefix(req.UserID))
	tk.Cache.ForgetPrefix(c.Context(), cache.ProjectPrefix(task.ProjectID))

	return c.JSON(utils.MessageResponse("User unassigned from task"))
}
