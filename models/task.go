package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
	TaskStatusCancelled  = "cancelled"
)

// Task priorities
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// TaskStatuses lists every valid task status
var TaskStatuses = []string{
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusDone,
	TaskStatusCancelled,
}

// TaskPriorities lists every valid task priority
var TaskPriorities = []string{
	TaskPriorityLow,
	TaskPriorityMedium,
	TaskPriorityHigh,
	TaskPriorityUrgent,
}

// Task belongs to exactly one project and has exactly one creator
type Task struct {
	gorm.Model
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	ProjectID   uint       `gorm:"not null;index" json:"project_id"`
	CreatedBy   uint       `gorm:"not null;index" json:"created_by"`
	Status      string     `gorm:"not null;default:'todo'" json:"status"`
	Priority    string     `gorm:"not null;default:'medium'" json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	// Relations
	Project     Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Creator     User             `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
}

// TaskAssignment links a user to a task with a role label such as "assignee"
type TaskAssignment struct {
	gorm.Model
	TaskID uint   `gorm:"not null;index;uniqueIndex:idx_task_user" json:"task_id"`
	UserID uint   `gorm:"not null;index;uniqueIndex:idx_task_user" json:"user_id"`
	Role   string `gorm:"default:'assignee'" json:"role"`

	Task Task `json:"-"`
	User User `json:"-"`
}

// IsValidTaskStatus reports whether s is a known task status
func IsValidTaskStatus(s string) bool {
	for _, status := range TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidTaskPriority reports whether p is a known task priority
func IsValidTaskPriority(p string) bool {
	for _, priority := range TaskPriorities {
		if p == priority {
			return true
		}
	}
	return false
}
