package models

import "gorm.io/gorm"

// Project statuses
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// ProjectStatuses lists every valid project status
var ProjectStatuses = []string{
	ProjectStatusPlanning,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// Project has exactly one owner and belongs to zero or more teams
type Project struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	Status      string `gorm:"not null;default:'planning'" json:"status"`

	// Relations
	Owner User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Teams []Team `gorm:"many2many:project_teams" json:"teams,omitempty"`
	Tasks []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

// IsValidProjectStatus reports whether s is a known project status
func IsValidProjectStatus(s string) bool {
	for _, status := range ProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}
