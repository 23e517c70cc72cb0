package models

import "gorm.io/gorm"

// Team groups projects under a single owner
type Team struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Owner    User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Projects []Project `gorm:"many2many:project_teams" json:"projects,omitempty"`
	Members  []User    `gorm:"many2many:team_members" json:"members,omitempty"`
}
