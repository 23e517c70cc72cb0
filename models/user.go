package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Profile information
	Name      string  `gorm:"not null" json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Roles         []Role    `gorm:"many2many:user_roles" json:"roles,omitempty"`
	OwnedTeams    []Team    `gorm:"foreignKey:OwnerID" json:"owned_teams,omitempty"`
	OwnedProjects []Project `gorm:"foreignKey:OwnerID" json:"owned_projects,omitempty"`
	CreatedTasks  []Task    `gorm:"foreignKey:CreatedBy" json:"created_tasks,omitempty"`
	MemberTeams   []Team    `gorm:"many2many:team_members" json:"member_teams,omitempty"`

	// Task assignments carry a role label, so the join table is modelled explicitly
	Assignments []TaskAssignment `gorm:"foreignKey:UserID" json:"assignments,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked server-side
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`

	User User `json:"-"`
}
