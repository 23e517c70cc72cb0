package models

import "gorm.io/gorm"

// Role is a named collection of permissions assigned to users
type Role struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"` // system roles are not user-deletable

	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_roles" json:"-"`
}

// Permission is an atomic capability named "resource.action", e.g. "teams.delete".
// Names are globally unique and case-sensitive.
type Permission struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Resource    string `gorm:"not null;index" json:"resource"`
	Action      string `gorm:"not null" json:"action"`

	Roles []Role `gorm:"many2many:role_permissions" json:"-"`
}
