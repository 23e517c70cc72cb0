package models

import "gorm.io/gorm"

// seedPermission describes one catalog entry created at bootstrap
type seedPermission struct {
	Name        string
	DisplayName string
	Resource    string
	Action      string
}

func catalogPermissions() []seedPermission {
	resources := map[string]string{
		"users":    "Users",
		"teams":    "Teams",
		"projects": "Projects",
		"tasks":    "Tasks",
		"roles":    "Roles",
	}
	actions := map[string]string{
		"view":   "View",
		"create": "Create",
		"update": "Update",
		"delete": "Delete",
	}

	var perms []seedPermission
	for resource, rlabel := range resources {
		for action, alabel := range actions {
			perms = append(perms, seedPermission{
				Name:        resource + "." + action,
				DisplayName: alabel + " " + rlabel,
				Resource:    resource,
				Action:      action,
			})
		}
	}

	// Resource-specific extras
	perms = append(perms,
		seedPermission{Name: "teams.manage_projects", DisplayName: "Manage Team Projects", Resource: "teams", Action: "manage_projects"},
		seedPermission{Name: "teams.manage_members", DisplayName: "Manage Team Members", Resource: "teams", Action: "manage_members"},
		seedPermission{Name: "tasks.assign_users", DisplayName: "Assign Users to Tasks", Resource: "tasks", Action: "assign_users"},
	)
	return perms
}

// SeedRolesAndPermissions creates the permission catalog and the three baseline
// roles (admin, manager, member). It is idempotent and safe to run at every boot.
func SeedRolesAndPermissions(db *gorm.DB) error {
	for _, p := range catalogPermissions() {
		perm := Permission{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Description: "Can " + p.Action + " " + p.Resource,
			Resource:    p.Resource,
			Action:      p.Action,
		}
		if err := db.Where("name = ?", p.Name).FirstOrCreate(&perm).Error; err != nil {
			return err
		}
	}

	roles := []Role{
		{Name: "admin", DisplayName: "Administrator", Description: "Full access to the system", IsSystem: true},
		{Name: "manager", DisplayName: "Manager", Description: "Can manage teams, projects and tasks"},
		{Name: "member", DisplayName: "Member", Description: "Basic read access"},
	}
	for i := range roles {
		if err := db.Where("name = ?", roles[i].Name).FirstOrCreate(&roles[i]).Error; err != nil {
			return err
		}
	}

	// admin gets every permission
	var all []Permission
	if err := db.Find(&all).Error; err != nil {
		return err
	}
	if err := db.Model(&roles[0]).Association("Permissions").Replace(all); err != nil {
		return err
	}

	// manager: view/create/update on teams, projects and tasks
	var managerPerms []Permission
	if err := db.Where("resource IN ? AND action IN ?",
		[]string{"teams", "projects", "tasks"},
		[]string{"view", "create", "update"}).Find(&managerPerms).Error; err != nil {
		return err
	}
	if err := db.Model(&roles[1]).Association("Permissions").Replace(managerPerms); err != nil {
		return err
	}

	// member: view-only on teams, projects and tasks
	var memberPerms []Permission
	if err := db.Where("resource IN ? AND action = ?",
		[]string{"teams", "projects", "tasks"}, "view").Find(&memberPerms).Error; err != nil {
		return err
	}
	return db.Model(&roles[2]).Association("Permissions").Replace(memberPerms)
}
