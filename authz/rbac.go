package authz

import "context"

// rbacResolver answers "does this user hold this permission through any of
// their roles". It is a plain set-intersection test: roles do not inherit from
// each other and permission names are not hierarchical.
type rbacResolver struct {
	store Store
}

// hasPermission returns true iff at least one of the user's roles carries the
// named permission. Unknown users and unknown permission names yield false.
func (r rbacResolver) hasPermission(ctx context.Context, userID uint, permission string) (bool, error) {
	roleIDs, err := r.store.RolesForUser(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, roleID := range roleIDs {
		perms, err := r.store.PermissionsForRole(ctx, roleID)
		if err != nil {
			return false, err
		}
		for _, name := range perms {
			if name == permission {
				return true, nil
			}
		}
	}
	return false, nil
}
