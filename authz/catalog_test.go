package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog []string

func (s staticCatalog) PermissionNames(context.Context) ([]string, error) {
	return s, nil
}

func TestAllPermissionsNoDuplicates(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for _, name := range AllPermissions() {
		assert.False(t, seen[name], "duplicate permission %q", name)
		seen[name] = true
	}
}

func TestValidateCatalogComplete(t *testing.T) {
	t.Parallel()
	err := ValidateCatalog(context.Background(), staticCatalog(AllPermissions()))
	assert.NoError(t, err)

	// Extra names in the source are tolerated; only gaps are errors.
	extended := append(AllPermissions(), "reports.view")
	err = ValidateCatalog(context.Background(), staticCatalog(extended))
	assert.NoError(t, err)
}

func TestValidateCatalogMissing(t *testing.T) {
	t.Parallel()
	var partial staticCatalog
	for _, name := range AllPermissions() {
		if name == PermTasksAssignUsers || name == PermTeamsManageMembers {
			continue
		}
		partial = append(partial, name)
	}

	err := ValidateCatalog(context.Background(), partial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), PermTasksAssignUsers)
	assert.Contains(t, err.Error(), PermTeamsManageMembers)
}
