package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func seedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &Role{}, &Permission{}))
	return db
}

func TestSeedRolesAndPermissions(t *testing.T) {
	t.Parallel()
	db := seedTestDB(t)
	require.NoError(t, SeedRolesAndPermissions(db))

	var permCount int64
	require.NoError(t, db.Model(&Permission{}).Count(&permCount).Error)
	assert.EqualValues(t, len(catalogPermissions()), permCount)

	var admin, manager, member Role
	require.NoError(t, db.Preload("Permissions").Where("name = ?", "admin").First(&admin).Error)
	require.NoError(t, db.Preload("Permissions").Where("name = ?", "manager").First(&manager).Error)
	require.NoError(t, db.Preload("Permissions").Where("name = ?", "member").First(&member).Error)

	assert.Len(t, admin.Permissions, int(permCount), "admin holds the full catalog")
	assert.True(t, admin.IsSystem)

	names := func(r Role) []string {
		out := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			out = append(out, p.Name)
		}
		return out
	}
	assert.Contains(t, names(manager), "projects.create")
	assert.NotContains(t, names(manager), "users.delete")
	assert.Contains(t, names(member), "tasks.view")
	assert.NotContains(t, names(member), "tasks.create")
}

func TestSeedIsIdempotent(t *testing.T) {
	t.Parallel()
	db := seedTestDB(t)
	require.NoError(t, SeedRolesAndPermissions(db))
	require.NoError(t, SeedRolesAndPermissions(db))

	var permCount, roleCount int64
	require.NoError(t, db.Model(&Permission{}).Count(&permCount).Error)
	require.NoError(t, db.Model(&Role{}).Count(&roleCount).Error)
	assert.EqualValues(t, len(catalogPermissions()), permCount)
	assert.EqualValues(t, 3, roleCount)
}
