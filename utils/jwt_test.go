package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhive/config"
	"taskhive/models"
)

// jwtTestDB points the package-level connection at an in-memory database.
// These tests mutate globals, so they do not run in parallel.
func jwtTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	prevDB, prevSecret := config.DB, config.AppConfig.JWTSecret
	config.DB = db
	config.AppConfig.JWTSecret = "test-secret"
	t.Cleanup(func() {
		config.DB = prevDB
		config.AppConfig.JWTSecret = prevSecret
	})
}

func TestGenerateJWTTokenPersistsRefreshToken(t *testing.T) {
	jwtTestDB(t)

	user := models.User{Name: "U", Email: "u@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, config.DB.Create(&user).Error)

	access, refresh, err := GenerateJWTToken(&user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := ParseJWTToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	var record models.RefreshToken
	require.NoError(t, config.DB.Where("token = ?", refresh).First(&record).Error)
	assert.Equal(t, user.ID, record.UserID)
	assert.False(t, record.Revoked)
}

func TestRefreshTokensRotates(t *testing.T) {
	jwtTestDB(t)

	user := models.User{Name: "U", Email: "u@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, config.DB.Create(&user).Error)

	_, refresh, err := GenerateJWTToken(&user)
	require.NoError(t, err)

	_, rotated, err := RefreshTokens(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, rotated)

	// The presented token is revoked by rotation and cannot be replayed.
	_, _, err = RefreshTokens(refresh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoked")

	// The rotated token is live.
	_, _, err = RefreshTokens(rotated)
	assert.NoError(t, err)
}

func TestRevokeRefreshToken(t *testing.T) {
	jwtTestDB(t)

	user := models.User{Name: "U", Email: "u@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, config.DB.Create(&user).Error)

	_, refresh, err := GenerateJWTToken(&user)
	require.NoError(t, err)

	require.NoError(t, RevokeRefreshToken(refresh))
	_, _, err = RefreshTokens(refresh)
	require.Error(t, err)

	// Revoking an unknown token is a no-op.
	assert.NoError(t, RevokeRefreshToken("never-issued"))
}

func TestRefreshTokensUnknownToken(t *testing.T) {
	jwtTestDB(t)

	user := models.User{Name: "U", Email: "u@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, config.DB.Create(&user).Error)

	// A well-formed token that was never recorded server-side is rejected.
	_, refresh, err := GenerateJWTToken(&user)
	require.NoError(t, err)
	require.NoError(t, config.DB.Unscoped().Where("token = ?", refresh).Delete(&models.RefreshToken{}).Error)

	_, _, err = RefreshTokens(refresh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}
