package bootstrap

import (
	"context"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func devConfig() *config.Config {
	return &config.Config{
		Env:               "development",
		DevBootstrapAdmin: true,
		DevAdminEmail:     "  Root@Inkwell.Local ",
		DevAdminPassword:  "Sup3rSecret",
	}
}

func TestEnsureDevAdmin_CreatesAdminOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureDevAdmin(ctx, devConfig(), db))
	require.NoError(t, EnsureDevAdmin(ctx, devConfig(), db))

	var admins []models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "root@inkwell.local", admins[0].Email)
	assert.True(t, admins[0].IsActive)
}

func TestEnsureDevAdmin_PromotesExistingUser(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.User{
		Email: "root@inkwell.local", Password: "hash", FirstName: "Ro", LastName: "Ot", Role: models.RoleUser,
	}).Error)

	require.NoError(t, EnsureDevAdmin(context.Background(), devConfig(), db))

	var u models.User
	require.NoError(t, db.Where("email = ?", "root@inkwell.local").First(&u).Error)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "hash", u.Password)
}

func TestEnsureDevAdmin_Guards(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"production is skipped", func(c *config.Config) { c.Env = "production" }, false},
		{"flag off is skipped", func(c *config.Config) { c.DevBootstrapAdmin = false }, false},
		{"missing password", func(c *config.Config) { c.DevAdminPassword = "" }, true},
		{"weak password", func(c *config.Config) { c.DevAdminPassword = "short" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			cfg := devConfig()
			tt.mutate(cfg)

			err := EnsureDevAdmin(context.Background(), cfg, db)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			var count int64
			require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestSeedIfEmpty_SkipsPopulatedDatabase(t *testing.T) {
	db := setupTestDB(t)
	author := &models.User{Email: "a@example.com", Password: "hash", FirstName: "A", LastName: "B"}
	require.NoError(t, db.Create(author).Error)
	require.NoError(t, db.Omit("Author").Create(&models.Post{
		Title: "Existing", Content: "body", AuthorID: author.ID, Category: "other",
	}).Error)

	require.NoError(t, seedIfEmpty(context.Background(), db))

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}
