package main

import (
	"bytes"
	"errors"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

func run(t *testing.T, db *gorm.DB, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func() (*gorm.DB, error) { return db, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAdminCLI_CreatePromoteDemoteList(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.User{
		Email: "writer@example.com", Password: "hash", FirstName: "Wri", LastName: "Ter", Role: models.RoleUser, IsActive: true,
	}).Error)

	out, err := run(t, db, "create", "--email", "Ops@Example.com", "--password", "Passw0rd!", "--first", "Op", "--last", "Erator")
	require.NoError(t, err)
	assert.Contains(t, out, "Created admin ops@example.com")

	out, err = run(t, db, "promote", "writer@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "writer@example.com")
	assert.Contains(t, out, "is now admin")

	out, err = run(t, db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ops@example.com")
	assert.Contains(t, out, "writer@example.com")

	_, err = run(t, db, "demote", "writer@example.com")
	require.NoError(t, err)

	var u models.User
	require.NoError(t, db.Where("email = ?", "writer@example.com").First(&u).Error)
	assert.Equal(t, models.RoleUser, u.Role)
}

func TestAdminCLI_Errors(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"promote unknown email", []string{"promote", "nobody@example.com"}},
		{"promote without email", []string{"promote"}},
		{"create missing flags", []string{"create", "--email", "a@example.com"}},
		{"create weak password", []string{"create", "--email", "a@example.com", "--password", "weak", "--first", "A", "--last", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, db, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestAdminCLI_ListEmpty(t *testing.T) {
	out, err := run(t, setupTestDB(t), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No admins found")
}

func TestAdminCLI_Migrate(t *testing.T) {
	out, err := run(t, setupTestDB(t), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migration completed")
}

func TestAdminCLI_ConnectFailure(t *testing.T) {
	root := newRootCmd(func() (*gorm.DB, error) { return nil, errors.New("refused") })
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"list"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestAdminCLI_RoleChangeEvictsCachedUser(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = cache.Close()
		mr.Close()
	})

	db := setupTestDB(t)
	u := &models.User{Email: "ops@example.com", Password: "hash", FirstName: "Op", LastName: "Erator", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	require.NoError(t, mr.Set(cache.UserKey(u.ID), `{"role":"admin"}`))

	_, err = run(t, db, "demote", "ops@example.com")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey(u.ID)), "demotion must evict the cached user")

	require.NoError(t, mr.Set(cache.UserKey(u.ID), `{"role":"user"}`))
	_, err = run(t, db, "promote", "ops@example.com")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))
}
