package service

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminService_CreateAdmin(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	var created *models.User
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 7
		created = u
		return nil
	}
	svc := NewAdminService(repo)

	user, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email: "  Ops@Example.COM ", Password: "Passw0rd!", FirstName: " Op ", LastName: "Erator",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, "ops@example.com", created.Email)
	assert.Equal(t, "Op", created.FirstName)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.True(t, created.IsActive)
	assert.True(t, created.IsEmailVerified)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("Passw0rd!")))
}

func TestAdminService_CreateAdmin_Rejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		existing *models.User
		in       CreateAdminInput
		code     string
	}{
		{
			name: "weak password",
			in:   CreateAdminInput{Email: "a@example.com", Password: "weak", FirstName: "A", LastName: "B"},
			code: models.CodeValidation,
		},
		{
			name: "blank name",
			in:   CreateAdminInput{Email: "a@example.com", Password: "Passw0rd!", FirstName: "  ", LastName: "B"},
			code: models.CodeValidation,
		},
		{
			name:     "duplicate email",
			existing: &models.User{ID: 3, Email: "a@example.com"},
			in:       CreateAdminInput{Email: "a@example.com", Password: "Passw0rd!", FirstName: "A", LastName: "B"},
			code:     models.CodeConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopUserRepo()
			repo.getByEmailFn = func(_ context.Context, _ string) (*models.User, error) { return tt.existing, nil }
			repo.createFn = func(_ context.Context, _ *models.User) error {
				t.Fatal("create must not be called")
				return nil
			}

			_, err := NewAdminService(repo).CreateAdmin(context.Background(), tt.in)
			appErr, ok := models.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestAdminService_SelfProtection(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.updateFieldsFn = func(_ context.Context, _ uint, _ map[string]any) error {
		t.Fatal("update must not be called")
		return nil
	}
	repo.deleteFn = func(_ context.Context, _ uint) error {
		t.Fatal("delete must not be called")
		return nil
	}
	svc := NewAdminService(repo)

	_, err := svc.SetUserStatus(context.Background(), 5, 5, false)
	assert.Error(t, err)
	assert.Error(t, svc.DeleteUser(context.Background(), 5, 5))
}

func TestAdminService_SetUserStatus(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	var fields map[string]any
	repo.updateFieldsFn = func(_ context.Context, id uint, f map[string]any) error {
		assert.Equal(t, uint(9), id)
		fields = f
		return nil
	}
	user, err := NewAdminService(repo).SetUserStatus(context.Background(), 1, 9, false)
	require.NoError(t, err)
	assert.Equal(t, uint(9), user.ID)
	assert.Equal(t, map[string]any{"is_active": false}, fields)

	require.NoError(t, NewAdminService(noopUserRepo()).DeleteUser(context.Background(), 1, 9))
}

func TestAdminService_SetRole(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == "writer@example.com" {
			return &models.User{ID: 4, Email: email, Role: models.RoleUser}, nil
		}
		return nil, nil
	}
	var fields map[string]any
	repo.updateFieldsFn = func(_ context.Context, _ uint, f map[string]any) error {
		fields = f
		return nil
	}
	svc := NewAdminService(repo)

	user, err := svc.SetRole(context.Background(), " Writer@Example.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, map[string]any{"role": models.RoleAdmin}, fields)

	_, err = svc.SetRole(context.Background(), "nobody@example.com", models.RoleAdmin)
	assert.True(t, models.IsNotFound(err))

	_, err = svc.SetRole(context.Background(), "writer@example.com", "owner")
	assert.Error(t, err)
}
