package service

import (
	"context"
	"strings"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn            func(context.Context, uint) (*models.User, error)
	getCredentialsByIDFn func(context.Context, uint) (*models.User, error)
	getByEmailFn         func(context.Context, string) (*models.User, error)
	createFn             func(context.Context, *models.User) error
	updateFieldsFn       func(context.Context, uint, map[string]any) error
	deleteFn             func(context.Context, uint) error
	listFn               func(context.Context, repository.UserFilter, models.PageRequest) ([]models.User, int64, error)
	listByRoleFn         func(context.Context, string) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetCredentialsByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getCredentialsByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, filter repository.UserFilter, page models.PageRequest) ([]models.User, int64, error) {
	return s.listFn(ctx, filter, page)
}
func (s *userRepoStub) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	return s.listByRoleFn(ctx, role)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsActive: true, Role: models.RoleUser}, nil
		},
		getCredentialsByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsActive: true}, nil
		},
		getByEmailFn:   func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:       func(_ context.Context, _ *models.User) error { return nil },
		updateFieldsFn: func(_ context.Context, _ uint, _ map[string]any) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		listFn: func(_ context.Context, _ repository.UserFilter, _ models.PageRequest) ([]models.User, int64, error) {
			return nil, 0, nil
		},
		listByRoleFn: func(_ context.Context, _ string) ([]models.User, error) { return nil, nil },
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestUserService_UpdateProfile_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input UpdateProfileInput
	}{
		{name: "blank first name", input: UpdateProfileInput{UserID: 1, FirstName: strPtr("  ")}},
		{name: "last name too long", input: UpdateProfileInput{UserID: 1, LastName: strPtr(strings.Repeat("x", 51))}},
		{name: "avatar too long", input: UpdateProfileInput{UserID: 1, Avatar: strPtr("https://" + strings.Repeat("a", 500))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			repo := noopUserRepo()
			repo.updateFieldsFn = func(_ context.Context, _ uint, _ map[string]any) error {
				t.Fatal("invalid input must not reach the repository")
				return nil
			}
			_, err := NewUserService(repo).UpdateProfile(context.Background(), tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_UpdateProfile_PartialUpdate(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	var got map[string]any
	repo.updateFieldsFn = func(_ context.Context, id uint, fields map[string]any) error {
		assert.Equal(t, uint(1), id)
		got = fields
		return nil
	}
	_, err := NewUserService(repo).UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, FirstName: strPtr(" Ada ")})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"first_name": "Ada"}, got)
}

func TestUserService_ChangePassword(t *testing.T) {
	t.Parallel()

	const current = "Secret123"
	newSvc := func(updated *string) *UserService {
		repo := noopUserRepo()
		repo.getCredentialsByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Password: hashPassword(t, current)}, nil
		}
		repo.updateFieldsFn = func(_ context.Context, _ uint, fields map[string]any) error {
			*updated = fields["password"].(string)
			return nil
		}
		return NewUserService(repo)
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		var hash string
		err := newSvc(&hash).ChangePassword(context.Background(), ChangePasswordInput{UserID: 1, CurrentPassword: current, NewPassword: "Better456"})
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Better456")))
	})

	t.Run("wrong current password", func(t *testing.T) {
		t.Parallel()
		var hash string
		err := newSvc(&hash).ChangePassword(context.Background(), ChangePasswordInput{UserID: 1, CurrentPassword: "Wrong1234", NewPassword: "Better456"})
		assertValidationError(t, err)
		assert.Empty(t, hash)
	})

	t.Run("weak new password", func(t *testing.T) {
		t.Parallel()
		var hash string
		err := newSvc(&hash).ChangePassword(context.Background(), ChangePasswordInput{UserID: 1, CurrentPassword: current, NewPassword: "short"})
		assertValidationError(t, err)
	})

	t.Run("same password", func(t *testing.T) {
		t.Parallel()
		var hash string
		err := newSvc(&hash).ChangePassword(context.Background(), ChangePasswordInput{UserID: 1, CurrentPassword: current, NewPassword: current})
		assertValidationError(t, err)
	})
}
