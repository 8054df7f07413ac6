package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AdminService holds operator actions on user accounts. It backs both the
// admin HTTP routes and the admin CLI.
type AdminService struct {
	userRepo repository.UserRepository
}

type CreateAdminInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,password"`
	FirstName string `json:"firstName" validate:"notblank,max=50"`
	LastName  string `json:"lastName" validate:"notblank,max=50"`
}

func NewAdminService(userRepo repository.UserRepository) *AdminService {
	return &AdminService{userRepo: userRepo}
}

func (s *AdminService) CreateAdmin(ctx context.Context, in CreateAdminInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Email:           in.Email,
		Password:        string(hash),
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Role:            models.RoleAdmin,
		IsActive:        true,
		IsEmailVerified: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "admin", "create_admin", map[string]any{"user_id": user.ID})
	return user, nil
}

func (s *AdminService) ListUsers(ctx context.Context, filter repository.UserFilter, page models.PageRequest) ([]models.User, models.Pagination, error) {
	users, total, err := s.userRepo.List(ctx, filter, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return users, models.NewPagination(page.Page, page.Limit, total), nil
}

// SetUserStatus activates or deactivates an account. Admins cannot
// deactivate themselves.
func (s *AdminService) SetUserStatus(ctx context.Context, actorID, targetID uint, active bool) (*models.User, error) {
	if actorID == targetID && !active {
		return nil, models.NewValidationError("You cannot deactivate your own account")
	}
	if err := s.userRepo.UpdateFields(ctx, targetID, map[string]any{"is_active": active}); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "admin", "set_user_status", map[string]any{"user_id": targetID, "is_active": active})
	return s.userRepo.GetByID(ctx, targetID)
}

func (s *AdminService) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return models.NewValidationError("You cannot delete your own account")
	}
	return s.userRepo.Delete(ctx, targetID)
}

// SetRole changes the role of the account registered under email.
func (s *AdminService) SetRole(ctx context.Context, email, role string) (*models.User, error) {
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, models.NewValidationError("Invalid role")
	}
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]any{"role": role}); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

func (s *AdminService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListByRole(ctx, models.RoleAdmin)
}
