package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries optional profile changes; nil leaves a field as is.
type UpdateProfileInput struct {
	UserID    uint
	FirstName *string
	LastName  *string
	Avatar    *string
}

type ChangePasswordInput struct {
	UserID          uint
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]any{}
	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if err := validation.ValidateName("firstName", name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["first_name"] = name
	}
	if in.LastName != nil {
		name := strings.TrimSpace(*in.LastName)
		if err := validation.ValidateName("lastName", name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["last_name"] = name
	}
	if in.Avatar != nil {
		const maxAvatarLen = 500
		avatar := strings.TrimSpace(*in.Avatar)
		if len(avatar) > maxAvatarLen {
			return nil, models.NewValidationError("Avatar URL too long (max 500 characters)")
		}
		fields["avatar"] = avatar
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, in.UserID, fields); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByID(ctx, in.UserID)
}

func (s *UserService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	user, err := s.userRepo.GetCredentialsByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)) != nil {
		return models.NewValidationError("Current password is incorrect")
	}
	if in.CurrentPassword == in.NewPassword {
		return models.NewValidationError("New password must differ from the current password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.userRepo.UpdateFields(ctx, in.UserID, map[string]any{"password": string(hash)})
}
