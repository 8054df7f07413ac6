package service

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// RevocationStore blacklists token ids until they would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// redisRevocations stores revocations in the shared Redis cache.
type redisRevocations struct{}

func (redisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return cache.RevokeToken(ctx, jti, ttl)
}

func (redisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return cache.IsTokenRevoked(ctx, jti)
}

type AuthService struct {
	users   repository.UserRepository
	tokens  *TokenService
	revoked RevocationStore
	now     func() time.Time
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,password"`
	FirstName string `json:"firstName" validate:"notblank,max=50"`
	LastName  string `json:"lastName" validate:"notblank,max=50"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	User *models.User `json:"user"`
	TokenPair
}

// NewAuthService wires the auth flows. A nil store falls back to Redis.
func NewAuthService(users repository.UserRepository, tokens *TokenService, store RevocationStore) *AuthService {
	if store == nil {
		store = redisRevocations{}
	}
	return &AuthService{users: users, tokens: tokens, revoked: store, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
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
		Email:     in.Email,
		Password:  string(hash),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleUser,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.LogServiceCall(ctx, "auth", "register", map[string]any{"user_id": user.ID})
	return s.result(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewForbiddenError("Account is deactivated")
	}

	now := s.now().UTC()
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{"last_login_at": now}); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	observability.LogServiceCall(ctx, "auth", "login", map[string]any{"user_id": user.ID})
	return s.result(user)
}

// Refresh exchanges a refresh token for a new pair. The used refresh token
// is revoked so it cannot be exchanged twice.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, models.NewValidationError("refreshToken is required")
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.revoked.Revoke(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.result(user)
}

// Authenticate resolves the user behind an access token. It is the single
// place request identity is derived from.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, *Claims, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.ID != "" {
		if err := s.ensureNotRevoked(ctx, claims.ID); err != nil {
			return nil, nil, err
		}
	}
	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// Logout revokes the access token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return models.NewUnauthorizedError("Invalid token")
	}
	if err := s.revoked.Revoke(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return models.NewInternalError(err)
	}
	observability.LogServiceCall(ctx, "auth", "logout", map[string]any{"user_id": claims.UserID})
	return nil
}

// ensureNotRevoked fails closed: a token whose revocation state cannot be
// read is not accepted.
func (s *AuthService) ensureNotRevoked(ctx context.Context, jti string) error {
	revoked, err := s.revoked.IsRevoked(ctx, jti)
	if err != nil {
		return models.NewInternalError(err)
	}
	if revoked {
		return models.NewUnauthorizedError("Token has been revoked")
	}
	return nil
}

func (s *AuthService) activeUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("User not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewForbiddenError("Account is deactivated")
	}
	return user, nil
}

func (s *AuthService) result(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{User: user, TokenPair: *pair}, nil
}
