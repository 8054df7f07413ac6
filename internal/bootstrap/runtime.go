// Package bootstrap wires the runtime dependencies shared by the server and
// the operator commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
	"inkwell/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty database with generated demo content.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and applies the development
// bootstraps. The Redis client is nil when the server is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo content: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevAdmin makes sure the configured development admin exists and
// holds the admin role. It is a no-op outside development or when
// DEV_BOOTSTRAP_ADMIN is off.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevAdminEmail))
	if email == "" {
		email = "admin@inkwell.local"
	}
	if cfg.DevAdminPassword == "" {
		return fmt.Errorf("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	users := repository.NewUserRepository(db)
	admins := service.NewAdminService(users)

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing == nil {
		if _, err := admins.CreateAdmin(ctx, service.CreateAdminInput{
			Email:     email,
			Password:  cfg.DevAdminPassword,
			FirstName: "Dev",
			LastName:  "Admin",
		}); err != nil {
			return err
		}
	} else if existing.Role != models.RoleAdmin {
		if _, err := admins.SetRole(ctx, email, models.RoleAdmin); err != nil {
			return err
		}
	}

	observability.GlobalLogger().Info("development admin bootstrap ensured", slog.String("email", email))
	return nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var posts int64
	if err := db.WithContext(ctx).Model(&models.Post{}).Count(&posts).Error; err != nil {
		return err
	}
	if posts > 0 {
		return nil
	}
	opts := seed.DefaultOptions()
	opts.FastHash = true
	_, err := seed.Seed(ctx, db, opts)
	return err
}
