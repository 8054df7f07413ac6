// Package server contains the HTTP handlers, auth middleware and route table of the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	flags          *featureflags.Manager

	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	suggestionRepo repository.SuggestionRepository

	authService       *service.AuthService
	userService       *service.UserService
	adminService      *service.AdminService
	postService       *service.PostService
	commentService    *service.CommentService
	suggestionService *service.SuggestionService
}

// NewServer connects to the database and Redis and builds a server on them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis. A nil
// redis client disables caching, token revocation and per-route limits.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	var images storage.ImageUploader
	if cfg.CloudinaryConfigured() {
		uploader, err := storage.NewCloudinaryUploader(cfg)
		if err != nil {
			return nil, fmt.Errorf("image host: %w", err)
		}
		images = uploader
	}
	return newServer(cfg, db, redisClient, images), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images storage.ImageUploader) *Server {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		suggestionRepo: repository.NewSuggestionRepository(db),
	}

	rawFlags := cfg.FeatureFlags
	if strings.TrimSpace(rawFlags) == "" {
		rawFlags = featureflags.Defaults
	}
	s.flags = featureflags.NewManager(rawFlags)

	tokens := service.NewTokenService(
		cfg.JWTSecret,
		cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLHours)*time.Hour,
	)
	s.authService = service.NewAuthService(s.userRepo, tokens, nil)
	s.userService = service.NewUserService(s.userRepo)
	s.adminService = service.NewAdminService(s.userRepo)
	s.postService = service.NewPostService(s.postRepo, images)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.suggestionService = service.NewSuggestionService(s.suggestionRepo, s.userRepo)
	return s
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Inkwell API",
		BodyLimit:    int(s.config.ImageMaxUploadBytes()) + 1<<20,
		ErrorHandler: errorHandler,
	})
	s.promMiddleware = middleware.InitMetrics(app, "inkwell-api")
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler turns errors that escape a handler into the standard body.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, errors.New(fe.Message))
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return respondError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	app.Use(middleware.MetricsMiddleware(s.promMiddleware))

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	if !s.config.IsProduction() {
		app.Use(models.ExposeErrorDetails())
	}

	// CORS runs before the limiter so browser clients still receive CORS
	// headers on 429 responses.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/profile", s.AuthRequired(), s.GetProfile)
	auth.Put("/profile", s.AuthRequired(), s.UpdateProfile)
	auth.Put("/change-password", s.AuthRequired(), s.ChangePassword)

	// Specific /posts routes before the generic /:id routes
	posts := api.Group("/posts")
	posts.Get("/", s.OptionalAuth(), s.GetPosts)
	posts.Get("/my-posts", s.AuthRequired(), s.GetMyPosts)
	posts.Post("/upload-image", s.AuthRequired(), s.UploadImage)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Post("/:id/like", s.AuthRequired(), s.LikePost)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	comments := api.Group("/comments")
	comments.Post("/", s.AuthRequired(), s.CreateComment)
	comments.Get("/post/:postId", s.OptionalAuth(), s.GetComments)
	comments.Get("/:id/replies", s.OptionalAuth(), s.GetReplies)
	comments.Post("/:id/like", s.AuthRequired(), s.LikeComment)
	comments.Put("/:id", s.AuthRequired(), s.UpdateComment)
	comments.Delete("/:id", s.AuthRequired(), s.DeleteComment)

	suggestions := api.Group("/suggestions")
	suggestions.Get("/", s.OptionalAuth(), s.GetSuggestions)
	suggestions.Post("/", s.AuthRequired(), s.CreateSuggestion)
	suggestions.Get("/stats", s.GetSuggestionStats)
	suggestions.Get("/user/my-suggestions", s.AuthRequired(), s.GetMySuggestions)
	suggestions.Post("/:id/vote", s.AuthRequired(), s.VoteSuggestion)
	suggestions.Delete("/:id/vote", s.AuthRequired(), s.RemoveSuggestionVote)
	suggestions.Post("/:id/comments", s.AuthRequired(), s.CommentOnSuggestion)
	suggestions.Patch("/:id/admin", s.AuthRequired(), s.AdminRequired(), s.AdminUpdateSuggestion)
	suggestions.Get("/:id", s.OptionalAuth(), s.GetSuggestion)
	suggestions.Put("/:id", s.AuthRequired(), s.UpdateSuggestion)
	suggestions.Delete("/:id", s.AuthRequired(), s.DeleteSuggestion)

	api.Get("/feed/:preset", s.OptionalAuth(), s.GetFeed)
	api.Get("/features", s.OptionalAuth(), s.GetFeatures)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Post("/create-admin", s.CreateAdmin)
	admin.Get("/users", s.ListUsers)
	admin.Put("/users/:id/status", s.SetUserStatus)
	admin.Delete("/users/:id", s.DeleteUser)
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
