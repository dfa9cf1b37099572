// Package server contains the HTTP handlers and routing for the blog.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/internal/bootstrap"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
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
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	postService    *service.PostService
	accountService *service.AccountService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient, service.NewSMTPSender(cfg))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB, Redis and the
// mail transport itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, mailer service.MailSender) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database are required")
	}
	if mailer == nil {
		mailer = service.NewSMTPSender(cfg)
	}
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	tokens := service.NewResetTokenIssuer(cfg.JWTSecret, time.Duration(cfg.ResetTokenTTLMinutes)*time.Minute, userRepo)
	notifier := service.NewMailNotifier(mailer, tokens, cfg.MailSender, cfg.PublicBaseURL)
	pictures := service.NewPictureService(cfg.AvatarDir)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quill"),
		userRepo:       userRepo,
		postRepo:       postRepo,
		postService:    service.NewPostService(postRepo, userRepo),
		accountService: service.NewAccountService(userRepo, pictures, notifier, tokens),
	}, nil
}

// App builds the Fiber application with middleware and routes attached.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "Quill",
		BodyLimit:    (s.config.AvatarMaxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	s.app = app
	return app
}

// errorHandler renders errors no handler dealt with.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, err)
	}

	status := mapServiceError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(
		recover.New(),
		requestid.New(),
		middleware.TracingMiddleware(),
	)
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	allowed := s.config.AllowedOrigins
	if allowed == "" {
		allowed = s.config.PublicBaseURL
	}
	app.Use(
		helmet.New(),
		cors.New(cors.Config{
			AllowOrigins:     allowed,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowCredentials: true,
			MaxAge:           int((24 * time.Hour).Seconds()),
		}),
		// Per-IP ceiling across the whole site; avatars and preflights are exempt.
		limiter.New(limiter.Config{
			Max:        100,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/static/")
			},
			LimitReached: func(c *fiber.Ctx) error {
				return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
					Code:    models.CodeRateLimited,
					Message: "Too many requests, please try again later.",
				})
			},
		}),
	)

	app.Use(middleware.Flashes())
	app.Use(middleware.LoadSession(s.userRepo.GetByID))
	// Needs the principal from LoadSession.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Quill Metrics Dashboard",
	}))

	app.Static("/static/profile_pics", s.config.AvatarDir)

	// Feed
	app.Get("/", s.Home)
	app.Get("/home", s.Home)
	app.Get("/about", s.About)
	app.Get("/user/:username", s.UserPosts)

	// Auth
	app.Get("/register", s.anonymousOnly, s.RegisterForm)
	app.Post("/register", s.anonymousOnly, middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "register"), s.Register)
	app.Get("/login", s.anonymousOnly, s.LoginForm)
	app.Post("/login", s.anonymousOnly, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)
	app.Get("/reset_password", s.anonymousOnly, s.ResetRequestForm)
	app.Post("/reset_password", s.anonymousOnly, middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "reset_password"), s.RequestReset)
	app.Get("/reset_password/:token", s.anonymousOnly, s.ResetTokenForm)
	app.Post("/reset_password/:token", s.anonymousOnly, s.ResetPassword)

	// Account
	app.Get("/account", middleware.LoginRequired, s.AccountForm)
	app.Post("/account", middleware.LoginRequired, s.UpdateAccount)

	// Posts. Specific routes before the generic /post/:id route.
	app.Get("/post/new", middleware.LoginRequired, s.NewPostForm)
	app.Post("/post/new", middleware.LoginRequired, s.CreatePost)
	app.Get("/post/:id<int>/update", middleware.LoginRequired, s.UpdatePostForm)
	app.Post("/post/:id<int>/update", middleware.LoginRequired, s.UpdatePost)
	app.Post("/post/:id<int>/delete", middleware.LoginRequired, s.DeletePost)
	app.Get("/post/:id<int>", s.GetPost)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	// Running without Redis is allowed; a configured but failing Redis is not.
	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
