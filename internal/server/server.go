// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "unitoku/docs" // swagger docs
	"unitoku/internal/cache"
	"unitoku/internal/config"
	"unitoku/internal/database"
	"unitoku/internal/featureflags"
	"unitoku/internal/middleware"
	"unitoku/internal/models"
	"unitoku/internal/notifications"
	"unitoku/internal/observability"
	"unitoku/internal/readhistory"
	"unitoku/internal/repository"
	"unitoku/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	hubs           []wireableHub
	featureFlags   *featureflags.Manager

	authService         *service.AuthService
	userService         *service.UserService
	categoryService     *service.CategoryService
	postService         *service.PostService
	commentService      *service.CommentService
	historyService      *service.HistoryService
	courseService       *service.CourseService
	evaluationService   *service.EvaluationService
	chatService         *service.ChatService
	notificationService *service.NotificationService
	imageService        *service.ImageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; realtime events are then delivered to local
// websocket clients only.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database are required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("unitoku-api"),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.hubs = []wireableHub{s.hub}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	interactions := repository.NewInteractionRepository(db)

	s.userService = service.NewUserService(userRepo)
	s.authService = service.NewAuthService(userRepo, redisClient, cfg.JWTSecret)
	s.categoryService = service.NewCategoryService(categoryRepo, s.userService.IsAdmin)
	s.historyService = service.NewHistoryService(readhistory.NewStore(redisClient, cfg.ReadHistoryCapacity))
	s.notificationService = service.NewNotificationService(
		repository.NewNotificationRepository(db), s.onNotificationCreated)
	s.postService = service.NewPostService(service.PostServiceDeps{
		Posts:        postRepo,
		Categories:   categoryRepo,
		Interactions: interactions,
		Favorites:    repository.NewFavoriteRepository(db),
		History:      s.historyService,
		Notify:       s.notificationService,
		Flags:        s.featureFlags,
		IsAdmin:      s.userService.IsAdmin,
	})
	s.commentService = service.NewCommentService(service.CommentServiceDeps{
		Comments:     commentRepo,
		Posts:        postRepo,
		Users:        userRepo,
		Interactions: interactions,
		Notify:       s.notificationService,
		Flags:        s.featureFlags,
		IsAdmin:      s.userService.IsAdmin,
	})
	s.courseService = service.NewCourseService(courseRepo)
	s.evaluationService = service.NewEvaluationService(
		repository.NewEvaluationRepository(db), courseRepo, interactions)
	s.chatService = service.NewChatService(repository.NewChatRepository(db), userRepo, s.onChatMessage)
	s.imageService = service.NewImageService(cfg)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(middleware.RequestContext())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Uploaded images are embedded cross-origin by the web client.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.AccessLog())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(strings.TrimSuffix(service.MediaURLPrefix, "/"), s.imageService.UploadDir(), fiber.Static{
		MaxAge: 86400,
	})

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "unitoku metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, middleware.SignupRule), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, middleware.LoginRule), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Public board routes. A bearer token is honoured when present so that
	// liked and favorited flags can be filled in.
	api.Get("/categories", s.GetCategories)
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/hot", s.GetHotPosts)
	publicPosts.Get("/search", middleware.RateLimit(s.redis, middleware.SearchRule), s.SearchPosts)
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Get("/:id", s.GetPost)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/comments", s.GetMyComments)
	users.Get("/me/posts", s.GetMyPosts)

	categories := protected.Group("/categories", s.AdminRequired())
	categories.Post("/", s.CreateCategory)
	categories.Put("/:id", s.UpdateCategory)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, middleware.CreatePostRule), s.CreatePost)
	posts.Post("/:id/like", s.TogglePostLike)
	posts.Post("/:id/favorite", s.TogglePostFavorite)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, middleware.CreateCommentRule), s.CreateComment)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)
	protected.Get("/favorites", s.GetFavorites)

	comments := protected.Group("/comments")
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)
	comments.Post("/:id/like", s.ToggleCommentLike)

	history := protected.Group("/history")
	history.Get("/", s.GetReadHistory)
	history.Delete("/", s.ClearReadHistory)
	history.Delete("/:postId", s.DeleteReadHistoryEntry)

	// Specific course routes before the generic /:id routes.
	courses := protected.Group("/courses")
	courses.Get("/", s.GetCourses)
	courses.Get("/timetable", s.GetTimetable)
	courses.Get("/today", s.GetTodayCourses)
	courses.Get("/slot", s.GetCourseAtSlot)
	courses.Post("/", s.CreateCourse)
	courses.Get("/:id/evaluations/average", s.GetEvaluationAverage)
	courses.Get("/:id/evaluations", s.GetEvaluations)
	courses.Post("/:id/evaluations", middleware.RateLimit(s.redis, middleware.CreateEvaluationRule), s.CreateEvaluation)
	courses.Put("/:id", s.UpdateCourse)
	courses.Delete("/:id", s.DeleteCourse)
	protected.Post("/evaluations/:id/like", s.ToggleEvaluationLike)

	chat := protected.Group("/chat/rooms")
	chat.Get("/", s.GetChatRooms)
	chat.Post("/private", s.CreatePrivateRoom)
	chat.Post("/group", s.CreateGroupRoom)
	chat.Get("/:id/messages", s.GetChatMessages)
	chat.Post("/:id/messages", middleware.RateLimit(s.redis, middleware.SendChatRule), s.SendChatMessage)

	notif := protected.Group("/notifications")
	notif.Get("/", s.GetNotifications)
	notif.Get("/unread", s.HasUnreadNotifications)
	notif.Post("/read-all", s.MarkAllNotificationsRead)
	notif.Post("/:id/read", s.MarkNotificationRead)
	notif.Delete("/:id", s.DeleteNotification)

	protected.Post("/images", middleware.RateLimit(s.redis, middleware.ImageUploadRule), s.UploadImage)
	protected.Get("/feature-flags", s.GetFeatureFlags)

	protected.Post("/ws/ticket", s.IssueWSTicket)
	protected.Get("/ws", s.WebsocketHandler())
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
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
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

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
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

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		admin, err := s.userService.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userID").(uint); ok {
			return c.Next()
		}
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		// Tickets are single-use and only open the websocket itself.
		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			userID, ok := s.consumeWSTicket(c.UserContext(), ticket)
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			s.setUser(c, userID)
			return c.Next()
		}

		tokenString, _ := middleware.BearerToken(c.Get("Authorization"))
		// Browsers cannot set headers on websocket upgrades; those must use a ticket.
		if tokenString == "" && !isWSPath {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, service.ErrTokenRevoked) {
				msg = "Token has been revoked"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}

		c.Locals("claims", claims)
		s.setUser(c, claims.UserID)
		return c.Next()
	}
}

func (s *Server) setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(observability.WithUserID(c.UserContext(), userID))
}

// optionalUserID attempts to extract userID from the Authorization header but does not enforce it.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid, true
	}
	tokenString, ok := middleware.BearerToken(c.Get("Authorization"))
	if !ok {
		return 0, false
	}
	claims, err := s.authService.Authenticate(c.UserContext(), tokenString)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// App builds the Fiber application with middleware and routes but does not listen.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "unitoku API",
		BodyLimit: int(s.imageService.MaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier.Enabled() {
		for _, h := range s.hubs {
			h := h
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					middleware.Logger.Error("hub wiring failed",
						slog.String("hub", h.Name()), slog.String("error", err.Error()))
				}
			}()
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("http shutdown failed", slog.String("error", err.Error()))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("hub shutdown failed",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("closing sql DB failed", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("closing redis failed", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
