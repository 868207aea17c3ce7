// Package server contains the HTTP and WebSocket handlers for the quality
// scoring and moderation API.
package server

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"classifieds/internal/bootstrap"
	"classifieds/internal/config"
	"classifieds/internal/featureflags"
	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/notifications"
	"classifieds/internal/repository"
	"classifieds/internal/service"

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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	listingRepo    repository.ListingRepository
	notifier       *notifications.Notifier
	// adminWired is set once this instance's hub receives the admin channel.
	adminWired atomic.Bool
	adminHub       *notifications.AdminHub
	featureFlags   *featureflags.Manager
	qualityService *service.QualityService
	spamService    *service.SpamService
	reportService  *service.ReportService
	adminService   *service.AdminModerationService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client disables caching, rate limits and cross-instance events.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	svcs := bootstrap.NewServices(cfg, db)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("classifieds-api"),
		userRepo:       repository.NewUserRepository(db),
		listingRepo:    repository.NewListingRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		adminHub:       notifications.NewAdminHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		qualityService: svcs.Quality,
		spamService:    svcs.Moderator,
		reportService:  svcs.Reports,
		adminService:   svcs.Admin,
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request and user ids into the logging context.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
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

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	auth := middleware.AuthRequired(s.config.JWTSecret)

	quality := api.Group("/quality/listings")
	quality.Get("/:id", s.GetListingQualityScore)
	quality.Post("/:id/recalculate", auth, s.RecalculateListingQualityScore)

	api.Post("/reports", auth,
		middleware.RateLimit(s.redis, s.config.ReportRateLimit, s.config.ReportRateWindow(), "report"),
		s.SubmitReport)

	admin := api.Group("/admin", auth, s.AdminRequired())
	admin.Get("/reports", s.GetAdminReports)
	admin.Post("/reports/:id/resolve", s.ResolveReport)
	admin.Delete("/reports/:id", s.DeleteReport)
	admin.Post("/listings/:id/deactivate", s.DeactivateListing)
	admin.Post("/listings/:id/reactivate", s.ReactivateListing)
	admin.Get("/listings/:id/signals", s.GetListingReviewSignals)
	admin.Post("/users/:id/ban", s.BanUser)
	admin.Post("/users/:id/unban", s.UnbanUser)

	ws := api.Group("/ws", middleware.WebSocketAuthRequired(s.config.JWTSecret), s.AdminRequired())
	ws.Get("/admin", s.AdminWebSocketHandler())
}

// App builds the Fiber application with middleware and routes attached.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Classifieds Moderation API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			log.Printf("Error: %v", err)
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

	if err := s.startAdminWiring(s.shutdownCtx); err != nil {
		log.Printf("failed to start %s wiring, admin events stay local: %v", s.adminHub.Name(), err)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// startAdminWiring subscribes the admin hub to the Redis admin channel.
// Without Redis there is nothing to wire.
func (s *Server) startAdminWiring(ctx context.Context) error {
	if !s.notifier.Enabled() {
		return nil
	}
	if err := s.adminHub.StartWiring(ctx, s.notifier); err != nil {
		return err
	}
	s.adminWired.Store(true)
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.adminHub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.adminHub.Name(), err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
