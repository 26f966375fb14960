// Package server contains HTTP and WebSocket handlers for the comment board API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "commentboard/docs" // swagger docs
	"commentboard/internal/cache"
	"commentboard/internal/config"
	"commentboard/internal/database"
	"commentboard/internal/geo"
	"commentboard/internal/middleware"
	"commentboard/internal/models"
	"commentboard/internal/notifications"
	"commentboard/internal/repository"
	"commentboard/internal/service"
	"commentboard/internal/translate"
	"commentboard/internal/voter"
)

// Options overrides collaborators that talk to third-party services.
// Zero values fall back to the configured HTTP clients.
type Options struct {
	Locator    service.Locator
	Translator service.Translator
	Retry      *service.RetryPolicy
}

// Server holds all dependencies and provides handlers
type Server struct {
	config       *config.Config
	db           *gorm.DB
	redis        *redis.Client
	app          *fiber.App
	hub          *notifications.CommentHub
	voters       *voter.Deriver
	commentRepo  repository.CommentRepository
	comments     *service.CommentService
	votes        *service.VoteService
	translations *service.TranslationService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; translation and location caching are then skipped.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts Options) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}

	retry := service.DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	locator := opts.Locator
	if locator == nil {
		locator = geo.NewLocator(cfg.GeoLookupURL, cfg.GeoLookupTimeout, redisClient)
	}
	translator := opts.Translator
	if translator == nil {
		translator = translate.NewClient(cfg.TranslateAPIURL, cfg.TranslateAPIKey, cfg.TranslateAPIHost, cfg.TranslateTimeout)
	}

	commentRepo := repository.NewCommentRepository(db)
	translationRepo := repository.NewTranslationRepository(db)
	translationCache := cache.NewTranslationCache(redisClient)
	hub := notifications.NewCommentHub(cfg.WSMaxConnections)
	cascade := service.NewDeletionCascade(commentRepo, translationCache, retry)

	return &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		hub:          hub,
		voters:       voter.NewDeriver(cfg.VoterIDSalt),
		commentRepo:  commentRepo,
		comments:     service.NewCommentService(commentRepo, locator, hub, retry),
		votes:        service.NewVoteService(commentRepo, cascade, hub, retry),
		translations: service.NewTranslationService(commentRepo, translationRepo, translationCache, translator, retry),
	}, nil
}

// Hub returns the broadcaster so the owner can shut it down.
func (s *Server) Hub() *notifications.CommentHub { return s.hub }

// App builds the Fiber application once and returns it.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Comment Board API",
		BodyLimit:    64 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Success: false, Error: fiberErr.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Resolve the client address and voter id before anything logs
	app.Use(middleware.VoterIdentity(s.voters))

	// Context Middleware to propagate request, voter and trace ids
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	app.Use(middleware.Metrics(app, "commentboard-api"))

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods: "GET,POST,OPTIONS",
		MaxAge:       86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	api.Get("/health", s.HealthCheck)

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	comments := api.Group("/comments")
	comments.Get("/", s.GetComments)
	comments.Post("/", s.CreateComment)
	// Define specific /:id/:action routes BEFORE generic /:id route
	comments.Post("/:id/like", s.LikeComment)
	comments.Post("/:id/dislike", s.DislikeComment)
	comments.Get("/:id", s.GetComment)

	api.Post("/translate", s.TranslateComment)

	// Live updates
	api.Get("/ws", s.WebSocketUpgrade(), s.WebSocketCommentsHandler())
}

// Start listens on the configured port until the app is shut down.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("Server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, closes every live connection with a
// going-away frame and releases the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	// Close viewers first so the HTTP shutdown is not held by open sockets.
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if err := database.Close(s.db); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}

// readinessTimeout bounds the dependency pings of a health probe.
const readinessTimeout = 5 * time.Second
