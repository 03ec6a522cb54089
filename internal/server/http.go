package server

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/hallgard/authgate/internal/cache"
	"github.com/hallgard/authgate/internal/config"
	"github.com/hallgard/authgate/internal/database"
	"github.com/hallgard/authgate/internal/migrations"
	"github.com/hallgard/authgate/internal/utils"
)

// Start initializes logging, configures the Fiber app, connects to the
// database and Redis, runs migrations, registers routes and starts
// listening on the configured address.
func Start(cfg *config.Config) error {
	initLogger(cfg.Logging.Level)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var apiErr *utils.APIError
			if errors.As(err, &apiErr) {
				return utils.APIErrorResponse(c, apiErr)
			}

			var e *fiber.Error
			if errors.As(err, &e) {
				return utils.APIErrorResponse(c, utils.NewAPIError(
					"HTTP_ERROR",
					e.Message,
					e.Code,
				))
			}

			return utils.APIErrorResponse(c, utils.ErrInternalServer)
		},
	})

	app.Use(helmet.New())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimit.Max,
		Expiration: time.Duration(cfg.Server.RateLimit.Expiration) * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.APIErrorResponse(c, utils.NewAPIError(
				"TOO_MANY_REQUESTS",
				"Too many requests, please try again later.",
				fiber.StatusTooManyRequests,
			))
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		ExposeHeaders:    "Content-Length",
		MaxAge:           3600,
	}))

	if err := database.ConnectDB(cfg); err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	slog.Info("Database connected successfully")

	if err := cache.ConnectRedis(&cfg.Redis); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		return err
	}

	if err := migrations.RunMigrations(cfg); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	if err := SetupRoutes(app, cfg); err != nil {
		slog.Error("Failed to setup routes", "error", err)
		return err
	}

	addr := cfg.Server.Address()
	slog.Info("Server starting",
		"address", addr,
		"app", cfg.App.Name,
		"version", cfg.App.Version,
	)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
