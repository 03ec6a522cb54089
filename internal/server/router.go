package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hallgard/authgate/internal/cache"
	"github.com/hallgard/authgate/internal/config"
	"github.com/hallgard/authgate/internal/database"
	"github.com/hallgard/authgate/internal/domain/attempt"
	"github.com/hallgard/authgate/internal/domain/auth"
	"github.com/hallgard/authgate/internal/domain/pairing"
	"github.com/hallgard/authgate/internal/domain/role"
	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/domain/user"
	"github.com/hallgard/authgate/internal/utils"
)

// SetupRoutes wires repositories, services and handlers together and
// registers the HTTP routes.
func SetupRoutes(app *fiber.App, cfg *config.Config) error {
	userRepo := user.NewRepository(database.DB)
	roleRepo := role.NewRepository(database.DB)
	blacklistRepo := auth.NewBlacklistRepository(database.DB)
	pairingRepo := pairing.NewRepository(database.DB)

	store := cache.NewRedisStore(cache.RedisClient)
	sessions := session.NewStore(store, cfg.Auth.SessionTTL(), cfg.Auth.MaxSessions)
	attempts := attempt.NewMemoryTracker(cfg.Auth.MaxAttempts, cfg.Auth.BlockWindow())

	keys, err := auth.LoadKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(keys, userRepo, sessions, blacklistRepo, cfg.Server.Domain, cfg.Auth.TokenTTL())
	authService := auth.NewService(userRepo, sessions, attempts, tokens)
	sessionAuth := auth.NewSessionAuthService(userRepo, sessions, tokens)
	authHandler := auth.NewHandler(authService, sessionAuth, sessions)

	txManager := pairing.NewTxManager(database.DB, pairingRepo, userRepo, roleRepo)
	pairingService := pairing.NewService(txManager, pairingRepo, userRepo, sessions, tokens, cfg.Auth.BotName)
	pairingHandler := pairing.NewHandler(pairingService)

	authRequired := auth.Middleware(tokens)

	app.Get("/.well-known/jwks.json", auth.JWKSHandler(keys))

	v1 := app.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return utils.SuccessResponse(c, fiber.Map{
			"status":  "ok",
			"app":     cfg.App.Name,
			"version": cfg.App.Version,
		}, "Service is healthy")
	})

	authGroup := v1.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/me", authRequired, authHandler.Me)
	authGroup.Post("/logout", authRequired, authHandler.Logout)
	authGroup.Post("/logout/all", authRequired, authHandler.GlobalLogout)

	authGroup.Post("/session/login", authHandler.SessionLogin)
	authGroup.Post("/session/refresh", authHandler.SessionRefresh)
	authGroup.Post("/session/delete", authHandler.SessionDelete)

	tg := authGroup.Group("/tg")
	tg.Post("/signup", pairingHandler.Signup)
	tg.Post("/confirm", pairingHandler.Confirm)
	tg.Post("/signin", pairingHandler.Signin)

	sessionsGroup := v1.Group("/sessions", authRequired)
	sessionsGroup.Get("/", authHandler.ListSessions)
	sessionsGroup.Delete("/:sessionId", authHandler.DeleteSession)
	sessionsGroup.Delete("/", authHandler.DeleteAllSessions)

	return nil
}
