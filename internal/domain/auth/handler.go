package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/utils"
)

// Handler exposes the credential and session sign-in endpoints
type Handler struct {
	authService  *Service
	sessionAuth  *SessionAuthService
	sessionStore session.Store
}

// NewHandler creates a new Handler
func NewHandler(authService *Service, sessionAuth *SessionAuthService, sessionStore session.Store) *Handler {
	return &Handler{
		authService:  authService,
		sessionAuth:  sessionAuth,
		sessionStore: sessionStore,
	}
}

// Login handles POST /auth/login
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.APIErrorResponse(c, utils.ErrBadRequest)
	}

	res, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		return utils.APIErrorResponse(c, apiErrorFor(err))
	}

	return c.Status(fiber.StatusCreated).JSON(res)
}

// Me handles GET /auth/me
func (h *Handler) Me(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.APIErrorResponse(c, utils.ErrUnauthorized)
	}

	return c.JSON(identity.User)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(c *fiber.Ctx) error {
	raw, ok := c.Locals(TokenKey).(string)
	if !ok || raw == "" {
		return utils.APIErrorResponse(c, utils.ErrUnauthorized)
	}

	if err := h.authService.Logout(c.UserContext(), raw); err != nil {
		return utils.APIErrorResponse(c, apiErrorFor(err))
	}

	return c.JSON(fiber.Map{"success": true})
}

// GlobalLogout handles POST /auth/logout/all
func (h *Handler) GlobalLogout(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.APIErrorResponse(c, utils.ErrUnauthorized)
	}

	if err := h.authService.GlobalLogout(c.UserContext(), identity.User.ID); err != nil {
		return utils.APIErrorResponse(c, apiErrorFor(err))
	}

	return c.JSON(fiber.Map{"success": true})
}

// SessionLogin handles POST /auth/session/login
func (h *Handler) SessionLogin(c *fiber.Ctx) error {
	var req SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.APIErrorResponse(c, utils.ErrBadRequest)
	}

	res, err := h.sessionAuth.SignInBySession(c.UserContext(), req.SessionID)
	if err != nil {
		return utils.APIErrorResponse(c, apiErrorFor(err))
	}

	return c.JSON(res)
}

// SessionRefresh handles POST /auth/session/refresh
func (h *Handler) SessionRefresh(c *fiber.Ctx) error {
	var req SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.APIErrorResponse(c, utils.ErrBadRequest)
	}

	if err := h.sessionAuth.RefreshUserSession(c.UserContext(), req.SessionID); err != nil {
		return utils.APIErrorResponse(c, apiErrorFor(err))
	}

	return c.JSON(fiber.Map{"success": true})
}

// SessionDelete handles POST /auth/session/delete
func (h *Handler) SessionDelete(c *fiber.Ctx) error {
	var req SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.APIErrorResponse(c, utils.ErrBadRequest)
	}

	if err := h.sessionStore.Delete(c.UserContext(), req.SessionID); err != nil {
		return utils.APIErrorResponse(c, utils.ErrInternalServer)
	}

	return c.JSON(fiber.Map{"success": true})
}

// JWKSHandler serves the public key set
func JWKSHandler(keys *KeyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(keys.JWKS())
	}
}

// apiErrorFor maps domain errors onto client-visible API errors without
// leaking internal detail. The three token failure modes share one code.
func apiErrorFor(err error) *utils.APIError {
	switch {
	case errors.Is(err, ErrBruteForceBlocked):
		return utils.NewAPIError("BRUTE_FORCE_BLOCKED", ErrBruteForceBlocked.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, ErrInvalidCredentials):
		return utils.NewAPIError("INVALID_CREDENTIALS", ErrInvalidCredentials.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, ErrAccountBlocked):
		return utils.NewAPIError("ACCOUNT_BLOCKED", ErrAccountBlocked.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenRevoked), errors.Is(err, ErrTokenExpired):
		return utils.NewAPIError("SESSION_EXPIRED", ErrTokenExpired.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, ErrTokenAbsent):
		return utils.NewAPIError("TOKEN_ABSENT", ErrTokenAbsent.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, ErrPairingNotFound):
		return utils.NewAPIError("PAIRING_NOT_FOUND", ErrPairingNotFound.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, ErrIdentityNotFound):
		return utils.NewAPIError("IDENTITY_NOT_FOUND", ErrIdentityNotFound.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, ErrNotAuthorized):
		return utils.NewAPIError("NOT_AUTHORIZED", ErrNotAuthorized.Error(), fiber.StatusForbidden)
	default:
		return utils.ErrInternalServer
	}
}
