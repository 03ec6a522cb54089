package pairing

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/hallgard/authgate/internal/domain/auth"
	"github.com/hallgard/authgate/internal/utils"
)

// Handler exposes the bot-pairing endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new Handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Signup handles POST /auth/tg/signup
func (h *Handler) Signup(c *fiber.Ctx) error {
	_, link, err := h.service.Generate(c.UserContext())
	if err != nil {
		return utils.APIErrorResponse(c, utils.ErrInternalServer)
	}

	return c.Status(fiber.StatusCreated).JSON(LinkResponse{Link: link})
}

// Confirm handles POST /auth/tg/confirm
func (h *Handler) Confirm(c *fiber.Ctx) error {
	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.APIErrorResponse(c, utils.ErrBadRequest)
	}

	if err := h.service.Confirm(c.UserContext(), req.AuthKey, req.ChatID); err != nil {
		return utils.APIErrorResponse(c, pairingError(err))
	}

	return c.JSON(fiber.Map{"success": true})
}

// Signin handles POST /auth/tg/signin
func (h *Handler) Signin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.APIErrorResponse(c, utils.ErrBadRequest)
	}

	token, err := h.service.CompleteLogin(c.UserContext(), req.AuthKey)
	if err != nil {
		return utils.APIErrorResponse(c, pairingError(err))
	}

	return c.JSON(TokenResponse{AccessToken: token})
}

func pairingError(err error) *utils.APIError {
	switch {
	case errors.Is(err, auth.ErrPairingNotFound):
		return utils.NewAPIError("PAIRING_NOT_FOUND", auth.ErrPairingNotFound.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, auth.ErrIdentityNotFound):
		return utils.NewAPIError("IDENTITY_NOT_FOUND", auth.ErrIdentityNotFound.Error(), fiber.StatusUnauthorized)
	case errors.Is(err, auth.ErrTokenInvalid):
		return utils.NewAPIError("SESSION_EXPIRED", auth.ErrTokenExpired.Error(), fiber.StatusUnauthorized)
	default:
		return utils.ErrInternalServer
	}
}
