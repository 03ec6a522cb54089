package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hallgard/authgate/internal/utils"
)

// ListSessions handles GET /sessions and returns the caller's live sessions
func (h *Handler) ListSessions(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.APIErrorResponse(c, utils.ErrUnauthorized)
	}

	sessions, err := h.sessionStore.UserSessions(c.UserContext(), identity.User.ID)
	if err != nil {
		return utils.APIErrorResponse(c, utils.ErrInternalServer)
	}

	return c.JSON(sessions)
}

// DeleteSession handles DELETE /sessions/:sessionId
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.APIErrorResponse(c, utils.ErrUnauthorized)
	}

	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return utils.APIErrorResponse(c, utils.ErrBadRequest)
	}

	if err := h.sessionStore.Delete(c.UserContext(), sessionID); err != nil {
		return utils.APIErrorResponse(c, utils.ErrInternalServer)
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteAllSessions handles DELETE /sessions
func (h *Handler) DeleteAllSessions(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.APIErrorResponse(c, utils.ErrUnauthorized)
	}

	if err := h.sessionStore.DeleteAllUserSessions(c.UserContext(), identity.User.ID); err != nil {
		return utils.APIErrorResponse(c, utils.ErrInternalServer)
	}

	return c.JSON(fiber.Map{"success": true})
}
