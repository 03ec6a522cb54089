package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hallgard/authgate/internal/utils"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
	// TokenKey is the key used to store the raw bearer token in Fiber context
	TokenKey = "token"
)

// Middleware returns a Fiber handler that extracts the bearer token from
// the Authorization header, verifies it through the token service and
// attaches the resolved Identity and the raw token to the request context.
// Revoked, malformed and session-expired tokens are presented uniformly
// as an expired session; only a missing token gets its own code.
func Middleware(tokens *TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := BearerToken(c)
		if err != nil {
			return utils.APIErrorResponse(c, utils.NewAPIError(
				"TOKEN_ABSENT", ErrTokenAbsent.Error(), fiber.StatusUnauthorized))
		}

		identity, err := tokens.Verify(c.UserContext(), raw)
		if err != nil {
			if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenRevoked) || errors.Is(err, ErrTokenExpired) {
				return utils.APIErrorResponse(c, utils.NewAPIError(
					"SESSION_EXPIRED", ErrTokenExpired.Error(), fiber.StatusUnauthorized))
			}
			return utils.APIErrorResponse(c, utils.ErrInternalServer)
		}

		c.Locals(IdentityKey, identity)
		c.Locals(TokenKey, raw)

		return c.Next()
	}
}

// RequireRoot returns a handler that rejects non-root identities. It must
// run after Middleware.
func RequireRoot() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := GetIdentity(c)
		if identity == nil || !identity.User.IsRoot {
			return utils.APIErrorResponse(c, utils.NewAPIError(
				"NOT_AUTHORIZED", ErrNotAuthorized.Error(), fiber.StatusForbidden))
		}
		return c.Next()
	}
}

// BearerToken extracts the raw token from the Authorization header
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", ErrTokenAbsent
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrTokenAbsent
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrTokenAbsent
	}

	return token, nil
}

// GetIdentity retrieves the Identity stored in the Fiber context, or nil
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
