package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/silkcms/silk-admin/internal/db/models"
)

const (
	// LocalsUserKey is the fiber.Locals key holding the authenticated user.
	LocalsUserKey = "currentUser"
	// LocalsTokenKey is the fiber.Locals key holding the presenting access token.
	LocalsTokenKey = "currentToken"

	// MsgUnauthorized is the uniform body message for missing or invalid tokens.
	MsgUnauthorized = "Token not found or has expired. Please authenticate again."
	// MsgForbidden is the uniform body message for missing permissions.
	MsgForbidden = "User does not have the right permissions."
)

// RequireAuth creates fiber middleware authenticating the request via its
// bearer token. The resolved user and token are stored in fiber.Locals.
func RequireAuth(authService *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bearer := bearerToken(c)
		if bearer == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  false,
				"message": MsgUnauthorized,
			})
		}

		user, token, err := authService.AuthenticateToken(bearer)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  false,
				"message": MsgUnauthorized,
			})
		}

		c.Locals(LocalsUserKey, user)
		c.Locals(LocalsTokenKey, token)

		return c.Next()
	}
}

// RequirePermission creates fiber middleware that requires a specific
// permission. It must run after RequireAuth.
func RequirePermission(authService *Service, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  false,
				"message": MsgUnauthorized,
			})
		}

		hasPermission, err := authService.HasPermission(user.ID, permission)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", user.ID).Str("permission", permission).
				Msg("Failed to check permission")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  false,
				"message": "Internal server error",
			})
		}

		if !hasPermission {
			log.Warn().Uint64("user_id", user.ID).Str("permission", permission).
				Msg("User lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  false,
				"message": MsgForbidden,
			})
		}

		return c.Next()
	}
}

// CurrentUser returns the authenticated user stored by RequireAuth.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(LocalsUserKey).(*models.User)
	return user, ok
}

// CurrentToken returns the presenting access token stored by RequireAuth.
func CurrentToken(c *fiber.Ctx) (*models.AccessToken, bool) {
	token, ok := c.Locals(LocalsTokenKey).(*models.AccessToken)
	return token, ok
}

// bearerToken extracts the token plaintext from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}
