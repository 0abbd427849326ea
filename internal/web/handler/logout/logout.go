// Package logout revokes the presenting access token.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/web/handler"
)

// Path is the path of the logout route.
const Path = "/logout"

// Service is the logout handler service.
type Service struct {
	cfg         *config.Config
	authService *auth.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the logout route behind token authentication.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) {
	if app == nil || cfg == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.authService = authService

	app.Post(Path, auth.RequireAuth(authService), s.Logout)
}

// Logout revokes exactly the token that authenticated the current request.
func (s *Service) Logout(c *fiber.Ctx) error {
	token, ok := auth.CurrentToken(c)
	if !ok {
		return handler.FailStatus(c, fiber.StatusUnauthorized, auth.MsgUnauthorized)
	}

	if err := s.authService.RevokeToken(token.ID); err != nil {
		log.Error().Err(err).Uint64("token_id", token.ID).Msg("failed to revoke access token")
		return handler.FailStatus(c, fiber.StatusInternalServerError, "Something went wrong!")
	}

	return handler.OK(c, "Successfully logged out", nil)
}
