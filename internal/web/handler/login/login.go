// Package login provides the token-issuing login handler.
package login

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/blobstore"
	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/web/handler"
)

const (
	// Path is the path of the login route.
	Path = "/login"

	// TokenName labels tokens issued at login.
	TokenName = "authToken"
)

// Service is the login handler service.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	blobs       *blobstore.Store
	validator   *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the login route. Login is the only unauthenticated
// mutating route of the API.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service, blobs *blobstore.Store) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authService = authService
	s.blobs = blobs
	s.validator = validator.New()

	app.Post(Path, s.Post)
}

// Post handles the login request and issues an access token.
func (s *Service) Post(c *fiber.Ctx) error {
	var in struct {
		Email    string `json:"email"    form:"email"    validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	if err := c.BodyParser(&in); err != nil {
		return handler.Fail(c, "Invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Fail(c, handler.FirstValidationMessage(err))
	}

	user, err := s.authService.Authenticate(in.Email, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserAccountDisabled) {
			return handler.Fail(c, "User account is disabled!")
		}

		return handler.Fail(c, "Credentials do not match!")
	}

	token, err := s.authService.IssueToken(user.ID, TokenName)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to issue access token")
		return handler.FailStatus(c, fiber.StatusInternalServerError, "Something went wrong!")
	}

	var roleName string
	if role, errRole := s.authService.GetUserRole(user.ID); errRole == nil {
		roleName = role.Name
	}

	var profileImage any
	if user.ProfileImage != "" {
		profileImage = s.blobs.URL(user.ProfileImage)
	}

	return handler.OK(c, "You have logged in successfully", fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"profile_image": profileImage,
		"user_enabled":  user.Enabled,
		"role":          roleName,
		"api_token":     token,
	})
}
