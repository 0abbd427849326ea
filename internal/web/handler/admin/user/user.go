// Package user implements the user administration routes.
package user

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/blobstore"
	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/db/models"
	"github.com/silkcms/silk-admin/internal/web/handler"
)

const (
	// PathRegister is the path of the user registration route.
	PathRegister = "/register"
	// PathAllUsers is the path of the user listing route.
	PathAllUsers = "/allUsers"
	// PathProfile is the path of the own-profile route.
	PathProfile = "/getUserProfile"
	// PathEdit is the path of the single-user read route.
	PathEdit = "/userEdit/:id"
	// PathUpdate is the path of the user update route.
	PathUpdate = "/userUpdate/:id"
	// PathDelete is the path of the user delete route.
	PathDelete = "/userDelete/:id"

	// imageSubdir is the upload-dir sub directory for profile images.
	imageSubdir = "profile_images"

	// tokenName labels tokens issued at registration.
	tokenName = "authToken"

	msgUserNotFound = "User not found!"
)

// Service is the user administration handler service.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	blobs       *blobstore.Store
	validator   *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the user routes behind their permission middleware.
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

	authed := auth.RequireAuth(authService)

	app.Post(PathRegister, authed, auth.RequirePermission(authService, auth.PermUserAdd), s.Register)
	app.Get(PathAllUsers, authed, auth.RequirePermission(authService, auth.PermUserView), s.AllUsers)
	app.Get(PathProfile, authed, s.Profile)
	app.Get(PathEdit, authed, auth.RequirePermission(authService, auth.PermUserEdit), s.Edit)
	app.Post(PathUpdate, authed, auth.RequirePermission(authService, auth.PermUserEdit), s.Update)
	app.Delete(PathDelete, authed, auth.RequirePermission(authService, auth.PermUserDelete), s.Delete)
}

// Register creates a new user account with exactly one role. Nothing is
// persisted, no token issued and no file stored when validation fails.
func (s *Service) Register(c *fiber.Ctx) error {
	var in struct {
		Name                 string `json:"name"                  form:"name"                  validate:"required,max=255"`
		Email                string `json:"email"                 form:"email"                 validate:"required,email"`
		Password             string `json:"password"              form:"password"              validate:"required,min=8"`
		PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation" validate:"required,eqfield=Password"`
		RoleID               uint   `json:"role_id"               form:"role_id"               validate:"required"`
	}

	if err := c.BodyParser(&in); err != nil {
		return handler.Fail(c, "Invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Fail(c, handler.FirstValidationMessage(err))
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return s.internalError(c, err, "failed to check email uniqueness")
	}

	if count > 0 {
		return handler.Fail(c, "The email has already been taken.")
	}

	var role models.Role
	if err := s.db.First(&role, in.RoleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return handler.Fail(c, "Role not found!")
		}

		return s.internalError(c, err, "failed to load role")
	}

	enabled := true
	if raw, ok := handler.FormValue(c, "user_enabled"); ok {
		enabled = parseBool(raw)
	}

	user := models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: models.HashPassword(in.Password),
		Enabled:  enabled,
	}

	if file := handler.FormFile(c, "profile_image"); file != nil {
		path, err := s.blobs.Save(file, imageSubdir)
		if err != nil {
			return s.internalError(c, err, "failed to store profile image")
		}

		user.ProfileImage = path
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		return tx.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error
	})
	if err != nil {
		return s.internalError(c, err, "failed to create user")
	}

	token, err := s.authService.IssueToken(user.ID, tokenName)
	if err != nil {
		return s.internalError(c, err, "failed to issue access token")
	}

	return handler.OK(c, "User registered successfully", fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"profile_image": s.imageURL(user.ProfileImage),
		"user_enabled":  user.Enabled,
		"role":          role.Name,
		"api_token":     token,
	})
}

// AllUsers lists every account except the bootstrap administrator,
// newest first.
func (s *Service) AllUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := s.db.Where("id <> ?", models.BootstrapAdminID).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return s.internalError(c, err, "failed to list users")
	}

	if len(users) == 0 {
		return handler.Fail(c, "No users found.")
	}

	roleNames, err := s.roleNamesByUser()
	if err != nil {
		return s.internalError(c, err, "failed to load user roles")
	}

	rows := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		rows = append(rows, fiber.Map{
			"id":            u.ID,
			"name":          u.Name,
			"email":         u.Email,
			"profile_image": s.imageURL(u.ProfileImage),
			"user_enabled":  u.Enabled,
			"role":          roleNames[u.ID],
			"created_at":    u.CreatedAt,
		})
	}

	return handler.OK(c, "Users retrieved successfully", rows)
}

// Profile returns the authenticated user's own record.
func (s *Service) Profile(c *fiber.Ctx) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return handler.FailStatus(c, fiber.StatusUnauthorized, auth.MsgUnauthorized)
	}

	var roleID uint
	var roleName string
	if role, err := s.authService.GetUserRole(user.ID); err == nil {
		roleID = role.ID
		roleName = role.Name
	}

	return handler.OK(c, "Profile retrieved successfully", fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"profile_image": s.imageURL(user.ProfileImage),
		"user_enabled":  user.Enabled,
		"role_id":       roleID,
		"role":          roleName,
	})
}

// Edit returns a single editable user record.
func (s *Service) Edit(c *fiber.Ctx) error {
	user, ok := s.editableUser(c)
	if !ok {
		return handler.Fail(c, msgUserNotFound)
	}

	var roleID uint
	if role, err := s.authService.GetUserRole(user.ID); err == nil {
		roleID = role.ID
	}

	return handler.OK(c, "User retrieved successfully", fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"profile_image": s.imageURL(user.ProfileImage),
		"user_enabled":  user.Enabled,
		"role_id":       roleID,
	})
}

// Update applies a partial update: only fields present in the form change.
func (s *Service) Update(c *fiber.Ctx) error {
	user, ok := s.editableUser(c)
	if !ok {
		return handler.Fail(c, msgUserNotFound)
	}

	if name, present := handler.FormValue(c, "name"); present && name != "" {
		user.Name = name
	}

	if email, present := handler.FormValue(c, "email"); present && email != "" {
		if err := s.validator.Var(email, "email"); err != nil {
			return handler.Fail(c, "The email must be a valid email address.")
		}

		var count int64
		if err := s.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, user.ID).
			Count(&count).Error; err != nil {
			return s.internalError(c, err, "failed to check email uniqueness")
		}

		if count > 0 {
			return handler.Fail(c, "The email has already been taken.")
		}

		user.Email = email
	}

	if password, present := handler.FormValue(c, "password"); present && password != "" {
		if len(password) < 8 {
			return handler.Fail(c, "The password must be at least 8 characters.")
		}

		confirmation, _ := handler.FormValue(c, "password_confirmation")
		if confirmation != password {
			return handler.Fail(c, "The password confirmation does not match.")
		}

		user.Password = models.HashPassword(password)
	}

	if raw, present := handler.FormValue(c, "user_enabled"); present {
		user.Enabled = parseBool(raw)
	}

	oldImage := ""
	if file := handler.FormFile(c, "profile_image"); file != nil {
		path, err := s.blobs.Save(file, imageSubdir)
		if err != nil {
			return s.internalError(c, err, "failed to store profile image")
		}

		oldImage = user.ProfileImage
		user.ProfileImage = path
	}

	if raw, present := handler.FormValue(c, "role_id"); present && raw != "" {
		roleID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return handler.Fail(c, "The selected role id is invalid.")
		}

		var role models.Role
		if err := s.db.First(&role, uint(roleID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return handler.Fail(c, "Role not found!")
			}

			return s.internalError(c, err, "failed to load role")
		}

		if err := s.authService.SyncUserRoles(user.ID, []uint{role.ID}); err != nil {
			return s.internalError(c, err, "failed to sync user roles")
		}
	}

	if err := s.db.Select("name", "email", "password", "enabled", "profile_image").
		Save(user).Error; err != nil {
		return s.internalError(c, err, "failed to update user")
	}

	if oldImage != "" {
		if err := s.blobs.Delete(oldImage); err != nil {
			log.Warn().Err(err).Str("path", oldImage).Msg("failed to delete replaced profile image")
		}
	}

	return handler.OK(c, "User updated successfully", fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"profile_image": s.imageURL(user.ProfileImage),
		"user_enabled":  user.Enabled,
	})
}

// Delete removes a user account, its stored image and its associations.
func (s *Service) Delete(c *fiber.Ctx) error {
	user, ok := s.editableUser(c)
	if !ok {
		return handler.Fail(c, msgUserNotFound)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.AccessToken{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return s.internalError(c, err, "failed to delete user")
	}

	if user.ProfileImage != "" {
		if err := s.blobs.Delete(user.ProfileImage); err != nil {
			log.Warn().Err(err).Str("path", user.ProfileImage).Msg("failed to delete profile image")
		}
	}

	return handler.OK(c, "User deleted successfully", nil)
}

// editableUser resolves the :id route parameter to a user that may be
// read, updated or deleted. The bootstrap administrator never qualifies.
func (s *Service) editableUser(c *fiber.Ctx) (*models.User, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == models.BootstrapAdminID {
		return nil, false
	}

	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, false
	}

	return &user, true
}

// roleNamesByUser loads the role name of every user in one query.
func (s *Service) roleNamesByUser() (map[uint64]string, error) {
	var rows []struct {
		UserID uint64
		Name   string
	}

	err := s.db.Table("roles").
		Select("user_roles.user_id AS user_id, roles.name AS name").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	names := make(map[uint64]string, len(rows))
	for _, r := range rows {
		if _, seen := names[r.UserID]; !seen {
			names[r.UserID] = r.Name
		}
	}

	return names, nil
}

func (s *Service) imageURL(path string) any {
	if path == "" {
		return nil
	}

	return s.blobs.URL(path)
}

func (s *Service) internalError(c *fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Msg(msg)
	return handler.FailStatus(c, fiber.StatusInternalServerError, "Something went wrong!")
}

func parseBool(raw string) bool {
	switch raw {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
