package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/db/models"
	"github.com/silkcms/silk-admin/internal/logger"
)

// Bootstrap account defaults used when the configuration leaves them empty.
const (
	defaultBootstrapName     = "Super Admin"
	defaultBootstrapEmail    = "admin@admin.com"
	defaultBootstrapPassword = "changeme"
)

// Seed opens the database and seeds the default permissions, roles and
// the bootstrap administrator. Used by the seed command.
func Seed(cfg *config.Config) error {
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	return seed(cfg, db)
}

// seed creates the default permission groups, the reserved roles and the
// bootstrap administrator. Every step is create-if-absent, re-running is
// safe.
func seed(cfg *config.Config, db *gorm.DB) error {
	for _, group := range auth.DefaultPermissionGroups() {
		for _, name := range group.Items {
			permission := models.Permission{
				Name:      name,
				GuardName: models.GuardAPI,
				Group:     group.Group,
			}

			if err := db.Where("name = ? AND guard_name = ?", name, models.GuardAPI).
				FirstOrCreate(&permission).Error; err != nil {
				return fmt.Errorf("failed to seed permission %q: %w", name, err)
			}
		}
	}

	superRole, err := seedRole(db, models.RoleSuperAdministrator)
	if err != nil {
		return err
	}

	if _, err := seedRole(db, models.RoleCustomer); err != nil {
		return err
	}

	// The super administrator role holds every known permission.
	var permissionIDs []uint
	if err := db.Model(&models.Permission{}).
		Where("guard_name = ?", models.GuardAPI).
		Pluck("id", &permissionIDs).Error; err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	if err := auth.NewService(db).SyncRolePermissions(superRole.ID, permissionIDs); err != nil {
		return fmt.Errorf("failed to grant permissions: %w", err)
	}

	return seedBootstrapUser(cfg, db, superRole.ID)
}

// seedRole creates a role by name if it does not exist yet.
func seedRole(db *gorm.DB, name string) (*models.Role, error) {
	role := models.Role{Name: name, GuardName: models.GuardAPI}

	if err := db.Where("name = ? AND guard_name = ?", name, models.GuardAPI).
		FirstOrCreate(&role).Error; err != nil {
		return nil, fmt.Errorf("failed to seed role %q: %w", name, err)
	}

	return &role, nil
}

// seedBootstrapUser creates the reserved administrator account with ID 1
// and assigns it the super administrator role.
func seedBootstrapUser(cfg *config.Config, db *gorm.DB, roleID uint) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("id = ?", models.BootstrapAdminID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check bootstrap user: %w", err)
	}

	if count == 0 {
		name := cfg.Bootstrap.Name
		if name == "" {
			name = defaultBootstrapName
		}

		email := cfg.Bootstrap.Email
		if email == "" {
			email = defaultBootstrapEmail
		}

		password := cfg.Bootstrap.Password
		if password == "" {
			password = defaultBootstrapPassword

			log.Warn().Msg("bootstrap administrator created with the default password, change it")
		}

		if err := db.Create(&models.User{
			ID:       models.BootstrapAdminID,
			Name:     name,
			Email:    email,
			Password: models.HashPassword(password),
			Enabled:  true,
		}).Error; err != nil {
			return fmt.Errorf("failed to create bootstrap user: %w", err)
		}
	}

	link := models.UserRole{UserID: models.BootstrapAdminID, RoleID: roleID}

	if err := db.Where("user_id = ? AND role_id = ?", models.BootstrapAdminID, roleID).
		FirstOrCreate(&link).Error; err != nil {
		return fmt.Errorf("failed to assign bootstrap role: %w", err)
	}

	return nil
}
