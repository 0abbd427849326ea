package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/db/models"
)

// Service provides authentication and authorization functionality.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// DB exposes the underlying database handle.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// HasPermission checks if a user has a specific permission.
// This works by checking if any of the user's roles has the permission assigned.
func (s *Service) HasPermission(userID uint64, permission string) (bool, error) {
	var count int64

	err := s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND permissions.name = ? AND permissions.guard_name = ?",
			userID, permission, models.GuardAPI).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role permission: %w", err)
	}

	return count > 0, nil
}

// GetUserPermissions retrieves all permission names granted to a user
// through their roles.
func (s *Service) GetUserPermissions(userID uint64) ([]string, error) {
	var permissions []string

	err := s.db.Table("permissions").
		Select("DISTINCT permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("permissions.name", &permissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	return permissions, nil
}

// GetUserRole retrieves the first role assigned to a user.
// Users are assigned exactly one role in practice; the join table permits more.
func (s *Service) GetUserRole(userID uint64) (*models.Role, error) {
	var role models.Role

	err := s.db.Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id ASC").
		First(&role).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}

	return &role, nil
}

// RoleInUse reports whether any user currently holds the role.
func (s *Service) RoleInUse(roleID uint) (bool, error) {
	var count int64

	err := s.db.Model(&models.UserRole{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count role assignments: %w", err)
	}

	return count > 0, nil
}

// SyncRolePermissions replaces a role's permission set with the given
// permission IDs. The current and desired sets are reconciled inside one
// transaction: stale assignments are removed, missing ones added, the
// intersection is left untouched.
func (s *Service) SyncRolePermissions(roleID uint, permissionIDs []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current []uint
		if err := tx.Model(&models.RolePermission{}).
			Where("role_id = ?", roleID).
			Pluck("permission_id", &current).Error; err != nil {
			return fmt.Errorf("failed to load current permissions: %w", err)
		}

		toAdd, toRemove := reconcile(current, permissionIDs)

		if len(toRemove) > 0 {
			if err := tx.Where("role_id = ? AND permission_id IN ?", roleID, toRemove).
				Delete(&models.RolePermission{}).Error; err != nil {
				return fmt.Errorf("failed to remove stale permissions: %w", err)
			}
		}

		for _, id := range toAdd {
			if err := tx.Create(&models.RolePermission{
				RoleID:       roleID,
				PermissionID: id,
			}).Error; err != nil {
				return fmt.Errorf("failed to assign permission: %w", err)
			}
		}

		return nil
	})
}

// SyncUserRoles replaces a user's role set with the given role IDs using
// the same reconciliation as SyncRolePermissions.
func (s *Service) SyncUserRoles(userID uint64, roleIDs []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current []uint
		if err := tx.Model(&models.UserRole{}).
			Where("user_id = ?", userID).
			Pluck("role_id", &current).Error; err != nil {
			return fmt.Errorf("failed to load current roles: %w", err)
		}

		toAdd, toRemove := reconcile(current, roleIDs)

		if len(toRemove) > 0 {
			if err := tx.Where("user_id = ? AND role_id IN ?", userID, toRemove).
				Delete(&models.UserRole{}).Error; err != nil {
				return fmt.Errorf("failed to remove stale roles: %w", err)
			}
		}

		for _, id := range toAdd {
			if err := tx.Create(&models.UserRole{
				UserID: userID,
				RoleID: id,
			}).Error; err != nil {
				return fmt.Errorf("failed to assign role: %w", err)
			}
		}

		return nil
	})
}

// reconcile computes the additions and removals turning current into desired.
// Duplicates in desired are collapsed.
func reconcile(current, desired []uint) (toAdd, toRemove []uint) {
	currentSet := make(map[uint]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}

	desiredSet := make(map[uint]bool, len(desired))
	for _, id := range desired {
		if !desiredSet[id] {
			desiredSet[id] = true

			if !currentSet[id] {
				toAdd = append(toAdd, id)
			}
		}
	}

	for _, id := range current {
		if !desiredSet[id] {
			toRemove = append(toRemove, id)
		}
	}

	return toAdd, toRemove
}

// Authenticate verifies email and password against the database.
func (s *Service) Authenticate(email, password string) (*models.User, error) {
	var user models.User

	err := s.db.Where("email = ?", email).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Enabled {
		return nil, ErrUserAccountDisabled
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	return &user, nil
}
