package models

import "time"

const (
	// GuardAPI is the guard name of the token-authenticated API context.
	// Roles and permissions are unique per guard.
	GuardAPI = "api"

	// RoleSuperAdministrator is the reserved role holding every permission.
	// It is hidden from general role enumeration.
	RoleSuperAdministrator = "Super Administrator"
	// RoleCustomer is the reserved customer-facing role, hidden from
	// general role enumeration.
	RoleCustomer = "Customer"
)

// Role represents a role in the role-based access control (RBAC) system.
// Roles are named permission bundles assigned to users through the
// user_roles join table.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the role name, unique within a guard.
	Name string `gorm:"size:125;not null;uniqueIndex:idx_roles_name_guard"`
	// GuardName discriminates the authentication context the role belongs to.
	GuardName string `gorm:"size:125;not null;uniqueIndex:idx_roles_name_guard"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
