package models

import "time"

// AdminScopeSuperAdmin tags permissions belonging to the reserved
// super-administrator scope. These rows are hidden when a role's
// permissions are presented for editing.
const AdminScopeSuperAdmin = "Super Admin"

// Permission represents a named capability in the authorization system.
// Permissions are grouped by a UI label and assigned to roles, which are
// then assigned to users.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the permission name, unique within a guard (e.g. "User Add").
	Name string `gorm:"size:125;not null;uniqueIndex:idx_permissions_name_guard"`
	// GuardName discriminates the authentication context the permission belongs to.
	GuardName string `gorm:"size:125;not null;uniqueIndex:idx_permissions_name_guard"`
	// Group is the label permissions are grouped by in the UI (e.g. "Users").
	Group string `gorm:"size:100"`
	// Admin tags the administrative scope of the permission; see AdminScopeSuperAdmin.
	Admin string `gorm:"size:100"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
