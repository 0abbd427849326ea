package auth

// Permission constants define the available permissions in the system.
// These are used for role-based access control (RBAC) to restrict access
// to specific resources and actions. The names double as the static
// operation-to-permission binding evaluated before dispatch.
const (
	// PermUserMenu allows seeing the user management menu.
	PermUserMenu = "User Menu"
	// PermUserView allows listing user accounts.
	PermUserView = "User View"
	// PermUserAdd allows registering new user accounts.
	PermUserAdd = "User Add"
	// PermUserEdit allows reading and updating existing user accounts.
	PermUserEdit = "User Edit"
	// PermUserDelete allows deleting user accounts.
	PermUserDelete = "User Delete"

	// PermRoleMenu allows seeing the role management menu.
	PermRoleMenu = "Role Menu"
	// PermRoleView allows listing roles and permissions.
	PermRoleView = "Role View"
	// PermRoleAdd allows creating roles.
	PermRoleAdd = "Role Add"
	// PermRoleEdit allows reading and updating roles and their permissions.
	PermRoleEdit = "Role Edit"
	// PermRoleDelete allows deleting roles.
	PermRoleDelete = "Role Delete"

	// PermPageMenu allows seeing the page management menu.
	PermPageMenu = "Page Menu"
	// PermPageView allows listing pages.
	PermPageView = "Page View"
	// PermPageAdd allows creating pages.
	PermPageAdd = "Page Add"
	// PermPageEdit allows updating pages.
	PermPageEdit = "Page Edit"
	// PermPageDelete allows deleting pages.
	PermPageDelete = "Page Delete"

	// PermWebContentMenu allows seeing the web content menu.
	PermWebContentMenu = "WebContent Menu"
	// PermWebContentView allows reading web content records.
	PermWebContentView = "WebContent View"
	// PermWebContentAdd allows creating web content records.
	PermWebContentAdd = "WebContent Add"
	// PermWebContentEdit allows updating web content records.
	PermWebContentEdit = "WebContent Edit"
)

// PermissionGroup is a named group of permissions as presented in the UI.
type PermissionGroup struct {
	Group string
	Items []string
}

// DefaultPermissionGroups returns the permission groups seeded into a fresh
// database, in stable order.
func DefaultPermissionGroups() []PermissionGroup {
	return []PermissionGroup{
		{Group: "Users", Items: []string{PermUserMenu, PermUserView, PermUserAdd, PermUserEdit, PermUserDelete}},
		{Group: "Roles", Items: []string{PermRoleMenu, PermRoleView, PermRoleAdd, PermRoleEdit, PermRoleDelete}},
		{Group: "Pages", Items: []string{PermPageMenu, PermPageView, PermPageAdd, PermPageEdit, PermPageDelete}},
		{Group: "WebContents", Items: []string{PermWebContentMenu, PermWebContentView, PermWebContentAdd, PermWebContentEdit}},
	}
}
