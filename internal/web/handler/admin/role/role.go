// Package role implements the role and permission administration routes.
package role

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/db/models"
	"github.com/silkcms/silk-admin/internal/web/handler"
)

const (
	// RootPath is the base path of the role route group.
	RootPath = "/roles"

	msgRoleExists   = "Role already exists"
	msgRoleNotFound = "Role not found!"
)

// Service is the role administration handler service.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	validator   *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the role route group behind its permission middleware.
// The bulk permission routes only require authentication, matching the
// admin tooling they serve.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authService = authService
	s.validator = validator.New()

	authed := auth.RequireAuth(authService)
	group := app.Group(RootPath, authed)

	group.Get("/", auth.RequirePermission(authService, auth.PermRoleView), s.List)
	group.Get("/allPermissions", auth.RequirePermission(authService, auth.PermRoleView), s.AllPermissions)
	group.Post("/create", auth.RequirePermission(authService, auth.PermRoleAdd), s.Create)
	group.Get("/edit/:roleId", auth.RequirePermission(authService, auth.PermRoleEdit), s.Edit)
	group.Post("/update/:roleId", auth.RequirePermission(authService, auth.PermRoleEdit), s.Update)
	group.Delete("/remove/:roleId", auth.RequirePermission(authService, auth.PermRoleDelete), s.Remove)
	group.Post("/add-permissions", s.AddPermissions)
	group.Post("/delete-permission-group", s.DeletePermissionGroup)
}

// List enumerates all roles except the two reserved names.
func (s *Service) List(c *fiber.Ctx) error {
	var roles []models.Role
	if err := s.db.Where("name NOT IN ?", []string{models.RoleSuperAdministrator, models.RoleCustomer}).
		Order("id ASC").
		Find(&roles).Error; err != nil {
		return s.internalError(c, err, "failed to list roles")
	}

	if len(roles) == 0 {
		return handler.FailStatus(c, fiber.StatusNotFound, "No roles found!")
	}

	rows := make([]fiber.Map, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, fiber.Map{"id": r.ID, "name": r.Name})
	}

	return handler.OK(c, "Roles retrieved successfully", rows)
}

// AllPermissions returns every permission grouped by its UI group label.
func (s *Service) AllPermissions(c *fiber.Ctx) error {
	var permissions []models.Permission
	if err := s.db.Order("id ASC").Find(&permissions).Error; err != nil {
		return s.internalError(c, err, "failed to list permissions")
	}

	if len(permissions) == 0 {
		return handler.FailStatus(c, fiber.StatusNotFound, "No permissions found.")
	}

	return handler.OK(c, "Permissions retrieved successfully", groupPermissions(permissions))
}

// Create adds a new role and syncs its permission set. permission_all
// grants every known permission regardless of the explicit list.
func (s *Service) Create(c *fiber.Ctx) error {
	var in struct {
		Name          string   `json:"name"           form:"name" validate:"required,max=125"`
		PermissionAll bool     `json:"permission_all" form:"permission_all"`
		Permissions   []string `json:"permissions"    form:"permissions"`
	}

	if err := c.BodyParser(&in); err != nil {
		return handler.Fail(c, "Invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Fail(c, handler.FirstValidationMessage(err))
	}

	var count int64
	if err := s.db.Model(&models.Role{}).
		Where("name = ? AND guard_name = ?", in.Name, models.GuardAPI).
		Count(&count).Error; err != nil {
		return s.internalError(c, err, "failed to check role uniqueness")
	}

	if count > 0 {
		return handler.Fail(c, msgRoleExists)
	}

	role := models.Role{Name: in.Name, GuardName: models.GuardAPI}
	if err := s.db.Create(&role).Error; err != nil {
		return s.internalError(c, err, "failed to create role")
	}

	permissionIDs, err := s.resolvePermissionIDs(in.PermissionAll, in.Permissions)
	if err != nil {
		return s.internalError(c, err, "failed to resolve permissions")
	}

	if err := s.authService.SyncRolePermissions(role.ID, permissionIDs); err != nil {
		return s.internalError(c, err, "failed to sync role permissions")
	}

	return handler.OK(c, "Role created successfully", fiber.Map{
		"id":   role.ID,
		"name": role.Name,
	})
}

// Edit returns a role together with its assigned permissions, grouped.
// Permissions tagged with the super-administrator scope are not surfaced.
func (s *Service) Edit(c *fiber.Ctx) error {
	role, ok := s.findRole(c)
	if !ok {
		return handler.Fail(c, msgRoleNotFound)
	}

	var permissions []models.Permission
	err := s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ? AND permissions.admin <> ?",
			role.ID, models.AdminScopeSuperAdmin).
		Order("permissions.id ASC").
		Find(&permissions).Error
	if err != nil {
		return s.internalError(c, err, "failed to load role permissions")
	}

	return handler.OK(c, "Role retrieved successfully", fiber.Map{
		"role":        fiber.Map{"id": role.ID, "name": role.Name},
		"permissions": groupPermissions(permissions),
	})
}

// Update renames a role and replaces its permission set.
func (s *Service) Update(c *fiber.Ctx) error {
	role, ok := s.findRole(c)
	if !ok {
		return handler.Fail(c, msgRoleNotFound)
	}

	var in struct {
		Name          string `json:"name"           form:"name" validate:"required,max=125"`
		PermissionAll bool   `json:"permission_all" form:"permission_all"`
		Permissions   []struct {
			Group string   `json:"group"`
			Names []string `json:"names"`
		} `json:"permissions"`
	}

	if err := c.BodyParser(&in); err != nil {
		return handler.Fail(c, "Invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Fail(c, handler.FirstValidationMessage(err))
	}

	var count int64
	if err := s.db.Model(&models.Role{}).
		Where("name = ? AND guard_name = ? AND id <> ?", in.Name, models.GuardAPI, role.ID).
		Count(&count).Error; err != nil {
		return s.internalError(c, err, "failed to check role uniqueness")
	}

	if count > 0 {
		return handler.Fail(c, msgRoleExists)
	}

	role.Name = in.Name
	if err := s.db.Save(role).Error; err != nil {
		return s.internalError(c, err, "failed to update role")
	}

	var names []string
	for _, group := range in.Permissions {
		names = append(names, group.Names...)
	}

	permissionIDs, err := s.resolvePermissionIDs(in.PermissionAll, names)
	if err != nil {
		return s.internalError(c, err, "failed to resolve permissions")
	}

	if err := s.authService.SyncRolePermissions(role.ID, permissionIDs); err != nil {
		return s.internalError(c, err, "failed to sync role permissions")
	}

	return handler.OK(c, "Role updated successfully", fiber.Map{
		"id":   role.ID,
		"name": role.Name,
	})
}

// Remove deletes a role and its permission associations. A role still
// held by any user is refused untouched.
func (s *Service) Remove(c *fiber.Ctx) error {
	role, ok := s.findRole(c)
	if !ok {
		return handler.Fail(c, msgRoleNotFound)
	}

	inUse, err := s.authService.RoleInUse(role.ID)
	if err != nil {
		return s.internalError(c, err, "failed to count role assignments")
	}

	if inUse {
		return handler.Fail(c, "Role cannot be deleted because it is assigned to one or more users.")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Role{}, role.ID).Error
	})
	if err != nil {
		return s.internalError(c, err, "failed to delete role")
	}

	return handler.OK(c, "Role deleted successfully", nil)
}

// AddPermissions creates every named permission of a group that does not
// exist yet. Re-sending the same payload changes nothing.
func (s *Service) AddPermissions(c *fiber.Ctx) error {
	var in struct {
		Group string   `json:"group" form:"group" validate:"required,max=100"`
		Items []string `json:"items" form:"items" validate:"required,min=1,dive,required"`
	}

	if err := c.BodyParser(&in); err != nil {
		return handler.Fail(c, "Invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Fail(c, handler.FirstValidationMessage(err))
	}

	for _, name := range in.Items {
		permission := models.Permission{
			Name:      name,
			GuardName: models.GuardAPI,
			Group:     in.Group,
		}

		if err := s.db.Where("name = ? AND guard_name = ?", name, models.GuardAPI).
			FirstOrCreate(&permission).Error; err != nil {
			return s.internalError(c, err, "failed to create permission")
		}
	}

	return handler.OK(c, "Permissions added successfully", nil)
}

// DeletePermissionGroup removes every permission of a group together with
// its role associations.
func (s *Service) DeletePermissionGroup(c *fiber.Ctx) error {
	var in struct {
		Group string `json:"group" form:"group" validate:"required,max=100"`
	}

	if err := c.BodyParser(&in); err != nil {
		return handler.Fail(c, "Invalid request body")
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Fail(c, handler.FirstValidationMessage(err))
	}

	// group is a reserved word in SQL, quoting is left to the dialect.
	var ids []uint
	if err := s.db.Model(&models.Permission{}).
		Where(map[string]interface{}{"group": in.Group}).
		Pluck("id", &ids).Error; err != nil {
		return s.internalError(c, err, "failed to load permission group")
	}

	if len(ids) == 0 {
		return handler.FailStatus(c, fiber.StatusNotFound, "Permission group not found.")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id IN ?", ids).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).Delete(&models.Permission{}).Error
	})
	if err != nil {
		return s.internalError(c, err, "failed to delete permission group")
	}

	return handler.OK(c, "Permission group deleted successfully", nil)
}

// findRole resolves the :roleId route parameter.
func (s *Service) findRole(c *fiber.Ctx) (*models.Role, bool) {
	id, err := strconv.ParseUint(c.Params("roleId"), 10, 32)
	if err != nil {
		return nil, false
	}

	var role models.Role
	if err := s.db.First(&role, uint(id)).Error; err != nil {
		return nil, false
	}

	return &role, true
}

// resolvePermissionIDs turns a permission name list (or the all flag)
// into permission IDs. Unknown names are skipped.
func (s *Service) resolvePermissionIDs(all bool, names []string) ([]uint, error) {
	var ids []uint

	query := s.db.Model(&models.Permission{}).Where("guard_name = ?", models.GuardAPI)
	if !all {
		if len(names) == 0 {
			return nil, nil
		}

		query = query.Where("name IN ?", names)
	}

	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

// groupPermissions buckets permissions by their group label, keeping the
// first-seen group order.
func groupPermissions(permissions []models.Permission) []fiber.Map {
	index := make(map[string]int)
	grouped := make([]fiber.Map, 0)

	for _, p := range permissions {
		i, ok := index[p.Group]
		if !ok {
			i = len(grouped)
			index[p.Group] = i
			grouped = append(grouped, fiber.Map{
				"group":       p.Group,
				"permissions": []fiber.Map{},
			})
		}

		items := grouped[i]["permissions"].([]fiber.Map)
		grouped[i]["permissions"] = append(items, fiber.Map{
			"id":   p.ID,
			"name": p.Name,
		})
	}

	return grouped
}

func (s *Service) internalError(c *fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Msg(msg)
	return handler.FailStatus(c, fiber.StatusInternalServerError, "Something went wrong!")
}
